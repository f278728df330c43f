package models

import (
	"strings"

	dErrors "pymegate/pkg/domain-errors"
)

const (
	maxNameLen        = 200
	maxDescriptionLen = 2000
)

type CreateBusinessRequest struct {
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Commune     string               `json:"commune,omitempty"`
	Attributes  map[string]Attribute `json:"attributes,omitempty"`
}

func (r *CreateBusinessRequest) Normalize() {
	if r == nil {
		return
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	r.Commune = strings.TrimSpace(r.Commune)
}

func (r *CreateBusinessRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Name) > maxNameLen {
		return dErrors.New(dErrors.CodeValidation, "name must be 200 characters or less")
	}
	if len(r.Description) > maxDescriptionLen {
		return dErrors.New(dErrors.CodeValidation, "description must be 2000 characters or less")
	}
	if r.Name == "" {
		return dErrors.New(dErrors.CodeBadRequest, "name is required")
	}
	for key, attr := range r.Attributes {
		if err := attr.Validate(); err != nil {
			return dErrors.Newf(dErrors.CodeValidation, "attribute %q: %s", key, dErrors.MessageOf(err))
		}
	}
	return nil
}

type UpdateBusinessRequest struct {
	Name        *string              `json:"name,omitempty"`
	Description *string              `json:"description,omitempty"`
	Commune     *string              `json:"commune,omitempty"`
	Attributes  map[string]Attribute `json:"attributes,omitempty"`
}

func (r *UpdateBusinessRequest) Normalize() {
	if r == nil {
		return
	}
	trim := func(p *string) {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	trim(r.Name)
	trim(r.Description)
	trim(r.Commune)
}

func (r *UpdateBusinessRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Name != nil {
		if *r.Name == "" {
			return dErrors.New(dErrors.CodeBadRequest, "name cannot be emptied")
		}
		if len(*r.Name) > maxNameLen {
			return dErrors.New(dErrors.CodeValidation, "name must be 200 characters or less")
		}
	}
	if r.Description != nil && len(*r.Description) > maxDescriptionLen {
		return dErrors.New(dErrors.CodeValidation, "description must be 2000 characters or less")
	}
	for key, attr := range r.Attributes {
		if err := attr.Validate(); err != nil {
			return dErrors.Newf(dErrors.CodeValidation, "attribute %q: %s", key, dErrors.MessageOf(err))
		}
	}
	return nil
}

type SetStatusRequest struct {
	Status Status `json:"status"`
}

func (r *SetStatusRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if !r.Status.Valid() {
		return dErrors.New(dErrors.CodeValidation, "status must be pending, published or suspended")
	}
	return nil
}
