package models

import (
	"strings"

	dErrors "pymegate/pkg/domain-errors"
	"pymegate/pkg/email"
	"pymegate/pkg/rut"
)

const (
	maxEmailLen       = 255
	maxDisplayNameLen = 128
	maxPasswordLen    = 512
)

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	NationalID  string `json:"national_id,omitempty"`
	Role        string `json:"role,omitempty"`
}

func (r *RegisterRequest) Normalize() {
	if r == nil {
		return
	}
	r.Email = email.Normalize(r.Email)
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	r.NationalID = rut.Normalize(r.NationalID)
}

// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Email) > maxEmailLen {
		return dErrors.New(dErrors.CodeValidation, "email must be 255 characters or less")
	}
	if len(r.DisplayName) > maxDisplayNameLen {
		return dErrors.New(dErrors.CodeValidation, "display_name must be 128 characters or less")
	}
	if len(r.Password) > maxPasswordLen {
		return dErrors.New(dErrors.CodeValidation, "password too long")
	}
	if r.Email == "" || r.Password == "" || r.DisplayName == "" {
		return dErrors.New(dErrors.CodeBadRequest, "email, password and display_name are required")
	}
	if !strings.Contains(r.Email, "@") {
		return dErrors.New(dErrors.CodeValidation, "invalid email")
	}
	if r.NationalID != "" && !rut.IsValid(r.NationalID) {
		return dErrors.New(dErrors.CodeValidation, "invalid RUT, expected format 12345678-K")
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	if r == nil {
		return
	}
	r.Email = email.Normalize(r.Email)
}

func (r *LoginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Email == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeBadRequest, "email and password are required")
	}
	return nil
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (r *ChangePasswordRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.NewPassword) > maxPasswordLen {
		return dErrors.New(dErrors.CodeValidation, "password too long")
	}
	if r.OldPassword == "" || r.NewPassword == "" {
		return dErrors.New(dErrors.CodeBadRequest, "old_password and new_password are required")
	}
	return nil
}

type RequestEmailChangeRequest struct {
	NewEmail string `json:"new_email"`
}

func (r *RequestEmailChangeRequest) Normalize() {
	if r == nil {
		return
	}
	r.NewEmail = email.Normalize(r.NewEmail)
}

func (r *RequestEmailChangeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.NewEmail) > maxEmailLen {
		return dErrors.New(dErrors.CodeValidation, "new_email must be 255 characters or less")
	}
	if r.NewEmail == "" {
		return dErrors.New(dErrors.CodeBadRequest, "new_email is required")
	}
	if !strings.Contains(r.NewEmail, "@") {
		return dErrors.New(dErrors.CodeValidation, "invalid email")
	}
	return nil
}

type ConfirmEmailChangeRequest struct {
	Token string `json:"token"`
}

func (r *ConfirmEmailChangeRequest) Normalize() {
	if r == nil {
		return
	}
	r.Token = strings.TrimSpace(r.Token)
}

func (r *ConfirmEmailChangeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if strings.TrimSpace(r.Token) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "token is required")
	}
	return nil
}

type UpdateDisplayNameRequest struct {
	DisplayName string `json:"display_name"`
}

func (r *UpdateDisplayNameRequest) Normalize() {
	if r == nil {
		return
	}
	r.DisplayName = strings.TrimSpace(r.DisplayName)
}

func (r *UpdateDisplayNameRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.DisplayName) > maxDisplayNameLen {
		return dErrors.New(dErrors.CodeValidation, "display_name must be 128 characters or less")
	}
	if r.DisplayName == "" {
		return dErrors.New(dErrors.CodeBadRequest, "display_name is required")
	}
	return nil
}

type AssignNationalIDRequest struct {
	NationalID string `json:"national_id"`
}

func (r *AssignNationalIDRequest) Normalize() {
	if r == nil {
		return
	}
	r.NationalID = rut.Normalize(r.NationalID)
}

func (r *AssignNationalIDRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.NationalID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "national_id is required")
	}
	if !rut.IsValid(r.NationalID) {
		return dErrors.New(dErrors.CodeValidation, "invalid RUT, expected format 12345678-K")
	}
	return nil
}
