// Package models defines the business directory records the identity
// layer guards: each business belongs to the holder of a RUT, and
// ownership decides who may mutate it.
package models

import (
	"encoding/json"
	"time"

	dErrors "pymegate/pkg/domain-errors"
)

// Status tracks a listing through review.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusSuspended Status = "suspended"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPublished, StatusSuspended:
		return true
	}
	return false
}

// AttributeKind discriminates the attribute payload.
type AttributeKind string

const (
	KindList AttributeKind = "list"
	KindMap  AttributeKind = "map"
)

// Attribute is a tagged union: exactly one of List or Map is set,
// according to Kind. Listings carry free-form attributes like opening
// hours (map) or payment methods (list).
type Attribute struct {
	Kind AttributeKind     `json:"kind"`
	List []string          `json:"list,omitempty"`
	Map  map[string]string `json:"map,omitempty"`
}

func (a Attribute) Validate() error {
	switch a.Kind {
	case KindList:
		if a.Map != nil {
			return dErrors.New(dErrors.CodeValidation, "list attribute must not carry a map")
		}
	case KindMap:
		if a.List != nil {
			return dErrors.New(dErrors.CodeValidation, "map attribute must not carry a list")
		}
	default:
		return dErrors.New(dErrors.CodeValidation, "attribute kind must be list or map")
	}
	return nil
}

// Business is one directory listing.
type Business struct {
	ID              string               `json:"id"`
	OwnerNationalID string               `json:"owner_rut"`
	Name            string               `json:"name"`
	Description     string               `json:"description,omitempty"`
	Commune         string               `json:"commune,omitempty"`
	Status          Status               `json:"status"`
	Attributes      map[string]Attribute `json:"attributes,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

func (b *Business) Clone() *Business {
	if b == nil {
		return nil
	}
	clone := *b
	if b.Attributes != nil {
		clone.Attributes = make(map[string]Attribute, len(b.Attributes))
		for k, v := range b.Attributes {
			attr := Attribute{Kind: v.Kind}
			if v.List != nil {
				attr.List = append([]string(nil), v.List...)
			}
			if v.Map != nil {
				attr.Map = make(map[string]string, len(v.Map))
				for mk, mv := range v.Map {
					attr.Map[mk] = mv
				}
			}
			clone.Attributes[k] = attr
		}
	}
	return &clone
}

// AttributesJSON serializes the attribute set for storage.
func (b *Business) AttributesJSON() ([]byte, error) {
	if len(b.Attributes) == 0 {
		return nil, nil
	}
	return json.Marshal(b.Attributes)
}
