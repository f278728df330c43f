package models

import (
	"time"

	dErrors "pymegate/pkg/domain-errors"
)

// Role is the coarse authorization level carried in every token.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStandard Role = "standard"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleStandard
}

// ParseRole maps a requested role to a valid one. Anything that is not
// exactly admin registers as standard; self-signup cannot invent roles.
func ParseRole(raw string) Role {
	if Role(raw) == RoleAdmin {
		return RoleAdmin
	}
	return RoleStandard
}

// Account is the identity record the gateway manages.
//
// Invariants:
//   - Email is unique across accounts (case-insensitive) and changes only
//     through the two-phase verification workflow.
//   - NationalID, when set, is unique across accounts in normalized
//     "<digits>-<dv>" form and is immutable once assigned: the mutation
//     workflow may set it exactly once and never clears or reassigns it.
//   - At most one PendingEmailChange exists at a time.
//
// Business-record ownership is derived by matching normalized national IDs,
// never by foreign key, so the uniqueness invariant above is what prevents
// two accounts from owning the same records.
type Account struct {
	ID          string
	NationalID  string // "" until assigned
	DisplayName string
	Email       string
	Credential  string // opaque password hash (legacy rows may hold plaintext)
	Role        Role

	PendingEmailChange *PendingEmailChange

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PendingEmailChange is the single outstanding email-change request for an
// account. Cleared on confirm, expiry, or overwrite by a newer request.
type PendingEmailChange struct {
	NewEmail        string
	Token           string
	ExpiresAt       time.Time
	LastRequestedAt time.Time
}

// RequiresRUT reports whether the account still has to complete national-ID
// assignment before it can own business records.
func (a *Account) RequiresRUT() bool {
	return a.NationalID == ""
}

// CanAssignNationalID checks the one-time-only invariant.
func (a *Account) CanAssignNationalID() error {
	if a.NationalID != "" {
		return dErrors.New(dErrors.CodeConflict, "national ID already assigned")
	}
	return nil
}

// Clone returns a deep copy so the in-memory store never hands out aliased
// pointers.
func (a *Account) Clone() *Account {
	clone := *a
	if a.PendingEmailChange != nil {
		pending := *a.PendingEmailChange
		clone.PendingEmailChange = &pending
	}
	return &clone
}
