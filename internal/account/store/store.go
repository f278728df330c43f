// Package store persists accounts. Implementations return sentinel errors
// for infrastructure facts; the service layer translates them into domain
// errors.
//
// Uniqueness of email and national ID is enforced here, not in the service:
// concurrent writers are allowed to race past service-level existence checks
// and the store's constraint rejection (ErrConflict) is the final arbiter.
package store

import (
	"context"

	"pymegate/internal/account/models"
	"pymegate/pkg/platform/sentinel"
)

// Re-exported so callers branching on store outcomes do not need to import
// sentinel directly.
var (
	ErrNotFound = sentinel.ErrNotFound
	ErrConflict = sentinel.ErrConflict
)

type AccountStore interface {
	// Create persists a new account. ErrConflict when the email or the
	// national ID is already taken.
	Create(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, id string) (*models.Account, error)
	// FindByEmail matches the normalized (lowercased) address.
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByNationalID(ctx context.Context, nationalID string) (*models.Account, error)
	// Update persists every mutable field including the pending email
	// change. ErrNotFound when the account does not exist, ErrConflict when
	// the write would violate email or national-ID uniqueness.
	Update(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, id string) error
}
