// Package store persists business listings. Implementations return
// sentinel errors; services translate them into domain errors.
package store

import (
	"context"

	"pymegate/internal/business/models"
	"pymegate/pkg/platform/sentinel"
)

var (
	ErrNotFound = sentinel.ErrNotFound
	ErrConflict = sentinel.ErrConflict
)

type BusinessStore interface {
	Create(ctx context.Context, business *models.Business) error
	FindByID(ctx context.Context, id string) (*models.Business, error)
	// ListByOwner returns the listings owned by the holder of the given
	// RUT, newest first.
	ListByOwner(ctx context.Context, ownerNationalID string) ([]*models.Business, error)
	Update(ctx context.Context, business *models.Business) error
	Delete(ctx context.Context, id string) error
}
