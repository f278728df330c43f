// Package service implements the business directory operations guarded by
// the ownership policy: owners manage their own listings, admins manage
// any.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"pymegate/internal/business/models"
	"pymegate/internal/business/store"
	dErrors "pymegate/pkg/domain-errors"
	"pymegate/pkg/requestcontext"
	"pymegate/pkg/rut"
)

type Service struct {
	businesses store.BusinessStore
	logger     *slog.Logger
}

func New(businesses store.BusinessStore, logger *slog.Logger) *Service {
	return &Service{businesses: businesses, logger: logger}
}

// Create registers a new listing owned by the given RUT. New listings
// start pending until reviewed.
func (s *Service) Create(ctx context.Context, ownerNationalID string, req models.CreateBusinessRequest) (*models.Business, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	owner := rut.Normalize(ownerNationalID)
	if owner == "" {
		return nil, dErrors.New(dErrors.CodeForbidden, "a RUT is required to own a business")
	}

	now := requestcontext.Now(ctx)
	business := &models.Business{
		ID:              uuid.NewString(),
		OwnerNationalID: owner,
		Name:            req.Name,
		Description:     req.Description,
		Commune:         req.Commune,
		Status:          models.StatusPending,
		Attributes:      req.Attributes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.businesses.Create(ctx, business); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create business")
	}
	s.logger.InfoContext(ctx, "business created", "business_id", business.ID, "owner_rut", owner)
	return business, nil
}

// Get returns a listing by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Business, error) {
	business, err := s.businesses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "business not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load business")
	}
	return business, nil
}

// ListByOwner returns every listing registered under the given RUT.
func (s *Service) ListByOwner(ctx context.Context, ownerNationalID string) ([]*models.Business, error) {
	owner := rut.Normalize(ownerNationalID)
	if owner == "" {
		return []*models.Business{}, nil
	}
	result, err := s.businesses.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list businesses")
	}
	if result == nil {
		result = []*models.Business{}
	}
	return result, nil
}

// Update applies a partial update to a listing. Ownership is checked by
// the route middleware.
func (s *Service) Update(ctx context.Context, id string, req models.UpdateBusinessRequest) (*models.Business, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	business, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		business.Name = *req.Name
	}
	if req.Description != nil {
		business.Description = *req.Description
	}
	if req.Commune != nil {
		business.Commune = *req.Commune
	}
	if req.Attributes != nil {
		business.Attributes = req.Attributes
	}
	business.UpdatedAt = requestcontext.Now(ctx)

	if err := s.businesses.Update(ctx, business); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "business not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update business")
	}
	return business, nil
}

// SetStatus moves a listing through the review states. Admin-only at the
// route layer.
func (s *Service) SetStatus(ctx context.Context, id string, req models.SetStatusRequest) (*models.Business, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	business, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	business.Status = req.Status
	business.UpdatedAt = requestcontext.Now(ctx)
	if err := s.businesses.Update(ctx, business); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update business status")
	}
	return business, nil
}

// Delete removes a listing.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.businesses.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "business not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete business")
	}
	return nil
}

// OwnerNationalID implements the ownership lookup used by the route
// middleware.
func (s *Service) OwnerNationalID(ctx context.Context, businessID string) (string, error) {
	business, err := s.Get(ctx, businessID)
	if err != nil {
		return "", err
	}
	return business.OwnerNationalID, nil
}
