package store

import (
	"context"
	"sort"
	"sync"

	"pymegate/internal/business/models"
)

// InMemory is the development and test implementation.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[string]*models.Business
	byOwner map[string]map[string]struct{}
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[string]*models.Business),
		byOwner: make(map[string]map[string]struct{}),
	}
}

func (s *InMemory) Create(_ context.Context, business *models.Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[business.ID]; exists {
		return ErrConflict
	}
	s.byID[business.ID] = business.Clone()
	s.index(business)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	business, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return business.Clone(), nil
}

func (s *InMemory) ListByOwner(_ context.Context, ownerNationalID string) ([]*models.Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byOwner[ownerNationalID]
	result := make([]*models.Business, 0, len(ids))
	for id := range ids {
		result = append(result, s.byID[id].Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *InMemory) Update(_ context.Context, business *models.Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[business.ID]
	if !ok {
		return ErrNotFound
	}
	s.unindex(existing)
	s.byID[business.ID] = business.Clone()
	s.index(business)
	return nil
}

func (s *InMemory) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	s.unindex(existing)
	delete(s.byID, id)
	return nil
}

func (s *InMemory) index(business *models.Business) {
	owned, ok := s.byOwner[business.OwnerNationalID]
	if !ok {
		owned = make(map[string]struct{})
		s.byOwner[business.OwnerNationalID] = owned
	}
	owned[business.ID] = struct{}{}
}

func (s *InMemory) unindex(business *models.Business) {
	if owned, ok := s.byOwner[business.OwnerNationalID]; ok {
		delete(owned, business.ID)
		if len(owned) == 0 {
			delete(s.byOwner, business.OwnerNationalID)
		}
	}
}
