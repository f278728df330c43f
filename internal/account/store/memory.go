package store

import (
	"context"
	"sync"

	"pymegate/internal/account/models"
)

// InMemory is a mutex-guarded account store for tests and local
// development. It enforces the same uniqueness rules as the Postgres store
// so service tests exercise real conflict paths.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[string]*models.Account
	byEmail map[string]string // email -> id
	byRUT   map[string]string // normalized national ID -> id
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[string]*models.Account),
		byEmail: make(map[string]string),
		byRUT:   make(map[string]string),
	}
}

func (s *InMemory) Create(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[account.ID]; exists {
		return ErrConflict
	}
	if _, taken := s.byEmail[account.Email]; taken {
		return ErrConflict
	}
	if account.NationalID != "" {
		if _, taken := s.byRUT[account.NationalID]; taken {
			return ErrConflict
		}
	}

	s.byID[account.ID] = account.Clone()
	s.byEmail[account.Email] = account.ID
	if account.NationalID != "" {
		s.byRUT[account.NationalID] = account.ID
	}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return account.Clone(), nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *InMemory) FindByNationalID(_ context.Context, nationalID string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byRUT[nationalID]
	if !ok {
		return nil, ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *InMemory) Update(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[account.ID]
	if !ok {
		return ErrNotFound
	}
	if owner, taken := s.byEmail[account.Email]; taken && owner != account.ID {
		return ErrConflict
	}
	if account.NationalID != "" {
		if owner, taken := s.byRUT[account.NationalID]; taken && owner != account.ID {
			return ErrConflict
		}
	}

	delete(s.byEmail, current.Email)
	if current.NationalID != "" {
		delete(s.byRUT, current.NationalID)
	}

	s.byID[account.ID] = account.Clone()
	s.byEmail[account.Email] = account.ID
	if account.NationalID != "" {
		s.byRUT[account.NationalID] = account.ID
	}
	return nil
}

func (s *InMemory) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byEmail, account.Email)
	if account.NationalID != "" {
		delete(s.byRUT, account.NationalID)
	}
	delete(s.byID, id)
	return nil
}
