package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"pymegate/internal/account/models"
	"pymegate/pkg/platform/sentinel"
)

type AccountStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *AccountStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestAccountStoreSuite(t *testing.T) {
	suite.Run(t, new(AccountStoreSuite))
}

func (s *AccountStoreSuite) newAccount(email string) *models.Account {
	now := time.Now()
	return &models.Account{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: "Test Account",
		Credential:  "$2a$10$fakehash",
		Role:        models.RoleStandard,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *AccountStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds by ID, email and national ID", func() {
		account := s.newAccount("ana@example.com")
		account.NationalID = "12345678-5"
		s.Require().NoError(s.store.Create(s.ctx, account))

		byID, err := s.store.FindByID(s.ctx, account.ID)
		s.Require().NoError(err)
		s.Equal(account.Email, byID.Email)

		byEmail, err := s.store.FindByEmail(s.ctx, "ana@example.com")
		s.Require().NoError(err)
		s.Equal(account.ID, byEmail.ID)

		byRUT, err := s.store.FindByNationalID(s.ctx, "12345678-5")
		s.Require().NoError(err)
		s.Equal(account.ID, byRUT.ID)
	})

	s.Run("returns ErrNotFound for unknown lookups", func() {
		_, err := s.store.FindByID(s.ctx, uuid.NewString())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		_, err = s.store.FindByEmail(s.ctx, "nobody@example.com")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		_, err = s.store.FindByNationalID(s.ctx, "1-9")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("hands out copies, not aliases", func() {
		account := s.newAccount("copy@example.com")
		s.Require().NoError(s.store.Create(s.ctx, account))

		found, err := s.store.FindByID(s.ctx, account.ID)
		s.Require().NoError(err)
		found.DisplayName = "mutated"

		again, err := s.store.FindByID(s.ctx, account.ID)
		s.Require().NoError(err)
		s.Equal("Test Account", again.DisplayName)
	})
}

func (s *AccountStoreSuite) TestUniqueness() {
	s.Run("rejects duplicate email", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newAccount("dup@example.com")))
		err := s.store.Create(s.ctx, s.newAccount("dup@example.com"))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("rejects duplicate national ID", func() {
		first := s.newAccount("first@example.com")
		first.NationalID = "12345678-5"
		s.Require().NoError(s.store.Create(s.ctx, first))

		second := s.newAccount("second@example.com")
		second.NationalID = "12345678-5"
		err := s.store.Create(s.ctx, second)
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("update cannot steal another account's email", func() {
		a := s.newAccount("a@example.com")
		b := s.newAccount("b@example.com")
		s.Require().NoError(s.store.Create(s.ctx, a))
		s.Require().NoError(s.store.Create(s.ctx, b))

		b.Email = "a@example.com"
		s.Require().ErrorIs(s.store.Update(s.ctx, b), sentinel.ErrConflict)
	})

	s.Run("update cannot steal another account's national ID", func() {
		a := s.newAccount("rut-a@example.com")
		a.NationalID = "1-9"
		b := s.newAccount("rut-b@example.com")
		s.Require().NoError(s.store.Create(s.ctx, a))
		s.Require().NoError(s.store.Create(s.ctx, b))

		b.NationalID = "1-9"
		s.Require().ErrorIs(s.store.Update(s.ctx, b), sentinel.ErrConflict)
	})
}

func (s *AccountStoreSuite) TestUpdate() {
	s.Run("persists mutable fields and reindexes email", func() {
		account := s.newAccount("old@example.com")
		s.Require().NoError(s.store.Create(s.ctx, account))

		account.Email = "new@example.com"
		account.DisplayName = "Renamed"
		account.PendingEmailChange = &models.PendingEmailChange{
			NewEmail:  "next@example.com",
			Token:     "tok",
			ExpiresAt: time.Now().Add(15 * time.Minute),
		}
		s.Require().NoError(s.store.Update(s.ctx, account))

		_, err := s.store.FindByEmail(s.ctx, "old@example.com")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		found, err := s.store.FindByEmail(s.ctx, "new@example.com")
		s.Require().NoError(err)
		s.Equal("Renamed", found.DisplayName)
		s.Require().NotNil(found.PendingEmailChange)
		s.Equal("next@example.com", found.PendingEmailChange.NewEmail)
	})

	s.Run("returns ErrNotFound for unknown account", func() {
		err := s.store.Update(s.ctx, s.newAccount("ghost@example.com"))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("same account keeps its own email and national ID", func() {
		account := s.newAccount("self@example.com")
		account.NationalID = "6-K"
		s.Require().NoError(s.store.Create(s.ctx, account))

		account.DisplayName = "Still Me"
		s.Require().NoError(s.store.Update(s.ctx, account))
	})
}

func (s *AccountStoreSuite) TestDelete() {
	account := s.newAccount("bye@example.com")
	account.NationalID = "14-0"
	s.Require().NoError(s.store.Create(s.ctx, account))

	s.Require().NoError(s.store.Delete(s.ctx, account.ID))

	_, err := s.store.FindByID(s.ctx, account.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByEmail(s.ctx, "bye@example.com")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByNationalID(s.ctx, "14-0")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Require().ErrorIs(s.store.Delete(s.ctx, account.ID), sentinel.ErrNotFound)
}
