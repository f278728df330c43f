//go:build integration

package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"pymegate/internal/account/models"
	"pymegate/internal/account/store"
	"pymegate/pkg/platform/tx"
	"pymegate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.Require().NoError(s.postgres.ApplySchema(context.Background(), store.Schema))
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "accounts"))
}

func newTestAccount(email, rut string) *models.Account {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Account{
		ID:          uuid.NewString(),
		NationalID:  rut,
		DisplayName: "Cuenta de Prueba",
		Email:       email,
		Credential:  "$2a$04$storedhash",
		Role:        models.RoleStandard,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	account := newTestAccount("pg@example.com", "12345678-5")
	s.Require().NoError(s.store.Create(ctx, account))

	byID, err := s.store.FindByID(ctx, account.ID)
	s.Require().NoError(err)
	s.Equal(account.Email, byID.Email)
	s.Equal(account.NationalID, byID.NationalID)

	byEmail, err := s.store.FindByEmail(ctx, "pg@example.com")
	s.Require().NoError(err)
	s.Equal(account.ID, byEmail.ID)

	byRUT, err := s.store.FindByNationalID(ctx, "12345678-5")
	s.Require().NoError(err)
	s.Equal(account.ID, byRUT.ID)
}

func (s *PostgresStoreSuite) TestUniqueConstraints() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, newTestAccount("taken@example.com", "12345678-5")))

	s.ErrorIs(s.store.Create(ctx, newTestAccount("taken@example.com", "")), store.ErrConflict)
	s.ErrorIs(s.store.Create(ctx, newTestAccount("otra@example.com", "12345678-5")), store.ErrConflict)
}

func (s *PostgresStoreSuite) TestUpdatePersistsPendingChange() {
	ctx := context.Background()
	account := newTestAccount("pendiente@example.com", "")
	s.Require().NoError(s.store.Create(ctx, account))

	now := time.Now().UTC().Truncate(time.Microsecond)
	account.PendingEmailChange = &models.PendingEmailChange{
		NewEmail:        "nueva@example.com",
		Token:           "cafe1234",
		ExpiresAt:       now.Add(15 * time.Minute),
		LastRequestedAt: now,
	}
	account.UpdatedAt = now
	s.Require().NoError(s.store.Update(ctx, account))

	found, err := s.store.FindByID(ctx, account.ID)
	s.Require().NoError(err)
	s.Require().NotNil(found.PendingEmailChange)
	s.Equal("nueva@example.com", found.PendingEmailChange.NewEmail)
	s.Equal("cafe1234", found.PendingEmailChange.Token)
	s.WithinDuration(account.PendingEmailChange.ExpiresAt, found.PendingEmailChange.ExpiresAt, time.Millisecond)

	account.PendingEmailChange = nil
	s.Require().NoError(s.store.Update(ctx, account))
	found, err = s.store.FindByID(ctx, account.ID)
	s.Require().NoError(err)
	s.Nil(found.PendingEmailChange)
}

func (s *PostgresStoreSuite) TestTransactionScope() {
	ctx := context.Background()

	var failed = fmt.Errorf("boom")
	err := tx.Run(ctx, s.postgres.DB, func(ctx context.Context) error {
		if err := s.store.Create(ctx, newTestAccount("atomica@example.com", "")); err != nil {
			return err
		}
		return failed
	})
	s.ErrorIs(err, failed)
	_, err = s.store.FindByEmail(ctx, "atomica@example.com")
	s.ErrorIs(err, store.ErrNotFound, "rolled-back create must not be visible")

	account := newTestAccount("comprometida@example.com", "")
	s.Require().NoError(tx.Run(ctx, s.postgres.DB, func(ctx context.Context) error {
		if err := s.store.Create(ctx, account); err != nil {
			return err
		}
		account.DisplayName = "Dentro de la Transacción"
		return s.store.Update(ctx, account)
	}))

	found, err := s.store.FindByEmail(ctx, "comprometida@example.com")
	s.Require().NoError(err)
	s.Equal("Dentro de la Transacción", found.DisplayName)
}

func (s *PostgresStoreSuite) TestDelete() {
	ctx := context.Background()
	account := newTestAccount("borrar@example.com", "")
	s.Require().NoError(s.store.Create(ctx, account))

	s.Require().NoError(s.store.Delete(ctx, account.ID))
	_, err := s.store.FindByID(ctx, account.ID)
	s.ErrorIs(err, store.ErrNotFound)

	s.ErrorIs(s.store.Delete(ctx, account.ID), store.ErrNotFound)
	s.ErrorIs(s.store.Update(ctx, account), store.ErrNotFound)
}
