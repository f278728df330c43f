//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"pymegate/internal/business/models"
	"pymegate/internal/business/store"
	"pymegate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	pool     *pgxpool.Pool
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	ctx := context.Background()
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.Require().NoError(s.postgres.ApplySchema(ctx, store.Schema))

	pool, err := pgxpool.New(ctx, s.postgres.URL)
	s.Require().NoError(err)
	s.pool = pool
	s.store = store.NewPostgres(pool)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "businesses"))
}

func newTestBusiness(owner string) *models.Business {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Business{
		ID:              uuid.NewString(),
		OwnerNationalID: owner,
		Name:            "Negocio de Prueba",
		Commune:         "Providencia",
		Status:          models.StatusPending,
		Attributes: map[string]models.Attribute{
			"payment_methods": {Kind: models.KindList, List: []string{"cash", "debit"}},
			"opening_hours":   {Kind: models.KindMap, Map: map[string]string{"mon": "9-18"}},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *PostgresStoreSuite) TestRoundTripWithAttributes() {
	ctx := context.Background()
	business := newTestBusiness("12345678-5")
	s.Require().NoError(s.store.Create(ctx, business))

	found, err := s.store.FindByID(ctx, business.ID)
	s.Require().NoError(err)
	s.Equal(business.Name, found.Name)
	s.Equal(models.StatusPending, found.Status)
	s.Require().Len(found.Attributes, 2)
	s.Equal([]string{"cash", "debit"}, found.Attributes["payment_methods"].List)
	s.Equal("9-18", found.Attributes["opening_hours"].Map["mon"])
}

func (s *PostgresStoreSuite) TestListByOwner() {
	ctx := context.Background()
	first := newTestBusiness("12345678-5")
	second := newTestBusiness("12345678-5")
	second.CreatedAt = first.CreatedAt.Add(time.Hour)
	other := newTestBusiness("7775593-4")

	for _, b := range []*models.Business{first, second, other} {
		s.Require().NoError(s.store.Create(ctx, b))
	}

	owned, err := s.store.ListByOwner(ctx, "12345678-5")
	s.Require().NoError(err)
	s.Require().Len(owned, 2)
	s.Equal(second.ID, owned[0].ID)
	s.Equal(first.ID, owned[1].ID)
}

func (s *PostgresStoreSuite) TestUpdateAndDelete() {
	ctx := context.Background()
	business := newTestBusiness("12345678-5")
	s.Require().NoError(s.store.Create(ctx, business))

	business.Status = models.StatusPublished
	business.Attributes = nil
	s.Require().NoError(s.store.Update(ctx, business))

	found, err := s.store.FindByID(ctx, business.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPublished, found.Status)
	s.Nil(found.Attributes)

	s.Require().NoError(s.store.Delete(ctx, business.ID))
	s.ErrorIs(s.store.Delete(ctx, business.ID), store.ErrNotFound)

	missing := newTestBusiness("1-9")
	s.ErrorIs(s.store.Update(ctx, missing), store.ErrNotFound)
}
