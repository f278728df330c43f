package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"pymegate/internal/business/models"
)

// Schema is applied at startup when the businesses table is missing.
const Schema = `
CREATE TABLE IF NOT EXISTS businesses (
    id          TEXT PRIMARY KEY,
    owner_rut   TEXT NOT NULL,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    commune     TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL,
    attributes  JSONB,
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS businesses_owner_rut_idx ON businesses (owner_rut);
`

const businessColumns = "id, owner_rut, name, description, commune, status, attributes, created_at, updated_at"

// Postgres stores listings in a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Create(ctx context.Context, business *models.Business) error {
	attrs, err := business.AttributesJSON()
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO businesses (`+businessColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		business.ID, business.OwnerNationalID, business.Name, business.Description,
		business.Commune, string(business.Status), attrs, business.CreatedAt, business.UpdatedAt,
	)
	if err != nil {
		return mapPgxError(err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id string) (*models.Business, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+businessColumns+` FROM businesses WHERE id = $1`, id)
	return scanBusiness(row)
}

func (s *Postgres) ListByOwner(ctx context.Context, ownerNationalID string) ([]*models.Business, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+businessColumns+` FROM businesses
		WHERE owner_rut = $1
		ORDER BY created_at DESC, id`, ownerNationalID)
	if err != nil {
		return nil, fmt.Errorf("query businesses by owner: %w", err)
	}
	defer rows.Close()

	var result []*models.Business
	for rows.Next() {
		business, err := scanBusiness(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, business)
	}
	return result, rows.Err()
}

func (s *Postgres) Update(ctx context.Context, business *models.Business) error {
	attrs, err := business.AttributesJSON()
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE businesses
		SET owner_rut = $2, name = $3, description = $4, commune = $5,
		    status = $6, attributes = $7, updated_at = $8
		WHERE id = $1`,
		business.ID, business.OwnerNationalID, business.Name, business.Description,
		business.Commune, string(business.Status), attrs, business.UpdatedAt,
	)
	if err != nil {
		return mapPgxError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM businesses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete business: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanBusiness(row pgx.Row) (*models.Business, error) {
	var (
		business models.Business
		status   string
		attrs    []byte
	)
	err := row.Scan(
		&business.ID, &business.OwnerNationalID, &business.Name, &business.Description,
		&business.Commune, &status, &attrs, &business.CreatedAt, &business.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan business: %w", err)
	}
	business.Status = models.Status(status)
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &business.Attributes); err != nil {
			return nil, fmt.Errorf("unmarshal attributes: %w", err)
		}
	}
	return &business, nil
}

func mapPgxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return err
}
