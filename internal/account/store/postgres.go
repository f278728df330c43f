package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"pymegate/internal/account/models"
	"pymegate/pkg/platform/tx"
)

// Schema is the DDL the Postgres store expects. The unique indexes on email
// and national_id are load-bearing: they resolve the races that
// service-level existence checks deliberately let through.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id                     UUID PRIMARY KEY,
    national_id            TEXT UNIQUE,
    display_name           TEXT NOT NULL,
    email                  TEXT NOT NULL UNIQUE,
    credential             TEXT NOT NULL,
    role                   TEXT NOT NULL,
    pending_new_email      TEXT,
    pending_token          TEXT,
    pending_expires_at     TIMESTAMPTZ,
    pending_last_requested TIMESTAMPTZ,
    created_at             TIMESTAMPTZ NOT NULL,
    updated_at             TIMESTAMPTZ NOT NULL
);
`

// Postgres persists accounts through database/sql with the pq driver.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns the transaction carried by ctx when a caller has opened one,
// otherwise the pool. Lets a caller group account writes atomically without
// the store growing a transaction API.
func (s *Postgres) q(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

const accountColumns = `id, national_id, display_name, email, credential, role,
	pending_new_email, pending_token, pending_expires_at, pending_last_requested,
	created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, account *models.Account) error {
	pending := pendingColumns(account.PendingEmailChange)
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		account.ID, nullString(account.NationalID), account.DisplayName,
		account.Email, account.Credential, string(account.Role),
		pending.newEmail, pending.token, pending.expiresAt, pending.lastRequested,
		account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return mapPQError("create account", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id string) (*models.Account, error) {
	return s.findOne(ctx, "id = $1", id)
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.findOne(ctx, "email = $1", email)
}

func (s *Postgres) FindByNationalID(ctx context.Context, nationalID string) (*models.Account, error) {
	return s.findOne(ctx, "national_id = $1", nationalID)
}

func (s *Postgres) Update(ctx context.Context, account *models.Account) error {
	pending := pendingColumns(account.PendingEmailChange)
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE accounts SET
			national_id = $2, display_name = $3, email = $4, credential = $5,
			role = $6, pending_new_email = $7, pending_token = $8,
			pending_expires_at = $9, pending_last_requested = $10, updated_at = $11
		WHERE id = $1`,
		account.ID, nullString(account.NationalID), account.DisplayName,
		account.Email, account.Credential, string(account.Role),
		pending.newEmail, pending.token, pending.expiresAt, pending.lastRequested,
		account.UpdatedAt,
	)
	if err != nil {
		return mapPQError("update account", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, id string) error {
	res, err := s.q(ctx).ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) findOne(ctx context.Context, where string, arg any) (*models.Account, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE `+where, arg)

	var (
		account       models.Account
		nationalID    sql.NullString
		role          string
		newEmail      sql.NullString
		token         sql.NullString
		expiresAt     sql.NullTime
		lastRequested sql.NullTime
	)
	err := row.Scan(
		&account.ID, &nationalID, &account.DisplayName, &account.Email,
		&account.Credential, &role, &newEmail, &token, &expiresAt,
		&lastRequested, &account.CreatedAt, &account.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}

	account.NationalID = nationalID.String
	account.Role = models.Role(role)
	if newEmail.Valid {
		account.PendingEmailChange = &models.PendingEmailChange{
			NewEmail:        newEmail.String,
			Token:           token.String,
			ExpiresAt:       expiresAt.Time,
			LastRequestedAt: lastRequested.Time,
		}
	}
	return &account, nil
}

type pendingCols struct {
	newEmail      sql.NullString
	token         sql.NullString
	expiresAt     sql.NullTime
	lastRequested sql.NullTime
}

func pendingColumns(p *models.PendingEmailChange) pendingCols {
	if p == nil {
		return pendingCols{}
	}
	return pendingCols{
		newEmail:      sql.NullString{String: p.NewEmail, Valid: true},
		token:         sql.NullString{String: p.Token, Valid: true},
		expiresAt:     nullTime(p.ExpiresAt),
		lastRequested: nullTime(p.LastRequestedAt),
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// mapPQError translates Postgres unique violations (class 23505) into
// ErrConflict so services see the same outcome as with the memory store.
func mapPQError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}
