package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/profile"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/database"
)

// Schema is applied by Migrate; kept idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS kiosk_credentials (
	kiosk_id    TEXT PRIMARY KEY,
	token       TEXT NOT NULL,
	employee_id TEXT NOT NULL DEFAULT '',
	expires_at  TIMESTAMPTZ,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS kiosk_sessions (
	id          BIGSERIAL PRIMARY KEY,
	kiosk_id    TEXT NOT NULL,
	employee_id TEXT NOT NULL DEFAULT '',
	event       TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_kiosk_sessions_kiosk ON kiosk_sessions(kiosk_id, created_at);
`

func Migrate(ctx context.Context, db *database.DB) error {
	_, err := db.Exec(ctx, Schema)
	return err
}

type credentialRepositoryImpl struct {
	db *database.DB
}

// NewCredentialRepository returns a credential store shared by a kiosk fleet.
// Every save and clear is also recorded in kiosk_sessions.
func NewCredentialRepository(db *database.DB) profile.CredentialStore {
	return &credentialRepositoryImpl{db: db}
}

func (r *credentialRepositoryImpl) Load(ctx context.Context, kioskID string) (profile.Credentials, error) {
	q := GetQuerier(ctx, r.db)
	query := `
		SELECT kiosk_id, token, employee_id, expires_at, updated_at
		FROM kiosk_credentials
		WHERE kiosk_id = $1
	`
	var c profile.Credentials
	err := q.QueryRow(ctx, query, kioskID).Scan(&c.KioskID, &c.Token, &c.EmployeeID, &c.ExpiresAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return profile.Credentials{}, profile.ErrNoCredentials
	}
	if err != nil {
		return profile.Credentials{}, fmt.Errorf("failed to load credentials: %w", err)
	}
	return c, nil
}

func (r *credentialRepositoryImpl) Save(ctx context.Context, c profile.Credentials) error {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}
	return WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)
		query := `
			INSERT INTO kiosk_credentials (kiosk_id, token, employee_id, expires_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (kiosk_id) DO UPDATE SET
				token = EXCLUDED.token,
				employee_id = EXCLUDED.employee_id,
				expires_at = EXCLUDED.expires_at,
				updated_at = EXCLUDED.updated_at
		`
		if _, err := q.Exec(ctx, query, c.KioskID, c.Token, c.EmployeeID, c.ExpiresAt, c.UpdatedAt.UTC()); err != nil {
			return fmt.Errorf("failed to save credentials: %w", err)
		}
		return r.logEvent(ctx, c.KioskID, c.EmployeeID, "signed_in")
	})
}

func (r *credentialRepositoryImpl) Clear(ctx context.Context, kioskID string) error {
	return WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)
		var employeeID string
		err := q.QueryRow(ctx, `DELETE FROM kiosk_credentials WHERE kiosk_id = $1 RETURNING employee_id`, kioskID).Scan(&employeeID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to clear credentials: %w", err)
		}
		return r.logEvent(ctx, kioskID, employeeID, "signed_out")
	})
}

func (r *credentialRepositoryImpl) logEvent(ctx context.Context, kioskID, employeeID, event string) error {
	q := GetQuerier(ctx, r.db)
	_, err := q.Exec(ctx, `INSERT INTO kiosk_sessions (kiosk_id, employee_id, event) VALUES ($1, $2, $3)`, kioskID, employeeID, event)
	if err != nil {
		return fmt.Errorf("failed to record session event: %w", err)
	}
	return nil
}
