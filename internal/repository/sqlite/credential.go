package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/profile"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/database"
)

type credentialRepositoryImpl struct {
	db *database.SQLite
}

// NewCredentialRepository creates the table if needed.
func NewCredentialRepository(db *database.SQLite) (profile.CredentialStore, error) {
	r := &credentialRepositoryImpl{db: db}
	if err := r.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate credentials: %w", err)
	}
	return r, nil
}

func (r *credentialRepositoryImpl) migrate() error {
	_, err := r.db.Exec(`
	CREATE TABLE IF NOT EXISTS kiosk_credentials (
		kiosk_id    TEXT PRIMARY KEY,
		token       TEXT NOT NULL,
		employee_id TEXT NOT NULL DEFAULT '',
		expires_at  DATETIME,
		updated_at  DATETIME NOT NULL
	);`)
	return err
}

func (r *credentialRepositoryImpl) Load(ctx context.Context, kioskID string) (profile.Credentials, error) {
	query := `
		SELECT kiosk_id, token, employee_id, expires_at, updated_at
		FROM kiosk_credentials
		WHERE kiosk_id = ?
	`
	var (
		c         profile.Credentials
		expiresAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, kioskID).Scan(&c.KioskID, &c.Token, &c.EmployeeID, &expiresAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.Credentials{}, profile.ErrNoCredentials
	}
	if err != nil {
		return profile.Credentials{}, fmt.Errorf("failed to load credentials: %w", err)
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		c.ExpiresAt = &t
	}
	return c, nil
}

func (r *credentialRepositoryImpl) Save(ctx context.Context, c profile.Credentials) error {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}
	var expiresAt sql.NullTime
	if c.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: c.ExpiresAt.UTC(), Valid: true}
	}

	query := `
		INSERT INTO kiosk_credentials (kiosk_id, token, employee_id, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(kiosk_id) DO UPDATE SET
			token = excluded.token,
			employee_id = excluded.employee_id,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, c.KioskID, c.Token, c.EmployeeID, expiresAt, c.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

func (r *credentialRepositoryImpl) Clear(ctx context.Context, kioskID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kiosk_credentials WHERE kiosk_id = ?`, kioskID); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}
