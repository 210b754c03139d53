package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/profile"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/database"
)

func newStore(t *testing.T) profile.CredentialStore {
	t.Helper()
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "kiosk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewCredentialRepository(db)
	require.NoError(t, err)
	return store
}

func TestCredentialRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.Load(ctx, "kiosk-1")
	assert.ErrorIs(t, err, profile.ErrNoCredentials)

	exp := time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, profile.Credentials{KioskID: "kiosk-1", Token: "tok-1", EmployeeID: "emp-1", ExpiresAt: &exp}))

	c, err := store.Load(ctx, "kiosk-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", c.Token)
	assert.Equal(t, "emp-1", c.EmployeeID)
	require.NotNil(t, c.ExpiresAt)
	assert.True(t, c.ExpiresAt.Equal(exp))

	require.NoError(t, store.Save(ctx, profile.Credentials{KioskID: "kiosk-1", Token: "tok-2"}))
	c, err = store.Load(ctx, "kiosk-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", c.Token)
	assert.Empty(t, c.EmployeeID)
	assert.Nil(t, c.ExpiresAt)

	require.NoError(t, store.Clear(ctx, "kiosk-1"))
	_, err = store.Load(ctx, "kiosk-1")
	assert.ErrorIs(t, err, profile.ErrNoCredentials)
}
