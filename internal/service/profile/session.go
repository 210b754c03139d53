package profile

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/profile"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/jwt"
)

// SessionManager owns the explicit session handed over by the UI shell and
// the credential persisted for this kiosk. The session is replaced as a
// whole and never mutated in place.
type SessionManager struct {
	kioskID string
	store   profile.CredentialStore
	tokens  *jwt.Parser
	now     func() time.Time

	mu      sync.RWMutex
	session *profile.Session
}

func NewSessionManager(kioskID string, store profile.CredentialStore, tokens *jwt.Parser) *SessionManager {
	return &SessionManager{kioskID: kioskID, store: store, tokens: tokens, now: time.Now}
}

// SetSession installs s and persists its credential. An empty employee id
// is taken from the token's employee_id claim.
func (m *SessionManager) SetSession(ctx context.Context, s profile.Session) error {
	s.Token = strings.TrimSpace(s.Token)
	if s.Token == "" {
		return attendance.ErrAuthMissing
	}

	claims, err := m.tokens.Parse(s.Token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return attendance.ErrAuthMissing.Wrap(err).WithMessage("Your session has expired, sign in again")
		}
		return attendance.ErrAuthMissing.Wrap(err).WithMessage("Your sign-in token is not valid")
	}
	if s.EmployeeID == "" {
		s.EmployeeID = claims.EmployeeID
	}
	if s.EmployeeID == "" {
		return attendance.ErrAuthMissing.Wrap(profile.ErrNoEmployee).WithMessage("Your account is not linked to an employee")
	}

	err = m.store.Save(ctx, profile.Credentials{
		KioskID:    m.kioskID,
		Token:      s.Token,
		EmployeeID: s.EmployeeID,
		ExpiresAt:  claims.ExpiresAt,
		UpdatedAt:  m.now(),
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.session = &s
	m.mu.Unlock()

	slog.Info("Session set", "employee_id", s.EmployeeID)
	return nil
}

// ClearSession drops the session and the persisted credential.
func (m *SessionManager) ClearSession(ctx context.Context) error {
	m.mu.Lock()
	m.session = nil
	m.mu.Unlock()

	if err := m.store.Clear(ctx, m.kioskID); err != nil {
		return err
	}
	slog.Info("Session cleared")
	return nil
}

// Session returns a copy of the current session.
func (m *SessionManager) Session() (profile.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return profile.Session{}, false
	}
	return *m.session, true
}

// Token returns the bearer credential: the session's, else the persisted one.
// It satisfies oauth.TokenFunc.
func (m *SessionManager) Token(ctx context.Context) (string, error) {
	if s, ok := m.Session(); ok && s.Token != "" {
		return s.Token, nil
	}
	creds, err := m.credentials(ctx)
	if err != nil {
		return "", err
	}
	return creds.Token, nil
}

// credentials loads the persisted credential, rejecting an expired one.
func (m *SessionManager) credentials(ctx context.Context) (profile.Credentials, error) {
	creds, err := m.store.Load(ctx, m.kioskID)
	if err != nil {
		return profile.Credentials{}, err
	}
	if creds.Token == "" || creds.Expired(m.now()) {
		return profile.Credentials{}, profile.ErrNoCredentials
	}
	return creds, nil
}

// Identity resolves the current employee from the session, falling back to
// the persisted credential and then to the token's claims.
func (m *SessionManager) Identity(ctx context.Context) (profile.Identity, error) {
	if s, ok := m.Session(); ok && s.EmployeeID != "" {
		id := profile.Identity{
			EmployeeID: s.EmployeeID,
			Name:       s.Name,
			Department: s.Department,
			TeamID:     s.TeamID,
			Token:      s.Token,
		}
		if id.Token == "" {
			if creds, err := m.credentials(ctx); err == nil {
				id.Token = creds.Token
			}
		}
		if id.Token == "" {
			return id, attendance.ErrAuthMissing
		}
		return id, nil
	}

	creds, err := m.credentials(ctx)
	if err != nil {
		if errors.Is(err, profile.ErrNoCredentials) {
			return profile.Identity{}, attendance.ErrAuthMissing.Wrap(err)
		}
		return profile.Identity{}, attendance.ErrAuthMissing.Wrap(err).WithMessage("Stored sign-in could not be read")
	}

	id := profile.Identity{EmployeeID: creds.EmployeeID, Token: creds.Token}
	if id.EmployeeID == "" {
		if claims, err := m.tokens.Parse(creds.Token); err == nil {
			id.EmployeeID = claims.EmployeeID
		}
	}
	if id.EmployeeID == "" {
		return profile.Identity{}, attendance.ErrAuthMissing.Wrap(profile.ErrNoEmployee).WithMessage("Your account is not linked to an employee")
	}
	return id, nil
}
