package profile

import (
	"context"
	"time"
)

// Session is the explicit session state handed to the kiosk by the UI shell.
// It is replaced as a whole; nothing mutates it in place.
type Session struct {
	EmployeeID       string `json:"employeeId"`
	Token            string `json:"-"`
	Name             string `json:"name"`
	FaceReferenceURL string `json:"faceReferenceUrl"`
	Department       string `json:"department"`
	TeamID           string `json:"teamId"`
}

// Credentials is the persisted client-side credential.
type Credentials struct {
	KioskID    string
	Token      string
	EmployeeID string
	ExpiresAt  *time.Time
	UpdatedAt  time.Time
}

// Expired reports whether the credential has a known expiry in the past.
func (c Credentials) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// CredentialStore persists the bearer credential per kiosk.
type CredentialStore interface {
	Load(ctx context.Context, kioskID string) (Credentials, error)
	Save(ctx context.Context, c Credentials) error
	Clear(ctx context.Context, kioskID string) error
}

// Profile is the employee record returned by the HR backend.
type Profile struct {
	ID           string `json:"id"`
	EmployeeID   string `json:"employeeId"`
	FullName     string `json:"fullName"`
	Department   string `json:"department"`
	TeamID       string `json:"teamId"`
	PhotoURL     string `json:"photoUrl"`
	ProfilePhoto string `json:"profilePhoto"`
	AvatarURL    string `json:"avatar"`
}

// FaceReference returns the first non-empty photo field.
func (p Profile) FaceReference() string {
	for _, u := range []string{p.PhotoURL, p.ProfilePhoto, p.AvatarURL} {
		if u != "" {
			return u
		}
	}
	return ""
}

// ProfileFetcher reads employee profiles from the HR backend.
type ProfileFetcher interface {
	GetProfile(ctx context.Context, employeeID string) (Profile, error)
}

// Identity is what the resolver determined for the current employee.
type Identity struct {
	EmployeeID string
	Name       string
	Department string
	TeamID     string
	Token      string
}

// Resolver determines the current employee and their face reference.
type Resolver interface {
	Identity(ctx context.Context) (Identity, error)
	FaceReference(ctx context.Context, employeeID string) (string, error)
}
