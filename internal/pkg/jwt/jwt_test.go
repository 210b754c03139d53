package jwt

import (
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issue(t *testing.T, secret string, claims map[string]any) string {
	t.Helper()
	_, token, err := jwtauth.New("HS256", []byte(secret), nil).Encode(claims)
	require.NoError(t, err)
	return token
}

func TestParserUnverified(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	token := issue(t, "backend-secret", map[string]any{
		"user_id":     "u-1",
		"employee_id": "emp-7",
		"company_id":  "c-1",
		"type":        "access",
		"exp":         exp,
	})

	claims, err := NewParser("").Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "emp-7", claims.EmployeeID)
	assert.Equal(t, "u-1", claims.UserID)
	require.NotNil(t, claims.ExpiresAt)
	assert.Equal(t, exp, claims.ExpiresAt.Unix())
}

func TestParserVerified(t *testing.T) {
	token := issue(t, "right", map[string]any{"employee_id": "emp-7", "type": "access"})

	_, err := NewParser("wrong").Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims, err := NewParser("right").Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "emp-7", claims.EmployeeID)
	assert.Nil(t, claims.ExpiresAt)
}

func TestParserRejects(t *testing.T) {
	p := NewParser("")

	_, err := p.Parse("")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = p.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	refresh := issue(t, "s", map[string]any{"user_id": "u-1", "type": "refresh"})
	_, err = p.Parse(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := issue(t, "s", map[string]any{"employee_id": "emp-7", "exp": time.Now().Add(-time.Minute).Unix()})
	_, err = p.Parse(expired)
	assert.ErrorIs(t, err, ErrTokenExpired)
}
