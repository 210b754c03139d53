package middleware

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/handler/http/response"
)

// TokenSource yields the bearer credential the kiosk acts with.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// CredentialRequired rejects requests while the kiosk holds no usable
// credential, either from the session hand-off or the persisted store.
func CredentialRequired(tokens TokenSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, err := tokens.Token(r.Context())
			if err != nil {
				response.HandleError(w, attendance.ErrAuthMissing.Wrap(err))
				return
			}
			if token == "" {
				response.HandleError(w, attendance.ErrAuthMissing)
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}
