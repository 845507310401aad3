package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/greenmarket/storefront/internal/auth"
)

// SessionCookie carries the opaque session token.
const SessionCookie = "gm_session"

// SessionResolver turns a session token into an identity. Satisfied by
// *auth.SessionStore.
type SessionResolver interface {
	Get(ctx context.Context, token string) (auth.Identity, error)
}

// ResolveIdentity attaches the caller's identity to the request context when a
// valid session cookie is present. Anonymous requests pass through untouched;
// the guards below decide who gets past.
func ResolveIdentity(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
				id, err := sessions.Get(r.Context(), c.Value)
				switch {
				case err == nil:
					r = r.WithContext(auth.WithIdentity(r.Context(), id))
				case !errors.Is(err, auth.ErrNotAuthenticated):
					respondInternal(w, r, err)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.IdentityFrom(r.Context()); !ok {
			respondError(w, http.StatusUnauthorized, auth.ErrNotAuthenticated.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFrom(r.Context())
		if !ok {
			respondError(w, http.StatusUnauthorized, auth.ErrNotAuthenticated.Error())
			return
		}
		if !id.IsAdmin() {
			respondError(w, http.StatusForbidden, auth.ErrNotAuthorized.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}
