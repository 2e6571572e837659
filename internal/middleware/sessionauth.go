// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/atinyakov/TodoKeeper/internal/auth"
	"github.com/atinyakov/TodoKeeper/internal/models"
)

type ctxKey string

const identityKey ctxKey = "identity"

// Verifier checks a session token and returns the identity it carries.
type Verifier interface {
	Verify(token string) (models.Identity, error)
}

// SessionAuth is a middleware that requires a valid session cookie.
//
// The token is read from the auth cookie and checked by v. On success the
// identity is stored in the request context for downstream handlers;
// otherwise the request is rejected with 401 before reaching them.
func SessionAuth(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := v.Verify(auth.TokenFromRequest(r))
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext extracts the identity stored by SessionAuth.
// ok is false if the request was not authenticated.
func IdentityFromContext(ctx context.Context) (id models.Identity, ok bool) {
	id, ok = ctx.Value(identityKey).(models.Identity)
	return id, ok
}
