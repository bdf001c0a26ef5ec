package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/tourney/internal/api/apierr"
	"github.com/mcoot/tourney/internal/model"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Authenticator resolves a bearer token to the calling identity
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (model.Identity, error)
}

// Auth creates authentication middleware
func Auth(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			identity, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth extracts the identity if a valid token is present but doesn't require it
func OptionalAuth(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token != "" {
				if identity, err := authenticator.Authenticate(r.Context(), token); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), identityContextKey, identity))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractToken reads the bearer token from the Authorization header, or from
// the access_token query parameter for EventSource clients that cannot set headers
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return r.URL.Query().Get("access_token")
}

// GetIdentity returns the authenticated caller from the request context
func GetIdentity(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(model.Identity)
	return identity, ok
}

// MustGetIdentity returns the authenticated caller or panics
func MustGetIdentity(ctx context.Context) model.Identity {
	identity, ok := GetIdentity(ctx)
	if !ok {
		panic("no identity in context - auth middleware not applied?")
	}
	return identity
}
