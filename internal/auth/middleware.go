package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/linksylabs/linksy-backend/internal/models"
	pkghttp "github.com/linksylabs/linksy-backend/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing the resolved user in context
	UserContextKey contextKey = "user"
)

// BearerResolver resolves a bearer token to a local user. Implemented by the
// auth facade; which path it takes (federated or legacy) is fixed at startup.
type BearerResolver interface {
	ResolveBearer(ctx context.Context, token string) (*models.User, error)
}

// RequireAuth rejects requests without a valid bearer token and injects the
// resolved user into the request context.
func RequireAuth(resolver BearerResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				pkghttp.WriteUnauthorized(w, "missing or malformed authorization header")
				return
			}

			user, err := resolver.ResolveBearer(r.Context(), token)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "Could not validate user")
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth resolves a bearer token when one is present but lets anonymous
// requests through. An invalid token is treated as anonymous rather than an
// error; endpoints that allow public reads use this.
func OptionalAuth(resolver BearerResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user, err := resolver.ResolveBearer(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the authenticated user, or nil on anonymous requests.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(UserContextKey).(*models.User)
	return user
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}

	return parts[1], true
}
