package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linksylabs/linksy-backend/internal/models"
)

type stubResolver struct {
	user *models.User
	err  error
}

func (s *stubResolver) ResolveBearer(ctx context.Context, token string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

func echoUserHandler(t *testing.T, want *models.User) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := UserFromContext(r.Context())
		if want == nil {
			assert.Nil(t, got)
		} else {
			assert.Equal(t, want.ID, got.ID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth_ValidToken(t *testing.T) {
	user := &models.User{ID: 7, Username: "grace"}
	handler := RequireAuth(&stubResolver{user: user})(echoUserHandler(t, user))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	handler := RequireAuth(&stubResolver{})(echoUserHandler(t, nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_MalformedHeader(t *testing.T) {
	handler := RequireAuth(&stubResolver{})(echoUserHandler(t, nil))

	for _, header := range []string{"Token abc", "Bearer", "Bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}

func TestRequireAuth_ResolverError(t *testing.T) {
	handler := RequireAuth(&stubResolver{err: models.ErrUnauthorized})(echoUserHandler(t, nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalAuth_NoToken(t *testing.T) {
	handler := OptionalAuth(&stubResolver{})(echoUserHandler(t, nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOptionalAuth_InvalidTokenIsAnonymous(t *testing.T) {
	handler := OptionalAuth(&stubResolver{err: models.ErrUnauthorized})(echoUserHandler(t, nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOptionalAuth_ValidToken(t *testing.T) {
	user := &models.User{ID: 9, Username: "ada"}
	handler := OptionalAuth(&stubResolver{user: user})(echoUserHandler(t, user))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
