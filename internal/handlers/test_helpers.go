package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linksylabs/linksy-backend/internal/auth"
	"github.com/linksylabs/linksy-backend/internal/models"
	pkghttp "github.com/linksylabs/linksy-backend/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithUserContext attaches an authenticated user to the request context
func WithUserContext(req *http.Request, user *models.User) *http.Request {
	ctx := context.WithValue(req.Context(), auth.UserContextKey, user)
	return req.WithContext(ctx)
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthenticator implements services.Authenticator for testing
type MockAuthenticator struct {
	RegisterFunc              func(ctx context.Context, profile models.RegistrationProfile) (*models.RegistrationResult, error)
	LoginFunc                 func(ctx context.Context, username, password string) (*models.TokenSet, error)
	ResolveBearerFunc         func(ctx context.Context, token string) (*models.User, error)
	ResolveBearerOptionalFunc func(ctx context.Context, token string) (*models.User, error)
}

func (m *MockAuthenticator) Register(ctx context.Context, profile models.RegistrationProfile) (*models.RegistrationResult, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, profile)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthenticator) Login(ctx context.Context, username, password string) (*models.TokenSet, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, username, password)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthenticator) ResolveBearer(ctx context.Context, token string) (*models.User, error) {
	if m.ResolveBearerFunc != nil {
		return m.ResolveBearerFunc(ctx, token)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthenticator) ResolveBearerOptional(ctx context.Context, token string) (*models.User, error) {
	if m.ResolveBearerOptionalFunc != nil {
		return m.ResolveBearerOptionalFunc(ctx, token)
	}
	return nil, nil
}
