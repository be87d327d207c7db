package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/linksylabs/linksy-backend/internal/idp"
	"github.com/linksylabs/linksy-backend/internal/models"
	"github.com/linksylabs/linksy-backend/internal/services"
	pkgauth "github.com/linksylabs/linksy-backend/pkg/auth"
	httputil "github.com/linksylabs/linksy-backend/pkg/http"
)

// AuthHandler handles registration and login. It is mode-agnostic: the
// Authenticator wired at startup decides whether credentials go to the
// identity provider or stay local.
type AuthHandler struct {
	authenticator services.Authenticator
	logger        *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authenticator services.Authenticator, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authenticator: authenticator,
		logger:        logger,
	}
}

// RegisterRequest represents the request body for creating an account
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	FirstName   string `json:"first_name" validate:"required,min=1,max=100"`
	LastName    string `json:"last_name" validate:"required,min=1,max=100"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,e164"`
}

// RegisterResponse reports the identifiers assigned to the new account.
type RegisterResponse struct {
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
	FederatedID string `json:"federated_id,omitempty"`
}

// TokenResponse is the login response body.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// Register creates a new account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.authenticator.Register(r.Context(), models.RegistrationProfile{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DateOfBirth: req.DateOfBirth,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		var conflict *idp.ConflictError
		var weak *pkgauth.PasswordValidationError
		switch {
		case errors.As(err, &weak):
			httputil.WriteBadRequest(w, "Password does not meet strength requirements")
		case errors.Is(err, models.ErrEmailTaken):
			httputil.WriteBadRequest(w, "Email already registered")
		case errors.Is(err, models.ErrUsernameTaken), errors.Is(err, models.ErrConflict):
			httputil.WriteBadRequest(w, "Account already exists")
		case errors.As(err, &conflict):
			httputil.WriteBadRequest(w, conflictMessage(conflict))
		case errors.Is(err, idp.ErrUnavailable):
			httputil.WriteError(w, http.StatusInternalServerError, "IDP_UNAVAILABLE", "Upstream identity provider unavailable")
		default:
			h.logger.Error("registration failed", slog.Any("error", err))
			httputil.WriteInternalError(w, "Registration failed")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, RegisterResponse{
		UserID:      result.UserID,
		Username:    result.Username,
		FederatedID: result.FederatedID,
	})
}

func conflictMessage(conflict *idp.ConflictError) string {
	switch conflict.Field {
	case "email":
		return "Email already registered with identity provider"
	case "username":
		return "Username already registered with identity provider"
	default:
		return "Account already exists in identity provider"
	}
}

// Token exchanges a username and password for a bearer token. The body is
// form-encoded for OAuth2 password-grant compatibility.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.WriteBadRequest(w, "Invalid form body")
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		httputil.WriteBadRequest(w, "username and password are required")
		return
	}

	tokens, err := h.authenticator.Login(r.Context(), username, password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidCredentials):
			httputil.WriteUnauthorized(w, "Incorrect username or password")
		case errors.Is(err, idp.ErrUnavailable):
			httputil.WriteError(w, http.StatusInternalServerError, "IDP_UNAVAILABLE", "Upstream identity provider unavailable")
		default:
			h.logger.Error("login failed", slog.Any("error", err))
			httputil.WriteInternalError(w, "Login failed")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken:  tokens.AccessToken,
		TokenType:    "bearer",
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
	})
}
