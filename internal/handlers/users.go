package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/linksylabs/linksy-backend/internal/auth"
	"github.com/linksylabs/linksy-backend/internal/models"
	"github.com/linksylabs/linksy-backend/internal/services"
	"github.com/linksylabs/linksy-backend/internal/storage"
	pkgauth "github.com/linksylabs/linksy-backend/pkg/auth"
	httputil "github.com/linksylabs/linksy-backend/pkg/http"
)

// UserHandler handles the authenticated user's profile endpoints.
type UserHandler struct {
	users  *services.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users *services.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

// UpdateProfileRequest represents the request body for updating the profile
type UpdateProfileRequest struct {
	Username string `json:"username" validate:"omitempty,min=3,max=100"`
	Email    string `json:"email" validate:"omitempty,email"`
}

// ChangePasswordRequest represents the request body for changing the password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// ProfileResponse represents the authenticated user's profile
type ProfileResponse struct {
	ID                int64  `json:"id"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	Federated         bool   `json:"federated"`
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`
	CreatedAt         string `json:"created_at"`
}

func (h *UserHandler) profileResponse(r *http.Request, user *models.User) (*ProfileResponse, error) {
	pictureURL, err := h.users.ProfilePictureURL(r.Context(), user.ProfilePictureRef)
	if err != nil {
		return nil, err
	}
	return &ProfileResponse{
		ID:                user.ID,
		Username:          user.Username,
		Email:             user.Email,
		Federated:         user.HasFederatedID(),
		ProfilePictureURL: pictureURL,
		CreatedAt:         user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}, nil
}

// GetMe returns the authenticated user's profile.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	resp, err := h.profileResponse(r, user)
	if err != nil {
		h.logger.Error("failed to build profile response", slog.Any("error", err))
		httputil.WriteInternalError(w, "Failed to load profile")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// UpdateMe changes the username and/or email.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	updated, err := h.users.UpdateProfile(r.Context(), user, req.Username, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUsernameTaken):
			httputil.WriteConflict(w, "Username already exists")
		case errors.Is(err, models.ErrEmailTaken):
			httputil.WriteConflict(w, "Email already exists")
		default:
			h.logger.Error("profile update failed", slog.Any("error", err))
			httputil.WriteInternalError(w, "Failed to update profile")
		}
		return
	}

	resp, err := h.profileResponse(r, updated)
	if err != nil {
		h.logger.Error("failed to build profile response", slog.Any("error", err))
		httputil.WriteInternalError(w, "Failed to load profile")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// ChangePassword replaces the local password.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	err := h.users.ChangePassword(r.Context(), user, req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		var weak *pkgauth.PasswordValidationError
		switch {
		case errors.Is(err, models.ErrPasswordMismatch):
			httputil.WriteBadRequest(w, "New passwords do not match")
		case errors.As(err, &weak):
			httputil.WriteBadRequest(w, "New password does not meet strength requirements")
		case errors.Is(err, models.ErrInvalidPassword):
			httputil.WriteUnauthorized(w, "Current password is incorrect")
		default:
			h.logger.Error("password change failed", slog.Any("error", err))
			httputil.WriteInternalError(w, "Failed to change password")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

// UploadProfilePicture stores a new profile picture from a multipart form.
func (h *UserHandler) UploadProfilePicture(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	file, _, err := r.FormFile("file")
	if err != nil {
		httputil.WriteBadRequest(w, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxImageSize+1))
	if err != nil {
		httputil.WriteBadRequest(w, "Failed to read upload")
		return
	}

	url, err := h.users.SetProfilePicture(r.Context(), user, data)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrImageTooLarge):
			httputil.WriteError(w, http.StatusRequestEntityTooLarge, "IMAGE_TOO_LARGE", "Image exceeds the 5 MB limit")
		case errors.Is(err, storage.ErrUnsupportedImage):
			httputil.WriteBadRequest(w, "Unsupported image type, use JPEG, PNG, or WebP")
		default:
			h.logger.Error("profile picture upload failed", slog.Any("error", err))
			httputil.WriteInternalError(w, "Failed to upload profile picture")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"profile_picture_url": url})
}

// DeleteProfilePicture removes the current profile picture.
func (h *UserHandler) DeleteProfilePicture(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	if err := h.users.DeleteProfilePicture(r.Context(), user); err != nil {
		h.logger.Error("profile picture delete failed", slog.Any("error", err))
		httputil.WriteInternalError(w, "Failed to delete profile picture")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
