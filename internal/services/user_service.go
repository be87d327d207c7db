package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linksylabs/linksy-backend/internal/models"
	"github.com/linksylabs/linksy-backend/internal/storage"
	"github.com/linksylabs/linksy-backend/pkg/auth"
)

// ObjectStorage defines the object-store operations the services need.
type ObjectStorage interface {
	Upload(ctx context.Context, key, contentType string, data []byte) error
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string) (string, error)
}

// UserService handles profile reads and writes for the authenticated user.
type UserService struct {
	repo    UserRepository
	storage ObjectStorage
	logger  *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(repo UserRepository, store ObjectStorage, logger *slog.Logger) *UserService {
	return &UserService{
		repo:    repo,
		storage: store,
		logger:  logger,
	}
}

// ProfilePictureURL presigns the given ref, or returns "" when there is none.
func (s *UserService) ProfilePictureURL(ctx context.Context, ref *string) (string, error) {
	if ref == nil || *ref == "" {
		return "", nil
	}
	url, err := s.storage.PresignGet(ctx, *ref)
	if err != nil {
		return "", fmt.Errorf("failed to presign profile picture: %w", err)
	}
	return url, nil
}

// UpdateProfile changes username and/or email, enforcing local uniqueness.
// Empty fields keep their current value.
func (s *UserService) UpdateProfile(ctx context.Context, user *models.User, username, email string) (*models.User, error) {
	if username == "" {
		username = user.Username
	}
	if email == "" {
		email = user.Email
	}

	if username != user.Username {
		if _, err := s.repo.GetByUsername(ctx, username); err == nil {
			return nil, models.ErrUsernameTaken
		} else if !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
	}
	if email != user.Email {
		if _, err := s.repo.GetByEmail(ctx, email); err == nil {
			return nil, models.ErrEmailTaken
		} else if !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
	}

	updated, err := s.repo.UpdateProfile(ctx, user.ID, username, email)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return updated, nil
}

// ChangePassword verifies the current password against the stored hash and
// replaces it. A row with no local credential rejects every current password.
func (s *UserService) ChangePassword(ctx context.Context, user *models.User, current, newPassword, confirm string) error {
	if newPassword != confirm {
		return models.ErrPasswordMismatch
	}

	if err := auth.ValidatePassword(newPassword); err != nil {
		return err
	}

	if err := auth.ComparePassword(user.PasswordHash, current); err != nil {
		return models.ErrInvalidPassword
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("password changed", slog.Int64("user_id", user.ID))
	return nil
}

// SetProfilePicture validates and stores the image, replaces the user's ref,
// and removes the previous object.
func (s *UserService) SetProfilePicture(ctx context.Context, user *models.User, data []byte) (string, error) {
	ext, contentType, err := storage.ValidateImage(data)
	if err != nil {
		return "", err
	}

	key := storage.ProfilePictureKey(user.ID, ext)
	if err := s.storage.Upload(ctx, key, contentType, data); err != nil {
		return "", err
	}

	if err := s.repo.UpdateProfilePictureRef(ctx, user.ID, &key); err != nil {
		return "", fmt.Errorf("failed to save profile picture ref: %w", err)
	}

	if user.ProfilePictureRef != nil && *user.ProfilePictureRef != "" {
		if err := s.storage.Delete(ctx, *user.ProfilePictureRef); err != nil {
			s.logger.Warn("failed to delete previous profile picture",
				slog.String("key", *user.ProfilePictureRef),
				slog.Any("error", err))
		}
	}

	return s.ProfilePictureURL(ctx, &key)
}

// DeleteProfilePicture clears the ref and removes the object.
func (s *UserService) DeleteProfilePicture(ctx context.Context, user *models.User) error {
	if user.ProfilePictureRef == nil || *user.ProfilePictureRef == "" {
		return nil
	}

	if err := s.repo.UpdateProfilePictureRef(ctx, user.ID, nil); err != nil {
		return fmt.Errorf("failed to clear profile picture ref: %w", err)
	}

	if err := s.storage.Delete(ctx, *user.ProfilePictureRef); err != nil {
		s.logger.Warn("failed to delete profile picture object",
			slog.String("key", *user.ProfilePictureRef),
			slog.Any("error", err))
	}
	return nil
}
