package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linksylabs/linksy-backend/internal/models"
	"github.com/linksylabs/linksy-backend/internal/storage"
	"github.com/linksylabs/linksy-backend/pkg/auth"
)

// minimal valid PNG header, enough for content-type sniffing
var pngBytes = []byte("\x89PNG\r\n\x1a\n" + "0000000000000000")

func newTestUserService(repo UserRepository, store ObjectStorage) *UserService {
	if store == nil {
		store = &MockObjectStorage{}
	}
	return NewUserService(repo, store, testLogger())
}

func TestUpdateProfile_UsernameTaken(t *testing.T) {
	repo := &MockUserRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			return &models.User{ID: 99, Username: username}, nil
		},
	}
	user := &models.User{ID: 1, Username: "ada.lovelace", Email: "ada@example.com"}

	_, err := newTestUserService(repo, nil).UpdateProfile(context.Background(), user, "grace.hopper", "")
	assert.ErrorIs(t, err, models.ErrUsernameTaken)
}

func TestUpdateProfile_KeepsUnchangedFields(t *testing.T) {
	repo := &MockUserRepository{
		UpdateProfileFunc: func(ctx context.Context, userID int64, username, email string) (*models.User, error) {
			assert.Equal(t, "ada.lovelace", username)
			assert.Equal(t, "new@example.com", email)
			return &models.User{ID: userID, Username: username, Email: email}, nil
		},
	}
	user := &models.User{ID: 1, Username: "ada.lovelace", Email: "ada@example.com"}

	updated, err := newTestUserService(repo, nil).UpdateProfile(context.Background(), user, "", "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)
}

func TestChangePassword_ConfirmMismatch(t *testing.T) {
	user := &models.User{ID: 1, PasswordHash: quickHash(t, "OldPass123")}

	err := newTestUserService(&MockUserRepository{}, nil).
		ChangePassword(context.Background(), user, "OldPass123", "NewPass123", "Different123")
	assert.ErrorIs(t, err, models.ErrPasswordMismatch)
}

func TestChangePassword_RejectsWeakPassword(t *testing.T) {
	user := &models.User{ID: 1, PasswordHash: quickHash(t, "OldPass123")}

	err := newTestUserService(&MockUserRepository{}, nil).
		ChangePassword(context.Background(), user, "OldPass123", "password123", "password123")

	var weak *auth.PasswordValidationError
	assert.ErrorAs(t, err, &weak)
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	user := &models.User{ID: 1, PasswordHash: quickHash(t, "OldPass123")}

	err := newTestUserService(&MockUserRepository{}, nil).
		ChangePassword(context.Background(), user, "wrong", "NewPass123", "NewPass123")
	assert.ErrorIs(t, err, models.ErrInvalidPassword)
}

func TestChangePassword_NoLocalCredential(t *testing.T) {
	// Federated mirror rows have an empty hash; the current password can
	// never verify, not even the empty string.
	user := &models.User{ID: 1, PasswordHash: ""}
	svc := newTestUserService(&MockUserRepository{}, nil)

	err := svc.ChangePassword(context.Background(), user, "", "NewPass123", "NewPass123")
	assert.ErrorIs(t, err, models.ErrInvalidPassword)
}

func TestChangePassword_Succeeds(t *testing.T) {
	var savedHash string
	repo := &MockUserRepository{
		UpdatePasswordHashFunc: func(ctx context.Context, userID int64, passwordHash string) error {
			savedHash = passwordHash
			return nil
		},
	}
	user := &models.User{ID: 1, PasswordHash: quickHash(t, "OldPass123")}

	err := newTestUserService(repo, nil).
		ChangePassword(context.Background(), user, "OldPass123", "NewPass123", "NewPass123")
	require.NoError(t, err)
	assert.NotEmpty(t, savedHash)
	assert.NotEqual(t, "NewPass123", savedHash)
}

func TestSetProfilePicture_ReplacesOldObject(t *testing.T) {
	oldRef := "profile-pics/1/old.png"
	var savedRef *string
	var deletedKey string
	repo := &MockUserRepository{
		UpdateProfilePictureRefFunc: func(ctx context.Context, userID int64, ref *string) error {
			savedRef = ref
			return nil
		},
	}
	store := &MockObjectStorage{
		DeleteFunc: func(ctx context.Context, key string) error {
			deletedKey = key
			return nil
		},
	}
	user := &models.User{ID: 1, ProfilePictureRef: &oldRef}

	url, err := newTestUserService(repo, store).SetProfilePicture(context.Background(), user, pngBytes)

	require.NoError(t, err)
	assert.NotEmpty(t, url)
	require.NotNil(t, savedRef)
	assert.Contains(t, *savedRef, "profile-pics/1/")
	assert.Equal(t, oldRef, deletedKey)
}

func TestSetProfilePicture_RejectsNonImage(t *testing.T) {
	user := &models.User{ID: 1}

	_, err := newTestUserService(&MockUserRepository{}, nil).
		SetProfilePicture(context.Background(), user, []byte("plain text, not an image"))
	assert.ErrorIs(t, err, storage.ErrUnsupportedImage)
}
