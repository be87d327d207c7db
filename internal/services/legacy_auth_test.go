package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	linksyauth "github.com/linksylabs/linksy-backend/internal/auth"
	"github.com/linksylabs/linksy-backend/internal/models"
	"github.com/linksylabs/linksy-backend/pkg/auth"
)

func newTestLegacyService(repo UserRepository) *LegacyAuthService {
	tokens := linksyauth.NewLegacyTokenManager("test-signing-secret", 30*time.Minute)
	return NewLegacyAuthService(repo, tokens, testLogger())
}

func quickHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestLegacyRegister_StoresHash(t *testing.T) {
	var created *models.User
	repo := &MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			created = user
			out := *user
			out.ID = 5
			return &out, nil
		},
	}

	result, err := newTestLegacyService(repo).Register(context.Background(), testProfile())

	require.NoError(t, err)
	assert.Equal(t, int64(5), result.UserID)
	assert.Equal(t, "ada.lovelace", result.Username)
	assert.Empty(t, result.FederatedID)

	require.NotNil(t, created)
	assert.NotEmpty(t, created.PasswordHash)
	assert.NotEqual(t, "Sup3rSecret!", created.PasswordHash)
	assert.Nil(t, created.FederatedID)
}

func TestLegacyRegister_RejectsWeakPassword(t *testing.T) {
	repo := &MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			t.Fatal("a weak password must not reach the database")
			return nil, nil
		},
	}

	profile := testProfile()
	profile.Password = "letmein"

	_, err := newTestLegacyService(repo).Register(context.Background(), profile)

	var weak *auth.PasswordValidationError
	assert.ErrorAs(t, err, &weak)
}

func TestLegacyRegister_EmailTaken(t *testing.T) {
	repo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{Email: email}, nil
		},
	}

	_, err := newTestLegacyService(repo).Register(context.Background(), testProfile())
	assert.ErrorIs(t, err, models.ErrEmailTaken)
}

func TestLegacyLogin_MintsToken(t *testing.T) {
	hash := quickHash(t, "Sup3rSecret!")
	repo := &MockUserRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			return &models.User{ID: 5, Username: username, PasswordHash: hash}, nil
		},
	}

	tokens, err := newTestLegacyService(repo).Login(context.Background(), "ada.lovelace", "Sup3rSecret!")

	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.Equal(t, "bearer", tokens.TokenType)
	assert.Equal(t, int64(1800), tokens.ExpiresIn)
	assert.Empty(t, tokens.RefreshToken)
}

func TestLegacyLogin_WrongPassword(t *testing.T) {
	hash := quickHash(t, "Sup3rSecret!")
	repo := &MockUserRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			return &models.User{ID: 5, Username: username, PasswordHash: hash}, nil
		},
	}

	_, err := newTestLegacyService(repo).Login(context.Background(), "ada.lovelace", "nope")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestLegacyLogin_UnknownUser(t *testing.T) {
	_, err := newTestLegacyService(&MockUserRepository{}).Login(context.Background(), "ghost", "whatever")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestLegacyLogin_FederatedRowNeverVerifies(t *testing.T) {
	// A mirror row provisioned in federated mode has an empty hash. Even an
	// empty submitted password must not verify against it.
	fid := "fed-123"
	repo := &MockUserRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			return &models.User{ID: 5, Username: username, PasswordHash: "", FederatedID: &fid}, nil
		},
	}
	svc := newTestLegacyService(repo)

	_, err := svc.Login(context.Background(), "ada.lovelace", "")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "ada.lovelace", "anything")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestLegacyResolveBearer_RoundTrip(t *testing.T) {
	hash := quickHash(t, "Sup3rSecret!")
	repo := &MockUserRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			return &models.User{ID: 5, Username: username, PasswordHash: hash}, nil
		},
		GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return &models.User{ID: id, Username: "ada.lovelace"}, nil
		},
	}
	svc := newTestLegacyService(repo)

	tokens, err := svc.Login(context.Background(), "ada.lovelace", "Sup3rSecret!")
	require.NoError(t, err)

	user, err := svc.ResolveBearer(context.Background(), tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(5), user.ID)
}

func TestLegacyResolveBearer_GarbageToken(t *testing.T) {
	_, err := newTestLegacyService(&MockUserRepository{}).ResolveBearer(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestLegacyResolveBearer_DeletedUser(t *testing.T) {
	hash := quickHash(t, "Sup3rSecret!")
	repo := &MockUserRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			return &models.User{ID: 5, Username: username, PasswordHash: hash}, nil
		},
	}
	svc := newTestLegacyService(repo)

	tokens, err := svc.Login(context.Background(), "ada.lovelace", "Sup3rSecret!")
	require.NoError(t, err)

	_, err = svc.ResolveBearer(context.Background(), tokens.AccessToken)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}
