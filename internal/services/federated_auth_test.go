package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linksylabs/linksy-backend/internal/idp"
	"github.com/linksylabs/linksy-backend/internal/models"
)

func testProfile() models.RegistrationProfile {
	return models.RegistrationProfile{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Password:  "Sup3rSecret!",
	}
}

func TestFederatedRegister_ProvisionsThenMirrors(t *testing.T) {
	var created *models.User
	repo := &MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			created = user
			out := *user
			out.ID = 42
			return &out, nil
		},
	}
	idpClient := &MockIdPClient{
		ProvisionUserFunc: func(ctx context.Context, username string, profile models.RegistrationProfile) (string, error) {
			assert.Equal(t, "ada.lovelace", username)
			return "fed-abc", nil
		},
	}

	svc := NewFederatedAuthService(repo, idpClient, newTestReconciler(repo, 24*time.Hour), testLogger())
	result, err := svc.Register(context.Background(), testProfile())

	require.NoError(t, err)
	assert.Equal(t, int64(42), result.UserID)
	assert.Equal(t, "ada.lovelace", result.Username)
	assert.Equal(t, "fed-abc", result.FederatedID)

	require.NotNil(t, created)
	assert.Empty(t, created.PasswordHash, "federated rows carry no local credential")
	require.NotNil(t, created.FederatedID)
	assert.Equal(t, "fed-abc", *created.FederatedID)
	assert.NotNil(t, created.LastSyncedAt)
}

func TestFederatedRegister_UsernameCollisionProbes(t *testing.T) {
	taken := map[string]bool{"ada.lovelace": true, "ada.lovelace1": true}
	repo := &MockUserRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			if taken[username] {
				return &models.User{Username: username}, nil
			}
			return nil, models.ErrNotFound
		},
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			out := *user
			out.ID = 1
			return &out, nil
		},
	}
	idpClient := &MockIdPClient{
		ProvisionUserFunc: func(ctx context.Context, username string, profile models.RegistrationProfile) (string, error) {
			return "fed-abc", nil
		},
	}

	svc := NewFederatedAuthService(repo, idpClient, newTestReconciler(repo, 24*time.Hour), testLogger())
	result, err := svc.Register(context.Background(), testProfile())

	require.NoError(t, err)
	assert.Equal(t, "ada.lovelace2", result.Username)
}

func TestFederatedRegister_EmailTakenCheckedBeforeIdP(t *testing.T) {
	repo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{Email: email}, nil
		},
	}
	idpClient := &MockIdPClient{
		ProvisionUserFunc: func(ctx context.Context, username string, profile models.RegistrationProfile) (string, error) {
			t.Fatal("the IdP must not be called when the email is taken locally")
			return "", nil
		},
	}

	svc := NewFederatedAuthService(repo, idpClient, newTestReconciler(repo, 24*time.Hour), testLogger())
	_, err := svc.Register(context.Background(), testProfile())

	assert.ErrorIs(t, err, models.ErrEmailTaken)
}

func TestFederatedRegister_IdPFailureWritesNoLocalRow(t *testing.T) {
	repo := &MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			t.Fatal("no local row may be written when provisioning fails")
			return nil, nil
		},
	}
	provisionErr := &idp.PartialProvisionError{
		FederatedID: "fed-orphan",
		Phase:       "reset-password",
		Err:         idp.ErrUnavailable,
	}
	idpClient := &MockIdPClient{
		ProvisionUserFunc: func(ctx context.Context, username string, profile models.RegistrationProfile) (string, error) {
			return "", provisionErr
		},
	}

	svc := NewFederatedAuthService(repo, idpClient, newTestReconciler(repo, 24*time.Hour), testLogger())
	_, err := svc.Register(context.Background(), testProfile())

	var partial *idp.PartialProvisionError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "fed-orphan", partial.FederatedID)
}

func TestFederatedLogin_ReturnsIdPTokensVerbatim(t *testing.T) {
	repo := &MockUserRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			t.Fatal("login must not touch the database")
			return nil, nil
		},
	}
	idpClient := &MockIdPClient{
		ExchangePasswordFunc: func(ctx context.Context, username, password string) (*models.TokenSet, error) {
			return &models.TokenSet{AccessToken: "idp-token", RefreshToken: "idp-refresh", TokenType: "Bearer", ExpiresIn: 300}, nil
		},
	}

	svc := NewFederatedAuthService(repo, idpClient, newTestReconciler(repo, 24*time.Hour), testLogger())
	tokens, err := svc.Login(context.Background(), "ada.lovelace", "Sup3rSecret!")

	require.NoError(t, err)
	assert.Equal(t, "idp-token", tokens.AccessToken)
	assert.Equal(t, "idp-refresh", tokens.RefreshToken)
}

func TestFederatedLogin_BadCredentials(t *testing.T) {
	idpClient := &MockIdPClient{
		ExchangePasswordFunc: func(ctx context.Context, username, password string) (*models.TokenSet, error) {
			return nil, idp.ErrAuthFailed
		},
	}

	svc := NewFederatedAuthService(&MockUserRepository{}, idpClient, newTestReconciler(&MockUserRepository{}, 24*time.Hour), testLogger())
	_, err := svc.Login(context.Background(), "ada.lovelace", "wrong")

	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestFederatedLogin_IdPUnavailable(t *testing.T) {
	idpClient := &MockIdPClient{
		ExchangePasswordFunc: func(ctx context.Context, username, password string) (*models.TokenSet, error) {
			return nil, idp.ErrUnavailable
		},
	}

	svc := NewFederatedAuthService(&MockUserRepository{}, idpClient, newTestReconciler(&MockUserRepository{}, 24*time.Hour), testLogger())
	_, err := svc.Login(context.Background(), "ada.lovelace", "Sup3rSecret!")

	assert.ErrorIs(t, err, idp.ErrUnavailable)
	assert.NotErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestFederatedResolveBearer_InvalidTokenFailsBeforeDatabase(t *testing.T) {
	repo := &MockUserRepository{
		GetByFederatedIDFunc: func(ctx context.Context, federatedID string) (*models.User, error) {
			t.Fatal("an invalid token must fail before any database access")
			return nil, nil
		},
	}
	idpClient := &MockIdPClient{
		IntrospectFunc: func(ctx context.Context, token string) (*models.IdPTokenClaims, error) {
			return nil, idp.ErrTokenInvalid
		},
	}

	svc := NewFederatedAuthService(repo, idpClient, newTestReconciler(repo, 24*time.Hour), testLogger())
	_, err := svc.ResolveBearer(context.Background(), "expired-token")

	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestFederatedResolveBearer_ResolvesThroughReconciler(t *testing.T) {
	fid := "fed-123"
	syncedAt := time.Now()
	repo := &MockUserRepository{
		GetByFederatedIDFunc: func(ctx context.Context, federatedID string) (*models.User, error) {
			return &models.User{ID: 9, Username: "ada.lovelace", Email: "ada@example.com", FederatedID: &fid, LastSyncedAt: &syncedAt}, nil
		},
	}
	idpClient := &MockIdPClient{
		IntrospectFunc: func(ctx context.Context, token string) (*models.IdPTokenClaims, error) {
			return testClaims(), nil
		},
	}

	svc := NewFederatedAuthService(repo, idpClient, newTestReconciler(repo, 24*time.Hour), testLogger())
	user, err := svc.ResolveBearer(context.Background(), "good-token")

	require.NoError(t, err)
	assert.Equal(t, int64(9), user.ID)
}

func TestFederatedResolveBearerOptional_InvalidTokenIsAnonymous(t *testing.T) {
	idpClient := &MockIdPClient{
		IntrospectFunc: func(ctx context.Context, token string) (*models.IdPTokenClaims, error) {
			return nil, idp.ErrTokenInvalid
		},
	}

	svc := NewFederatedAuthService(&MockUserRepository{}, idpClient, newTestReconciler(&MockUserRepository{}, 24*time.Hour), testLogger())

	user, err := svc.ResolveBearerOptional(context.Background(), "bad-token")
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = svc.ResolveBearerOptional(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, user)
}
