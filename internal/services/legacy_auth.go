package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	linksyauth "github.com/linksylabs/linksy-backend/internal/auth"
	"github.com/linksylabs/linksy-backend/internal/models"
	"github.com/linksylabs/linksy-backend/pkg/auth"
)

// LegacyAuthService keeps credentials local: bcrypt hashes in the database
// and self-minted HS256 tokens. It exists for deployments that have not
// migrated to the identity provider.
type LegacyAuthService struct {
	repo   UserRepository
	tokens *linksyauth.LegacyTokenManager
	logger *slog.Logger
}

// NewLegacyAuthService creates the legacy-mode auth facade.
func NewLegacyAuthService(repo UserRepository, tokens *linksyauth.LegacyTokenManager, logger *slog.Logger) *LegacyAuthService {
	return &LegacyAuthService{
		repo:   repo,
		tokens: tokens,
		logger: logger,
	}
}

// Register creates the user locally with a bcrypt password hash. No identity
// provider is involved.
func (s *LegacyAuthService) Register(ctx context.Context, profile models.RegistrationProfile) (*models.RegistrationResult, error) {
	if err := auth.ValidatePassword(profile.Password); err != nil {
		return nil, err
	}

	username, err := probeUsername(ctx, s.repo, deriveUsername(profile.FirstName, profile.LastName))
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(ctx, profile.Email); err == nil {
		return nil, models.ErrEmailTaken
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := auth.HashPassword(profile.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, &models.User{
		Username:     username,
		Email:        profile.Email,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user %q: %w", username, err)
	}

	s.logger.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("username", username))

	return &models.RegistrationResult{
		UserID:   user.ID,
		Username: username,
	}, nil
}

// Login verifies the bcrypt hash and mints a signed token. A row with an
// empty hash (a federated mirror) never verifies.
func (s *LegacyAuthService) Login(ctx context.Context, username, password string) (*models.TokenSet, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	token, err := s.tokens.Mint(user.Username, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to mint token: %w", err)
	}

	return &models.TokenSet{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.Expiry() / time.Second),
	}, nil
}

// ResolveBearer verifies the token signature and expiry, then loads the user.
func (s *LegacyAuthService) ResolveBearer(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, models.ErrUnauthorized
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load user %d: %w", claims.UserID, err)
	}

	return user, nil
}

// ResolveBearerOptional treats missing or invalid tokens as anonymous.
func (s *LegacyAuthService) ResolveBearerOptional(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, nil
	}
	user, err := s.ResolveBearer(ctx, token)
	if err != nil {
		return nil, nil
	}
	return user, nil
}
