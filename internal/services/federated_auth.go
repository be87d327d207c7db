package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linksylabs/linksy-backend/internal/idp"
	"github.com/linksylabs/linksy-backend/internal/models"
)

// IdPClient defines the identity-provider operations the facade needs.
type IdPClient interface {
	ExchangePassword(ctx context.Context, username, password string) (*models.TokenSet, error)
	Introspect(ctx context.Context, token string) (*models.IdPTokenClaims, error)
	ProvisionUser(ctx context.Context, username string, profile models.RegistrationProfile) (string, error)
}

// FederatedAuthService delegates credentials to the identity provider and
// keeps local rows as mirrors via the reconciler.
type FederatedAuthService struct {
	repo       UserRepository
	idp        IdPClient
	reconciler *Reconciler
	logger     *slog.Logger
}

// NewFederatedAuthService creates the federated-mode auth facade.
func NewFederatedAuthService(repo UserRepository, idpClient IdPClient, reconciler *Reconciler, logger *slog.Logger) *FederatedAuthService {
	return &FederatedAuthService{
		repo:       repo,
		idp:        idpClient,
		reconciler: reconciler,
		logger:     logger,
	}
}

// Register provisions the user in the IdP first and mirrors it locally only
// after the IdP reports success. On any IdP error no local row is written;
// a partially created IdP record is left for operator cleanup.
func (s *FederatedAuthService) Register(ctx context.Context, profile models.RegistrationProfile) (*models.RegistrationResult, error) {
	username, err := probeUsername(ctx, s.repo, deriveUsername(profile.FirstName, profile.LastName))
	if err != nil {
		return nil, err
	}

	if err := s.checkEmailFree(ctx, profile.Email); err != nil {
		return nil, err
	}

	federatedID, err := s.idp.ProvisionUser(ctx, username, profile)
	if err != nil {
		var partial *idp.PartialProvisionError
		if errors.As(err, &partial) {
			s.logger.Error("registration left orphaned idp user, manual cleanup required",
				slog.String("username", username),
				slog.String("federated_id", partial.FederatedID),
				slog.Any("error", err))
		}
		return nil, err
	}

	now := time.Now().UTC()
	user, err := s.repo.Create(ctx, &models.User{
		Username:     username,
		Email:        profile.Email,
		PasswordHash: "", // the IdP owns the credential
		FederatedID:  &federatedID,
		LastSyncedAt: &now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create local user %q: %w", username, err)
	}

	s.logger.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("username", username),
		slog.String("federated_id", federatedID))

	return &models.RegistrationResult{
		UserID:      user.ID,
		Username:    username,
		FederatedID: federatedID,
	}, nil
}

// Login exchanges the password with the IdP and hands the access token back
// verbatim. No local row is read or written.
func (s *FederatedAuthService) Login(ctx context.Context, username, password string) (*models.TokenSet, error) {
	tokens, err := s.idp.ExchangePassword(ctx, username, password)
	if err != nil {
		if errors.Is(err, idp.ErrAuthFailed) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}
	return tokens, nil
}

// ResolveBearer introspects the token and resolves the local row through the
// reconciler. An inactive token fails before any database access.
func (s *FederatedAuthService) ResolveBearer(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.idp.Introspect(ctx, token)
	if err != nil {
		if errors.Is(err, idp.ErrUnavailable) {
			return nil, err
		}
		return nil, models.ErrUnauthorized
	}

	return s.reconciler.ResolveFromClaims(ctx, claims)
}

// ResolveBearerOptional treats missing or invalid tokens as anonymous.
func (s *FederatedAuthService) ResolveBearerOptional(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, nil
	}
	user, err := s.ResolveBearer(ctx, token)
	if err != nil {
		return nil, nil
	}
	return user, nil
}

func (s *FederatedAuthService) checkEmailFree(ctx context.Context, email string) error {
	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return models.ErrEmailTaken
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}
	return nil
}
