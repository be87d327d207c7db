package services

import (
	"context"
	"time"

	"github.com/linksylabs/linksy-backend/internal/models"
)

// UserRepository defines the persistence operations the auth services need.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByFederatedID(ctx context.Context, federatedID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpsertByFederatedID(ctx context.Context, username, email, federatedID string, syncedAt time.Time) (*models.User, error)
	ApplyClaimSync(ctx context.Context, userID int64, username, email, federatedID string, syncedAt time.Time) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int64, username, email string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, userID int64, passwordHash string) error
	UpdateProfilePictureRef(ctx context.Context, userID int64, ref *string) error
}

// Authenticator is the contract HTTP handlers program against. The federated
// and legacy implementations share it; which one runs is decided once at
// startup from configuration, never per request.
type Authenticator interface {
	Register(ctx context.Context, profile models.RegistrationProfile) (*models.RegistrationResult, error)
	Login(ctx context.Context, username, password string) (*models.TokenSet, error)
	ResolveBearer(ctx context.Context, token string) (*models.User, error)
	ResolveBearerOptional(ctx context.Context, token string) (*models.User, error)
}
