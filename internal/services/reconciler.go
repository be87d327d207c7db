package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linksylabs/linksy-backend/internal/models"
)

// syntheticEmailDomain backs the placeholder address used when the IdP has no
// email claim for a user. "{username}@federated.local" is reserved: the email
// uniqueness constraint applies to it like any real address.
const syntheticEmailDomain = "federated.local"

// Reconciler maps verified IdP claims to exactly one local row, provisioning
// just-in-time on first login and applying a bounded-staleness sync policy.
type Reconciler struct {
	repo    UserRepository
	syncTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewReconciler creates a Reconciler with the given staleness threshold.
func NewReconciler(repo UserRepository, syncTTL time.Duration, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		repo:    repo,
		syncTTL: syncTTL,
		logger:  logger,
		now:     time.Now,
	}
}

// ResolveFromClaims resolves the local row for a set of verified claims.
// The ladder: federated id first, then username (a legacy row awaiting its
// federated-id upgrade), then just-in-time provisioning.
func (r *Reconciler) ResolveFromClaims(ctx context.Context, claims *models.IdPTokenClaims) (*models.User, error) {
	if claims.FederatedID == "" || claims.PreferredUsername == "" {
		return nil, models.ErrUnauthorized
	}

	user, err := r.repo.GetByFederatedID(ctx, claims.FederatedID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user by federated id: %w", err)
	}

	if user == nil {
		user, err = r.repo.GetByUsername(ctx, claims.PreferredUsername)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up user by username: %w", err)
		}
		// A username match only counts when the row is unbound: a row
		// already bound to another subject must never be handed out for
		// this one.
		if user != nil && user.HasFederatedID() && *user.FederatedID != claims.FederatedID {
			user = nil
		}
	}

	if user == nil {
		return r.provision(ctx, claims)
	}

	return r.sync(ctx, user, claims)
}

// provision inserts a new row on first login. The upsert is keyed on the
// federated id so two concurrent first logins converge on one row.
func (r *Reconciler) provision(ctx context.Context, claims *models.IdPTokenClaims) (*models.User, error) {
	email := claims.Email
	if email == "" {
		email = fmt.Sprintf("%s@%s", claims.PreferredUsername, syntheticEmailDomain)
	}

	user, err := r.repo.UpsertByFederatedID(ctx, claims.PreferredUsername, email, claims.FederatedID, r.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to provision user from claims: %w", err)
	}

	r.logger.Info("provisioned local user from identity provider",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
		slog.String("federated_id", claims.FederatedID))

	return user, nil
}

// sync writes claim values back onto an existing row when it is stale. The
// update is last-writer-wins; claim drift and TTL expiry both force it, as
// does a missing federated id (legacy-row upgrade).
func (r *Reconciler) sync(ctx context.Context, user *models.User, claims *models.IdPTokenClaims) (*models.User, error) {
	if !user.HasFederatedID() {
		r.logger.Info("upgrading legacy row with federated id",
			slog.Int64("user_id", user.ID),
			slog.String("federated_id", claims.FederatedID))
	}

	if !r.shouldSync(user, claims) {
		return user, nil
	}

	synced, err := r.repo.ApplyClaimSync(ctx, user.ID, claims.PreferredUsername, claims.Email, claims.FederatedID, r.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to sync user %d from claims: %w", user.ID, err)
	}

	r.logger.Debug("synced user data from identity provider", slog.Int64("user_id", user.ID))

	return synced, nil
}

func (r *Reconciler) shouldSync(user *models.User, claims *models.IdPTokenClaims) bool {
	if !user.HasFederatedID() {
		return true
	}
	if user.LastSyncedAt == nil {
		return true
	}
	if r.now().Sub(*user.LastSyncedAt) > r.syncTTL {
		return true
	}
	if user.Username != claims.PreferredUsername {
		return true
	}
	if claims.Email != "" && user.Email != claims.Email {
		return true
	}
	return false
}
