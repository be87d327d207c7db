package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/linksylabs/linksy-backend/internal/database"
	"github.com/linksylabs/linksy-backend/internal/models"
)

const userColumns = `id, username, email, password_hash, federated_id, last_synced_at, profile_picture_ref, created_at, updated_at`

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// rowScanner interface for scanning user rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.FederatedID, &user.LastSyncedAt, &user.ProfilePictureRef,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, username))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByFederatedID(ctx context.Context, federatedID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE federated_id = $1`
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, federatedID))
}

// Create inserts a new row. The caller decides the federation fields: a
// registration in federated mode passes FederatedID and LastSyncedAt with an
// empty PasswordHash; a legacy registration passes a bcrypt hash and no
// federation fields.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now().UTC()

	query := `
		INSERT INTO users (username, email, password_hash, federated_id, last_synced_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING ` + userColumns

	return scanUserRow(r.db.Pool.QueryRow(ctx, query,
		user.Username, user.Email, user.PasswordHash,
		user.FederatedID, user.LastSyncedAt, now,
	))
}

// UpsertByFederatedID inserts a just-in-time provisioned row keyed on the
// federated id. Two concurrent first logins for the same IdP subject converge
// on a single row: the loser of the insert race lands on DO UPDATE and reads
// the winner's row back.
func (r *UserRepository) UpsertByFederatedID(ctx context.Context, username, email, federatedID string, syncedAt time.Time) (*models.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash, federated_id, last_synced_at, created_at, updated_at)
		VALUES ($1, $2, '', $3, $4, $4, $4)
		ON CONFLICT (federated_id) DO UPDATE SET last_synced_at = EXCLUDED.last_synced_at
		RETURNING ` + userColumns

	return scanUserRow(r.db.Pool.QueryRow(ctx, query, username, email, federatedID, syncedAt.UTC()))
}

// ApplyClaimSync writes IdP claim values back onto a row in one transaction.
// The federated id only ever upgrades from null; it is never overwritten.
// A unique violation on username or email (another local row already holds the
// claimed value) is not fatal: the stale local values are kept and
// last_synced_at still advances so the sync is not retried for a TTL window.
func (r *UserRepository) ApplyClaimSync(ctx context.Context, userID int64, username, email, federatedID string, syncedAt time.Time) (*models.User, error) {
	var user *models.User

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE users
			SET username = $2,
			    email = COALESCE(NULLIF($3, ''), email),
			    federated_id = COALESCE(federated_id, $4),
			    last_synced_at = $5,
			    updated_at = $5
			WHERE id = $1
			RETURNING ` + userColumns

		var scanErr error
		user, scanErr = scanUserRow(tx.QueryRow(ctx, query, userID, username, email, federatedID, syncedAt.UTC()))
		return scanErr
	})

	if err == nil {
		return user, nil
	}
	if !errors.Is(err, models.ErrConflict) {
		return nil, err
	}

	// Claimed username or email collides with another row. Keep the stale
	// values, still advance the sync marker and upgrade the federated id.
	fallback := `
		UPDATE users
		SET federated_id = COALESCE(federated_id, $2),
		    last_synced_at = $3,
		    updated_at = $3
		WHERE id = $1
		RETURNING ` + userColumns

	user, err = scanUserRow(r.db.Pool.QueryRow(ctx, fallback, userID, federatedID, syncedAt.UTC()))
	if err != nil {
		return nil, fmt.Errorf("claim sync fallback failed: %w", err)
	}

	return user, nil
}

// UpdateProfile changes username and/or email. Empty strings leave the column
// untouched.
func (r *UserRepository) UpdateProfile(ctx context.Context, userID int64, username, email string) (*models.User, error) {
	query := `
		UPDATE users
		SET username = COALESCE(NULLIF($2, ''), username),
		    email = COALESCE(NULLIF($3, ''), email),
		    updated_at = $4
		WHERE id = $1
		RETURNING ` + userColumns

	return scanUserRow(r.db.Pool.QueryRow(ctx, query, userID, username, email, time.Now().UTC()))
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, userID int64, passwordHash string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		userID, passwordHash, time.Now().UTC(),
	)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdateProfilePictureRef sets or clears (nil) the object-store key.
func (r *UserRepository) UpdateProfilePictureRef(ctx context.Context, userID int64, ref *string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE users SET profile_picture_ref = $2, updated_at = $3 WHERE id = $1`,
		userID, ref, time.Now().UTC(),
	)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
