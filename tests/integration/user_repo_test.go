package integration

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linksylabs/linksy-backend/internal/models"
	"github.com/linksylabs/linksy-backend/internal/repositories"
)

func setupUserRepo(t *testing.T) (*TestDB, *repositories.UserRepository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	testDB, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = testDB.Teardown(context.Background())
	})

	return testDB, repositories.NewUserRepository(testDB.DB)
}

func TestUpsertByFederatedID_Converges(t *testing.T) {
	testDB, repo := setupUserRepo(t)
	ctx := context.Background()
	defer testDB.CleanupTables(ctx)

	first, err := repo.UpsertByFederatedID(ctx, "ada.lovelace", "ada@example.com", "fed-123", time.Now().UTC())
	require.NoError(t, err)

	// A second upsert for the same subject must land on the same row, not
	// create a duplicate.
	second, err := repo.UpsertByFederatedID(ctx, "ada.lovelace", "ada@example.com", "fed-123", time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	var count int
	require.NoError(t, testDB.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestApplyClaimSync_UpdatesRow(t *testing.T) {
	testDB, repo := setupUserRepo(t)
	ctx := context.Background()
	defer testDB.CleanupTables(ctx)

	seeded, err := SeedLegacyUser(ctx, testDB.Pool, "ada.lovelace", "ada@example.com", "Sup3rSecret!")
	require.NoError(t, err)

	synced, err := repo.ApplyClaimSync(ctx, seeded.ID, "ada.king", "countess@example.com", "fed-123", time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, "ada.king", synced.Username)
	assert.Equal(t, "countess@example.com", synced.Email)
	require.NotNil(t, synced.FederatedID)
	assert.Equal(t, "fed-123", *synced.FederatedID)
	assert.NotNil(t, synced.LastSyncedAt)
	// local credential untouched by the sync
	assert.Equal(t, seeded.PasswordHash, synced.PasswordHash)
}

func TestApplyClaimSync_UniqueViolationKeepsStaleValues(t *testing.T) {
	testDB, repo := setupUserRepo(t)
	ctx := context.Background()
	defer testDB.CleanupTables(ctx)

	_, err := SeedLegacyUser(ctx, testDB.Pool, "grace.hopper", "grace@example.com", "Sup3rSecret!")
	require.NoError(t, err)

	target, err := SeedFederatedUser(ctx, testDB.Pool, "ada.lovelace", "ada@example.com", "fed-123")
	require.NoError(t, err)

	// The IdP claims a username another local row already holds. The sync
	// must not fail the request: stale values stay, the marker advances.
	syncedAt := time.Now().UTC()
	synced, err := repo.ApplyClaimSync(ctx, target.ID, "grace.hopper", "grace@example.com", "fed-123", syncedAt)
	require.NoError(t, err)

	assert.Equal(t, "ada.lovelace", synced.Username)
	assert.Equal(t, "ada@example.com", synced.Email)
	require.NotNil(t, synced.LastSyncedAt)
	assert.WithinDuration(t, syncedAt, *synced.LastSyncedAt, time.Second)
}

func TestApplyClaimSync_FederatedIDNeverOverwritten(t *testing.T) {
	testDB, repo := setupUserRepo(t)
	ctx := context.Background()
	defer testDB.CleanupTables(ctx)

	target, err := SeedFederatedUser(ctx, testDB.Pool, "ada.lovelace", "ada@example.com", "fed-original")
	require.NoError(t, err)

	synced, err := repo.ApplyClaimSync(ctx, target.ID, "ada.lovelace", "ada@example.com", "fed-other", time.Now().UTC())
	require.NoError(t, err)

	require.NotNil(t, synced.FederatedID)
	assert.Equal(t, "fed-original", *synced.FederatedID)
}

func TestCreate_DuplicateUsernameMapsToConflict(t *testing.T) {
	testDB, repo := setupUserRepo(t)
	ctx := context.Background()
	defer testDB.CleanupTables(ctx)

	_, err := SeedLegacyUser(ctx, testDB.Pool, "ada.lovelace", "ada@example.com", "Sup3rSecret!")
	require.NoError(t, err)

	_, err = repo.Create(ctx, &models.User{
		Username:     "ada.lovelace",
		Email:        "other@example.com",
		PasswordHash: "$2a$14$x",
	})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestWithTransaction_SurfacesCommitFailure(t *testing.T) {
	testDB, _ := setupUserRepo(t)
	defer testDB.CleanupTables(context.Background())

	// Cancelling the context inside the body makes the deferred commit
	// fail; that failure must reach the caller, not report success.
	ctx, cancel := context.WithCancel(context.Background())
	err := testDB.DB.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3)",
			"ada.lovelace", "ada@example.com", "$2a$14$x"); err != nil {
			return err
		}
		cancel()
		return nil
	})
	require.Error(t, err)

	var count int
	require.NoError(t, testDB.Pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM users").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestLikeToggle_FlipsAndCounts(t *testing.T) {
	testDB, _ := setupUserRepo(t)
	ctx := context.Background()
	defer testDB.CleanupTables(ctx)

	user, err := SeedLegacyUser(ctx, testDB.Pool, "ada.lovelace", "ada@example.com", "Sup3rSecret!")
	require.NoError(t, err)
	postID, err := SeedPost(ctx, testDB.Pool, user.ID, "hello", "world")
	require.NoError(t, err)

	likes := repositories.NewLikeRepository(testDB.DB)

	liked, count, err := likes.Toggle(ctx, user.ID, postID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, int64(1), count)

	liked, count, err = likes.Toggle(ctx, user.ID, postID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, int64(0), count)
}
