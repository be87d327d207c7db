package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/linksylabs/linksy-backend/internal/database"
)

type LikeRepository struct {
	db *database.DB
}

func NewLikeRepository(db *database.DB) *LikeRepository {
	return &LikeRepository{db: db}
}

// Toggle flips the like state for (userID, postID) and returns the resulting
// state plus the fresh like count. Runs in one transaction so the returned
// count reflects the toggle.
func (r *LikeRepository) Toggle(ctx context.Context, userID, postID int64) (bool, int64, error) {
	var liked bool
	var count int64

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM likes WHERE user_id = $1 AND post_id = $2`, userID, postID)
		if err != nil {
			return database.MapPostgresError(err)
		}

		if tag.RowsAffected() == 0 {
			_, err = tx.Exec(ctx,
				`INSERT INTO likes (user_id, post_id, created_at) VALUES ($1, $2, $3)`,
				userID, postID, time.Now().UTC())
			if err != nil {
				return database.MapPostgresError(err)
			}
			liked = true
		}

		return tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM likes WHERE post_id = $1`, postID).Scan(&count)
	})
	if err != nil {
		return false, 0, err
	}

	return liked, count, nil
}

func (r *LikeRepository) CountByPost(ctx context.Context, postID int64) (int64, error) {
	var count int64
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM likes WHERE post_id = $1`, postID).Scan(&count)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}

// CountByPosts returns like counts for a set of posts in one query.
func (r *LikeRepository) CountByPosts(ctx context.Context, postIDs []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT post_id, COUNT(*) FROM likes WHERE post_id = ANY($1) GROUP BY post_id`, postIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query like counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID, count int64
		if err := rows.Scan(&postID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan like count: %w", err)
		}
		counts[postID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return counts, nil
}

func (r *LikeRepository) IsLiked(ctx context.Context, userID, postID int64) (bool, error) {
	var liked bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM likes WHERE user_id = $1 AND post_id = $2)`,
		userID, postID).Scan(&liked)
	if err != nil {
		return false, database.MapPostgresError(err)
	}
	return liked, nil
}

// LikedPostIDs filters postIDs down to those the user has liked.
func (r *LikeRepository) LikedPostIDs(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	liked := make(map[int64]bool, len(postIDs))
	if len(postIDs) == 0 {
		return liked, nil
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT post_id FROM likes WHERE user_id = $1 AND post_id = ANY($2)`, userID, postIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query likes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID int64
		if err := rows.Scan(&postID); err != nil {
			return nil, fmt.Errorf("failed to scan like: %w", err)
		}
		liked[postID] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return liked, nil
}
