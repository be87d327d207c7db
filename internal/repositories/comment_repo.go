package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/linksylabs/linksy-backend/internal/database"
	"github.com/linksylabs/linksy-backend/internal/models"
)

const commentColumns = `c.id, c.content, c.post_id, c.user_id, c.created_at, c.updated_at, u.username, u.profile_picture_ref`

type CommentRepository struct {
	db *database.DB
}

func NewCommentRepository(db *database.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func scanCommentRow(scanner rowScanner) (*models.Comment, error) {
	var comment models.Comment

	err := scanner.Scan(
		&comment.ID, &comment.Content, &comment.PostID, &comment.UserID,
		&comment.CreatedAt, &comment.UpdatedAt,
		&comment.AuthorUsername, &comment.AuthorProfilePictureRef,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &comment, nil
}

func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	now := time.Now().UTC()

	query := `
		WITH inserted AS (
			INSERT INTO comments (content, post_id, user_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
			RETURNING id, content, post_id, user_id, created_at, updated_at
		)
		SELECT c.id, c.content, c.post_id, c.user_id, c.created_at, c.updated_at, u.username, u.profile_picture_ref
		FROM inserted c JOIN users u ON u.id = c.user_id`

	return scanCommentRow(r.db.Pool.QueryRow(ctx, query, comment.Content, comment.PostID, comment.UserID, now))
}

func (r *CommentRepository) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments c JOIN users u ON u.id = c.user_id WHERE c.id = $1`
	return scanCommentRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *CommentRepository) ListByPost(ctx context.Context, postID int64) ([]*models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments c JOIN users u ON u.id = c.user_id WHERE c.post_id = $1 ORDER BY c.created_at ASC`

	rows, err := r.db.Pool.Query(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	comments := make([]*models.Comment, 0)
	for rows.Next() {
		comment, err := scanCommentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return comments, nil
}

func (r *CommentRepository) Update(ctx context.Context, id int64, content string) (*models.Comment, error) {
	query := `
		WITH updated AS (
			UPDATE comments SET content = $2, updated_at = $3
			WHERE id = $1
			RETURNING id, content, post_id, user_id, created_at, updated_at
		)
		SELECT c.id, c.content, c.post_id, c.user_id, c.created_at, c.updated_at, u.username, u.profile_picture_ref
		FROM updated c JOIN users u ON u.id = c.user_id`

	return scanCommentRow(r.db.Pool.QueryRow(ctx, query, id, content, time.Now().UTC()))
}

func (r *CommentRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *CommentRepository) CountByPost(ctx context.Context, postID int64) (int64, error) {
	var count int64
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM comments WHERE post_id = $1`, postID).Scan(&count)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}

// CountByPosts returns comment counts for a set of posts in one query.
func (r *CommentRepository) CountByPosts(ctx context.Context, postIDs []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT post_id, COUNT(*) FROM comments WHERE post_id = ANY($1) GROUP BY post_id`, postIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query comment counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID, count int64
		if err := rows.Scan(&postID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan comment count: %w", err)
		}
		counts[postID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return counts, nil
}
