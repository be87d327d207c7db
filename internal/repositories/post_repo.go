package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/linksylabs/linksy-backend/internal/database"
	"github.com/linksylabs/linksy-backend/internal/models"
)

const postColumns = `p.id, p.title, p.content, p.user_id, p.image_ref, p.created_at, p.updated_at, u.username, u.profile_picture_ref`

type PostRepository struct {
	db *database.DB
}

func NewPostRepository(db *database.DB) *PostRepository {
	return &PostRepository{db: db}
}

func scanPostRow(scanner rowScanner) (*models.Post, error) {
	var post models.Post

	err := scanner.Scan(
		&post.ID, &post.Title, &post.Content, &post.UserID, &post.ImageRef,
		&post.CreatedAt, &post.UpdatedAt,
		&post.AuthorUsername, &post.AuthorProfilePictureRef,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &post, nil
}

func scanPostRows(rows pgx.Rows) ([]*models.Post, error) {
	defer rows.Close()

	posts := make([]*models.Post, 0)

	for rows.Next() {
		post, err := scanPostRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return posts, nil
}

func (r *PostRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	now := time.Now().UTC()

	query := `
		WITH inserted AS (
			INSERT INTO posts (title, content, user_id, image_ref, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			RETURNING id, title, content, user_id, image_ref, created_at, updated_at
		)
		SELECT p.id, p.title, p.content, p.user_id, p.image_ref, p.created_at, p.updated_at, u.username, u.profile_picture_ref
		FROM inserted p JOIN users u ON u.id = p.user_id`

	return scanPostRow(r.db.Pool.QueryRow(ctx, query, post.Title, post.Content, post.UserID, post.ImageRef, now))
}

func (r *PostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts p JOIN users u ON u.id = p.user_id WHERE p.id = $1`
	return scanPostRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *PostRepository) ListAll(ctx context.Context) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts p JOIN users u ON u.id = p.user_id ORDER BY p.created_at DESC`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}

	return scanPostRows(rows)
}

func (r *PostRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts p JOIN users u ON u.id = p.user_id WHERE p.user_id = $1 ORDER BY p.created_at DESC`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}

	return scanPostRows(rows)
}

func (r *PostRepository) Update(ctx context.Context, id int64, title, content string) (*models.Post, error) {
	query := `
		WITH updated AS (
			UPDATE posts SET title = $2, content = $3, updated_at = $4
			WHERE id = $1
			RETURNING id, title, content, user_id, image_ref, created_at, updated_at
		)
		SELECT p.id, p.title, p.content, p.user_id, p.image_ref, p.created_at, p.updated_at, u.username, u.profile_picture_ref
		FROM updated p JOIN users u ON u.id = p.user_id`

	return scanPostRow(r.db.Pool.QueryRow(ctx, query, id, title, content, time.Now().UTC()))
}

func (r *PostRepository) SetImageRef(ctx context.Context, id int64, imageRef *string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE posts SET image_ref = $2, updated_at = $3 WHERE id = $1`,
		id, imageRef, time.Now().UTC(),
	)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
