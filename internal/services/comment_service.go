package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linksylabs/linksy-backend/internal/models"
)

// CommentRepository defines the persistence operations the comment service needs.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) (*models.Comment, error)
	GetByID(ctx context.Context, id int64) (*models.Comment, error)
	ListByPost(ctx context.Context, postID int64) ([]*models.Comment, error)
	Update(ctx context.Context, id int64, content string) (*models.Comment, error)
	Delete(ctx context.Context, id int64) error
	CountByPost(ctx context.Context, postID int64) (int64, error)
}

// CommentView is a comment with the author's presigned profile picture URL.
type CommentView struct {
	*models.Comment
	AuthorProfilePictureURL string
}

// CommentService handles comment CRUD under a post.
type CommentService struct {
	comments CommentRepository
	posts    PostRepository
	storage  ObjectStorage
	logger   *slog.Logger
}

// NewCommentService creates a new CommentService
func NewCommentService(comments CommentRepository, posts PostRepository, store ObjectStorage, logger *slog.Logger) *CommentService {
	return &CommentService{
		comments: comments,
		posts:    posts,
		storage:  store,
		logger:   logger,
	}
}

// Create adds a comment to an existing post.
func (s *CommentService) Create(ctx context.Context, userID, postID int64, content string) (*CommentView, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	comment, err := s.comments.Create(ctx, &models.Comment{
		Content: content,
		PostID:  postID,
		UserID:  userID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	s.logger.Info("comment created",
		slog.Int64("comment_id", comment.ID),
		slog.Int64("post_id", postID))

	return s.decorateOne(ctx, comment)
}

// ListByPost returns a post's comments, oldest first.
func (s *CommentService) ListByPost(ctx context.Context, postID int64) ([]*CommentView, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments for post %d: %w", postID, err)
	}

	views := make([]*CommentView, len(comments))
	for i, c := range comments {
		view, err := s.decorateOne(ctx, c)
		if err != nil {
			return nil, err
		}
		views[i] = view
	}
	return views, nil
}

// Update edits a comment's content. Only the author may edit.
func (s *CommentService) Update(ctx context.Context, viewer *models.User, id int64, content string) (*CommentView, error) {
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment.UserID != viewer.ID {
		return nil, models.ErrForbidden
	}

	updated, err := s.comments.Update(ctx, id, content)
	if err != nil {
		return nil, fmt.Errorf("failed to update comment %d: %w", id, err)
	}
	return s.decorateOne(ctx, updated)
}

// Delete removes a comment. Only the author may delete.
func (s *CommentService) Delete(ctx context.Context, viewer *models.User, id int64) error {
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if comment.UserID != viewer.ID {
		return models.ErrForbidden
	}

	if err := s.comments.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete comment %d: %w", id, err)
	}
	return nil
}

// Count returns the number of comments on a post.
func (s *CommentService) Count(ctx context.Context, postID int64) (int64, error) {
	return s.comments.CountByPost(ctx, postID)
}

func (s *CommentService) decorateOne(ctx context.Context, comment *models.Comment) (*CommentView, error) {
	view := &CommentView{Comment: comment}
	if comment.AuthorProfilePictureRef != nil && *comment.AuthorProfilePictureRef != "" {
		url, err := s.storage.PresignGet(ctx, *comment.AuthorProfilePictureRef)
		if err != nil {
			return nil, fmt.Errorf("failed to presign author picture: %w", err)
		}
		view.AuthorProfilePictureURL = url
	}
	return view, nil
}
