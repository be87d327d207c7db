package services

import (
	"context"
	"fmt"
	"log/slog"
)

// LikeRepository defines the persistence operations the like service needs.
type LikeRepository interface {
	LikeReader
	Toggle(ctx context.Context, userID, postID int64) (bool, int64, error)
	IsLiked(ctx context.Context, userID, postID int64) (bool, error)
}

// LikeService handles the like toggle on posts.
type LikeService struct {
	likes  LikeRepository
	posts  PostRepository
	logger *slog.Logger
}

// NewLikeService creates a new LikeService
func NewLikeService(likes LikeRepository, posts PostRepository, logger *slog.Logger) *LikeService {
	return &LikeService{
		likes:  likes,
		posts:  posts,
		logger: logger,
	}
}

// Toggle flips the viewer's like on a post and returns the new state and
// total count.
func (s *LikeService) Toggle(ctx context.Context, userID, postID int64) (liked bool, count int64, err error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return false, 0, err
	}

	liked, count, err = s.likes.Toggle(ctx, userID, postID)
	if err != nil {
		return false, 0, fmt.Errorf("failed to toggle like on post %d: %w", postID, err)
	}

	s.logger.Debug("like toggled",
		slog.Int64("post_id", postID),
		slog.Int64("user_id", userID),
		slog.Bool("liked", liked))

	return liked, count, nil
}
