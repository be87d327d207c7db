package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linksylabs/linksy-backend/internal/models"
	"github.com/linksylabs/linksy-backend/internal/storage"
)

// PostRepository defines the persistence operations the post service needs.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	ListAll(ctx context.Context) ([]*models.Post, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Post, error)
	Update(ctx context.Context, id int64, title, content string) (*models.Post, error)
	SetImageRef(ctx context.Context, id int64, imageRef *string) error
	Delete(ctx context.Context, id int64) error
}

// CommentCounter and LikeReader cover the aggregate reads embedded in post
// responses.
type CommentCounter interface {
	CountByPosts(ctx context.Context, postIDs []int64) (map[int64]int64, error)
}

type LikeReader interface {
	CountByPosts(ctx context.Context, postIDs []int64) (map[int64]int64, error)
	LikedPostIDs(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error)
}

// PostView is a post decorated with everything a feed needs: counts, the
// viewer's like state, and presigned media URLs.
type PostView struct {
	*models.Post
	CommentCount            int64
	LikeCount               int64
	IsLiked                 bool
	ImageURL                string
	AuthorProfilePictureURL string
}

// PostService handles post CRUD plus the view assembly for feeds.
type PostService struct {
	posts    PostRepository
	comments CommentCounter
	likes    LikeReader
	storage  ObjectStorage
	logger   *slog.Logger
}

// NewPostService creates a new PostService
func NewPostService(posts PostRepository, comments CommentCounter, likes LikeReader, store ObjectStorage, logger *slog.Logger) *PostService {
	return &PostService{
		posts:    posts,
		comments: comments,
		likes:    likes,
		storage:  store,
		logger:   logger,
	}
}

// Create inserts the post and, when an image is supplied, stores it and
// attaches its key. The image is validated before the row is written.
func (s *PostService) Create(ctx context.Context, userID int64, title, content string, image []byte) (*PostView, error) {
	var ext, contentType string
	if len(image) > 0 {
		var err error
		ext, contentType, err = storage.ValidateImage(image)
		if err != nil {
			return nil, err
		}
	}

	post, err := s.posts.Create(ctx, &models.Post{
		Title:   title,
		Content: content,
		UserID:  userID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	if len(image) > 0 {
		key := storage.PostImageKey(post.ID, ext)
		if err := s.storage.Upload(ctx, key, contentType, image); err != nil {
			return nil, err
		}
		if err := s.posts.SetImageRef(ctx, post.ID, &key); err != nil {
			return nil, fmt.Errorf("failed to attach post image: %w", err)
		}
		post.ImageRef = &key
	}

	s.logger.Info("post created", slog.Int64("post_id", post.ID), slog.Int64("user_id", userID))

	return s.decorateOne(ctx, post, nil)
}

// Get returns one post as the given viewer sees it. viewer may be nil.
func (s *PostService) Get(ctx context.Context, id int64, viewer *models.User) (*PostView, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.decorateOne(ctx, post, viewer)
}

// List returns all posts, newest first, as the given viewer sees them.
func (s *PostService) List(ctx context.Context, viewer *models.User) ([]*PostView, error) {
	posts, err := s.posts.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return s.decorate(ctx, posts, viewer)
}

// ListByUser returns one author's posts as the given viewer sees them.
func (s *PostService) ListByUser(ctx context.Context, userID int64, viewer *models.User) ([]*PostView, error) {
	posts, err := s.posts.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts for user %d: %w", userID, err)
	}
	return s.decorate(ctx, posts, viewer)
}

// Update edits title and content. Only the author may edit.
func (s *PostService) Update(ctx context.Context, viewer *models.User, id int64, title, content string) (*PostView, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.UserID != viewer.ID {
		return nil, models.ErrForbidden
	}

	updated, err := s.posts.Update(ctx, id, title, content)
	if err != nil {
		return nil, fmt.Errorf("failed to update post %d: %w", id, err)
	}
	return s.decorateOne(ctx, updated, viewer)
}

// Delete removes the post and its image object. Only the author may delete.
func (s *PostService) Delete(ctx context.Context, viewer *models.User, id int64) error {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if post.UserID != viewer.ID {
		return models.ErrForbidden
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete post %d: %w", id, err)
	}

	if post.ImageRef != nil && *post.ImageRef != "" {
		if err := s.storage.Delete(ctx, *post.ImageRef); err != nil {
			s.logger.Warn("failed to delete post image",
				slog.String("key", *post.ImageRef),
				slog.Any("error", err))
		}
	}
	return nil
}

func (s *PostService) decorateOne(ctx context.Context, post *models.Post, viewer *models.User) (*PostView, error) {
	views, err := s.decorate(ctx, []*models.Post{post}, viewer)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// decorate batches the count and like lookups so a feed of N posts costs a
// fixed number of queries.
func (s *PostService) decorate(ctx context.Context, posts []*models.Post, viewer *models.User) ([]*PostView, error) {
	ids := make([]int64, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	commentCounts, err := s.comments.CountByPosts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count comments: %w", err)
	}
	likeCounts, err := s.likes.CountByPosts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count likes: %w", err)
	}

	liked := map[int64]bool{}
	if viewer != nil {
		liked, err = s.likes.LikedPostIDs(ctx, viewer.ID, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load like state: %w", err)
		}
	}

	views := make([]*PostView, len(posts))
	for i, p := range posts {
		view := &PostView{
			Post:         p,
			CommentCount: commentCounts[p.ID],
			LikeCount:    likeCounts[p.ID],
			IsLiked:      liked[p.ID],
		}
		if p.ImageRef != nil && *p.ImageRef != "" {
			view.ImageURL, err = s.storage.PresignGet(ctx, *p.ImageRef)
			if err != nil {
				return nil, fmt.Errorf("failed to presign post image: %w", err)
			}
		}
		if p.AuthorProfilePictureRef != nil && *p.AuthorProfilePictureRef != "" {
			view.AuthorProfilePictureURL, err = s.storage.PresignGet(ctx, *p.AuthorProfilePictureRef)
			if err != nil {
				return nil, fmt.Errorf("failed to presign author picture: %w", err)
			}
		}
		views[i] = view
	}
	return views, nil
}
