package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linksylabs/linksy-backend/internal/models"
)

func newTestPostService(posts PostRepository, comments CommentCounter, likes LikeReader) *PostService {
	if posts == nil {
		posts = &MockPostRepository{}
	}
	if comments == nil {
		comments = &MockCommentRepository{}
	}
	if likes == nil {
		likes = &MockLikeRepository{}
	}
	return NewPostService(posts, comments, likes, &MockObjectStorage{}, testLogger())
}

func TestPostCreate_WithImage(t *testing.T) {
	var attachedRef *string
	posts := &MockPostRepository{
		CreateFunc: func(ctx context.Context, post *models.Post) (*models.Post, error) {
			out := *post
			out.ID = 10
			return &out, nil
		},
		SetImageRefFunc: func(ctx context.Context, id int64, imageRef *string) error {
			attachedRef = imageRef
			return nil
		},
	}

	view, err := newTestPostService(posts, nil, nil).
		Create(context.Background(), 1, "Title", "Content", pngBytes)

	require.NoError(t, err)
	require.NotNil(t, attachedRef)
	assert.Contains(t, *attachedRef, "post-images/10/")
	assert.NotEmpty(t, view.ImageURL)
}

func TestPostCreate_InvalidImageRejectedBeforeInsert(t *testing.T) {
	posts := &MockPostRepository{
		CreateFunc: func(ctx context.Context, post *models.Post) (*models.Post, error) {
			t.Fatal("no row may be written when the image is invalid")
			return nil, nil
		},
	}

	_, err := newTestPostService(posts, nil, nil).
		Create(context.Background(), 1, "Title", "Content", []byte("not an image"))
	assert.Error(t, err)
}

func TestPostList_DecoratesWithCountsAndLikeState(t *testing.T) {
	posts := &MockPostRepository{
		ListAllFunc: func(ctx context.Context) ([]*models.Post, error) {
			return []*models.Post{
				{ID: 1, Title: "a", UserID: 2},
				{ID: 2, Title: "b", UserID: 3},
			}, nil
		},
	}
	comments := &MockCommentRepository{
		CountByPostsFunc: func(ctx context.Context, postIDs []int64) (map[int64]int64, error) {
			return map[int64]int64{1: 4}, nil
		},
	}
	likes := &MockLikeRepository{
		CountByPostsFunc: func(ctx context.Context, postIDs []int64) (map[int64]int64, error) {
			return map[int64]int64{1: 7, 2: 1}, nil
		},
		LikedPostIDsFunc: func(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
			return map[int64]bool{2: true}, nil
		},
	}

	viewer := &models.User{ID: 9}
	views, err := newTestPostService(posts, comments, likes).List(context.Background(), viewer)

	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, int64(4), views[0].CommentCount)
	assert.Equal(t, int64(7), views[0].LikeCount)
	assert.False(t, views[0].IsLiked)
	assert.True(t, views[1].IsLiked)
}

func TestPostList_AnonymousViewerHasNoLikeState(t *testing.T) {
	posts := &MockPostRepository{
		ListAllFunc: func(ctx context.Context) ([]*models.Post, error) {
			return []*models.Post{{ID: 1, Title: "a", UserID: 2}}, nil
		},
	}
	likes := &MockLikeRepository{
		LikedPostIDsFunc: func(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
			t.Fatal("anonymous feeds must not query like state")
			return nil, nil
		},
	}

	views, err := newTestPostService(posts, nil, likes).List(context.Background(), nil)

	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.False(t, views[0].IsLiked)
}

func TestPostUpdate_OnlyAuthor(t *testing.T) {
	posts := &MockPostRepository{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 2}, nil
		},
	}

	viewer := &models.User{ID: 9}
	_, err := newTestPostService(posts, nil, nil).Update(context.Background(), viewer, 1, "t", "c")
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestPostDelete_RemovesImageObject(t *testing.T) {
	ref := "post-images/1/img.png"
	posts := &MockPostRepository{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 9, ImageRef: &ref}, nil
		},
	}
	var deletedKey string
	store := &MockObjectStorage{
		DeleteFunc: func(ctx context.Context, key string) error {
			deletedKey = key
			return nil
		},
	}
	svc := NewPostService(posts, &MockCommentRepository{}, &MockLikeRepository{}, store, testLogger())

	viewer := &models.User{ID: 9}
	err := svc.Delete(context.Background(), viewer, 1)

	require.NoError(t, err)
	assert.Equal(t, ref, deletedKey)
}

func TestLikeToggle_MissingPost(t *testing.T) {
	svc := NewLikeService(&MockLikeRepository{}, &MockPostRepository{}, testLogger())

	_, _, err := svc.Toggle(context.Background(), 1, 404)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestLikeToggle_ReturnsStateAndCount(t *testing.T) {
	posts := &MockPostRepository{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 2}, nil
		},
	}
	likes := &MockLikeRepository{
		ToggleFunc: func(ctx context.Context, userID, postID int64) (bool, int64, error) {
			return true, 3, nil
		},
	}
	svc := NewLikeService(likes, posts, testLogger())

	liked, count, err := svc.Toggle(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, int64(3), count)
}
