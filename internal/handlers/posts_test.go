package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linksylabs/linksy-backend/internal/handlers"
	"github.com/linksylabs/linksy-backend/internal/models"
	"github.com/linksylabs/linksy-backend/internal/services"
)

func newPostRouter(posts services.PostRepository, likes services.LikeRepository) *chi.Mux {
	if posts == nil {
		posts = &services.MockPostRepository{}
	}
	if likes == nil {
		likes = &services.MockLikeRepository{}
	}
	postSvc := services.NewPostService(posts, &services.MockCommentRepository{}, likes, &services.MockObjectStorage{}, testLogger())
	likeSvc := services.NewLikeService(likes, posts, testLogger())

	postHandler := handlers.NewPostHandler(postSvc, testLogger())
	likeHandler := handlers.NewLikeHandler(likeSvc, testLogger())

	r := chi.NewRouter()
	r.Get("/posts/{id}", postHandler.Get)
	r.Put("/posts/{id}", postHandler.Update)
	r.Delete("/posts/{id}", postHandler.Delete)
	r.Post("/posts/{id}/like", likeHandler.Toggle)
	return r
}

func TestGetPost_AnonymousViewer(t *testing.T) {
	posts := &services.MockPostRepository{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.Post, error) {
			return &models.Post{ID: id, Title: "hello", UserID: 2, AuthorUsername: "ada.lovelace"}, nil
		},
	}
	router := newPostRouter(posts, nil)

	req := httptest.NewRequest("GET", "/posts/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp handlers.PostResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "hello", resp.Title)
	assert.Equal(t, "ada.lovelace", resp.AuthorUsername)
	assert.False(t, resp.IsLiked)
}

func TestGetPost_NotFound(t *testing.T) {
	router := newPostRouter(nil, nil)

	req := httptest.NewRequest("GET", "/posts/404", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	handlers.AssertErrorResponse(t, w, 404, "not_found")
}

func TestGetPost_InvalidID(t *testing.T) {
	router := newPostRouter(nil, nil)

	req := httptest.NewRequest("GET", "/posts/abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestUpdatePost_NonAuthorForbidden(t *testing.T) {
	posts := &services.MockPostRepository{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 2}, nil
		},
	}
	router := newPostRouter(posts, nil)

	req := handlers.NewTestRequest(t, "PUT", "/posts/1", handlers.UpdatePostRequest{Title: "t", Content: "c"})
	req = handlers.WithUserContext(req, &models.User{ID: 9})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	handlers.AssertErrorResponse(t, w, 403, "forbidden")
}

func TestDeletePost_Author(t *testing.T) {
	var deleted bool
	posts := &services.MockPostRepository{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 9}, nil
		},
		DeleteFunc: func(ctx context.Context, id int64) error {
			deleted = true
			return nil
		},
	}
	router := newPostRouter(posts, nil)

	req := httptest.NewRequest("DELETE", "/posts/1", nil)
	req = handlers.WithUserContext(req, &models.User{ID: 9})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, deleted)
}

func TestToggleLike(t *testing.T) {
	posts := &services.MockPostRepository{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 2}, nil
		},
	}
	likes := &services.MockLikeRepository{
		ToggleFunc: func(ctx context.Context, userID, postID int64) (bool, int64, error) {
			return true, 8, nil
		},
	}
	router := newPostRouter(posts, likes)

	req := httptest.NewRequest("POST", "/posts/1/like", nil)
	req = handlers.WithUserContext(req, &models.User{ID: 9})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp handlers.LikeResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.True(t, resp.IsLiked)
	assert.Equal(t, int64(8), resp.LikeCount)
}
