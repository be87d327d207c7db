package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/linksylabs/linksy-backend/internal/auth"
	"github.com/linksylabs/linksy-backend/internal/models"
	"github.com/linksylabs/linksy-backend/internal/services"
	"github.com/linksylabs/linksy-backend/internal/storage"
	httputil "github.com/linksylabs/linksy-backend/pkg/http"
)

// maxPostFormMemory bounds in-memory multipart parsing; larger parts spill
// to disk.
const maxPostFormMemory = 10 << 20

// PostHandler handles post CRUD endpoints.
type PostHandler struct {
	posts  *services.PostService
	logger *slog.Logger
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(posts *services.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{
		posts:  posts,
		logger: logger,
	}
}

// UpdatePostRequest represents the request body for editing a post
type UpdatePostRequest struct {
	Title   string `json:"title" validate:"required,min=1,max=200"`
	Content string `json:"content" validate:"required,min=1"`
}

// PostResponse represents a post in the HTTP response
type PostResponse struct {
	ID                      int64  `json:"id"`
	Title                   string `json:"title"`
	Content                 string `json:"content"`
	UserID                  int64  `json:"user_id"`
	AuthorUsername          string `json:"author_username"`
	AuthorProfilePictureURL string `json:"author_profile_picture_url,omitempty"`
	ImageURL                string `json:"image_url,omitempty"`
	CommentCount            int64  `json:"comment_count"`
	LikeCount               int64  `json:"like_count"`
	IsLiked                 bool   `json:"is_liked"`
	CreatedAt               string `json:"created_at"`
	UpdatedAt               string `json:"updated_at"`
}

func postViewToResponse(view *services.PostView) *PostResponse {
	return &PostResponse{
		ID:                      view.ID,
		Title:                   view.Title,
		Content:                 view.Content,
		UserID:                  view.UserID,
		AuthorUsername:          view.AuthorUsername,
		AuthorProfilePictureURL: view.AuthorProfilePictureURL,
		ImageURL:                view.ImageURL,
		CommentCount:            view.CommentCount,
		LikeCount:               view.LikeCount,
		IsLiked:                 view.IsLiked,
		CreatedAt:               view.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:               view.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func postViewsToResponse(views []*services.PostView) []*PostResponse {
	out := make([]*PostResponse, len(views))
	for i, v := range views {
		out[i] = postViewToResponse(v)
	}
	return out
}

// idParam parses a positive integer URL parameter.
func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// Create publishes a post from a multipart form: title, content, and an
// optional image part.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	if err := r.ParseMultipartForm(maxPostFormMemory); err != nil {
		httputil.WriteBadRequest(w, "Invalid multipart body")
		return
	}

	title := r.PostFormValue("title")
	content := r.PostFormValue("content")
	if title == "" || content == "" {
		httputil.WriteBadRequest(w, "title and content are required")
		return
	}

	var image []byte
	if file, _, err := r.FormFile("image"); err == nil {
		defer file.Close()
		image, err = io.ReadAll(io.LimitReader(file, storage.MaxImageSize+1))
		if err != nil {
			httputil.WriteBadRequest(w, "Failed to read image")
			return
		}
	}

	view, err := h.posts.Create(r.Context(), user.ID, title, content, image)
	if err != nil {
		h.writePostError(w, err, "Failed to create post")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, postViewToResponse(view))
}

// List returns the global feed. Anonymous viewers are allowed.
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	viewer := auth.UserFromContext(r.Context())

	views, err := h.posts.List(r.Context(), viewer)
	if err != nil {
		h.writePostError(w, err, "Failed to list posts")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, postViewsToResponse(views))
}

// ListMine returns the authenticated user's posts.
func (h *PostHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	views, err := h.posts.ListByUser(r.Context(), user.ID, user)
	if err != nil {
		h.writePostError(w, err, "Failed to list posts")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, postViewsToResponse(views))
}

// Get returns one post. Anonymous viewers are allowed.
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post id")
		return
	}
	viewer := auth.UserFromContext(r.Context())

	view, err := h.posts.Get(r.Context(), id, viewer)
	if err != nil {
		h.writePostError(w, err, "Failed to load post")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, postViewToResponse(view))
}

// Update edits a post's title and content.
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post id")
		return
	}
	user := auth.UserFromContext(r.Context())

	var req UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	view, err := h.posts.Update(r.Context(), user, id, req.Title, req.Content)
	if err != nil {
		h.writePostError(w, err, "Failed to update post")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, postViewToResponse(view))
}

// Delete removes a post.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post id")
		return
	}
	user := auth.UserFromContext(r.Context())

	if err := h.posts.Delete(r.Context(), user, id); err != nil {
		h.writePostError(w, err, "Failed to delete post")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PostHandler) writePostError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		httputil.WriteNotFound(w, "Post not found")
	case errors.Is(err, models.ErrForbidden):
		httputil.WriteForbidden(w, "Only the author can modify this post")
	case errors.Is(err, storage.ErrImageTooLarge):
		httputil.WriteError(w, http.StatusRequestEntityTooLarge, "IMAGE_TOO_LARGE", "Image exceeds the 5 MB limit")
	case errors.Is(err, storage.ErrUnsupportedImage):
		httputil.WriteBadRequest(w, "Unsupported image type, use JPEG, PNG, or WebP")
	default:
		h.logger.Error("post request failed", slog.Any("error", err))
		httputil.WriteInternalError(w, fallback)
	}
}
