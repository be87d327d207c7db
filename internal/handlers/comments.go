package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/linksylabs/linksy-backend/internal/auth"
	"github.com/linksylabs/linksy-backend/internal/models"
	"github.com/linksylabs/linksy-backend/internal/services"
	httputil "github.com/linksylabs/linksy-backend/pkg/http"
)

// CommentHandler handles comment endpoints under /posts/{id}/comments.
type CommentHandler struct {
	comments *services.CommentService
	logger   *slog.Logger
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(comments *services.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{
		comments: comments,
		logger:   logger,
	}
}

// CommentRequest represents the request body for creating or editing a comment
type CommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}

// CommentResponse represents a comment in the HTTP response
type CommentResponse struct {
	ID                      int64  `json:"id"`
	PostID                  int64  `json:"post_id"`
	UserID                  int64  `json:"user_id"`
	Content                 string `json:"content"`
	AuthorUsername          string `json:"author_username"`
	AuthorProfilePictureURL string `json:"author_profile_picture_url,omitempty"`
	CreatedAt               string `json:"created_at"`
	UpdatedAt               string `json:"updated_at"`
}

func commentViewToResponse(view *services.CommentView) *CommentResponse {
	return &CommentResponse{
		ID:                      view.ID,
		PostID:                  view.PostID,
		UserID:                  view.UserID,
		Content:                 view.Content,
		AuthorUsername:          view.AuthorUsername,
		AuthorProfilePictureURL: view.AuthorProfilePictureURL,
		CreatedAt:               view.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:               view.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// Create adds a comment to a post.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	postID, err := idParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post id")
		return
	}
	user := auth.UserFromContext(r.Context())

	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	view, err := h.comments.Create(r.Context(), user.ID, postID, req.Content)
	if err != nil {
		h.writeCommentError(w, err, "Failed to create comment")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, commentViewToResponse(view))
}

// ListByPost returns a post's comments.
func (h *CommentHandler) ListByPost(w http.ResponseWriter, r *http.Request) {
	postID, err := idParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post id")
		return
	}

	views, err := h.comments.ListByPost(r.Context(), postID)
	if err != nil {
		h.writeCommentError(w, err, "Failed to list comments")
		return
	}

	out := make([]*CommentResponse, len(views))
	for i, v := range views {
		out[i] = commentViewToResponse(v)
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// Update edits a comment's content.
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	commentID, err := idParam(r, "commentID")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid comment id")
		return
	}
	user := auth.UserFromContext(r.Context())

	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	view, err := h.comments.Update(r.Context(), user, commentID, req.Content)
	if err != nil {
		h.writeCommentError(w, err, "Failed to update comment")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, commentViewToResponse(view))
}

// Delete removes a comment.
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	commentID, err := idParam(r, "commentID")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid comment id")
		return
	}
	user := auth.UserFromContext(r.Context())

	if err := h.comments.Delete(r.Context(), user, commentID); err != nil {
		h.writeCommentError(w, err, "Failed to delete comment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CommentHandler) writeCommentError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		httputil.WriteNotFound(w, "Not found")
	case errors.Is(err, models.ErrForbidden):
		httputil.WriteForbidden(w, "Only the author can modify this comment")
	default:
		h.logger.Error("comment request failed", slog.Any("error", err))
		httputil.WriteInternalError(w, fallback)
	}
}
