package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/linksylabs/linksy-backend/internal/auth"
	"github.com/linksylabs/linksy-backend/internal/models"
	"github.com/linksylabs/linksy-backend/internal/services"
	httputil "github.com/linksylabs/linksy-backend/pkg/http"
)

// LikeHandler handles the like toggle on posts.
type LikeHandler struct {
	likes  *services.LikeService
	logger *slog.Logger
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(likes *services.LikeService, logger *slog.Logger) *LikeHandler {
	return &LikeHandler{
		likes:  likes,
		logger: logger,
	}
}

// LikeResponse reports the viewer's like state and the post's total count.
type LikeResponse struct {
	IsLiked   bool  `json:"is_liked"`
	LikeCount int64 `json:"like_count"`
}

// Toggle flips the authenticated user's like on a post.
func (h *LikeHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	postID, err := idParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post id")
		return
	}
	user := auth.UserFromContext(r.Context())

	liked, count, err := h.likes.Toggle(r.Context(), user.ID, postID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			httputil.WriteNotFound(w, "Post not found")
			return
		}
		h.logger.Error("like toggle failed", slog.Any("error", err))
		httputil.WriteInternalError(w, "Failed to toggle like")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, LikeResponse{IsLiked: liked, LikeCount: count})
}
