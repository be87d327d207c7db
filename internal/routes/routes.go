package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/linksylabs/linksy-backend/internal/auth"
	"github.com/linksylabs/linksy-backend/internal/handlers"
	"github.com/linksylabs/linksy-backend/internal/services"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authenticator services.Authenticator,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	postHandler *handlers.PostHandler,
	commentHandler *handlers.CommentHandler,
	likeHandler *handlers.LikeHandler,
) {
	// Public routes - no authentication required
	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/token", authHandler.Token)

	// Feed reads allow anonymous viewers
	router.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(authenticator))

		r.Get("/posts", postHandler.List)
		r.Get("/posts/{id}", postHandler.Get)
		r.Get("/posts/{id}/comments", commentHandler.ListByPost)
	})

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(authenticator))

		r.Get("/users/me", userHandler.GetMe)
		r.Put("/users/me", userHandler.UpdateMe)
		r.Post("/users/me/password", userHandler.ChangePassword)
		r.Post("/users/me/profile-picture", userHandler.UploadProfilePicture)
		r.Delete("/users/me/profile-picture", userHandler.DeleteProfilePicture)

		r.Post("/posts", postHandler.Create)
		r.Get("/posts/mine", postHandler.ListMine)
		r.Put("/posts/{id}", postHandler.Update)
		r.Delete("/posts/{id}", postHandler.Delete)
		r.Post("/posts/{id}/like", likeHandler.Toggle)

		r.Post("/posts/{id}/comments", commentHandler.Create)
		r.Put("/posts/{id}/comments/{commentID}", commentHandler.Update)
		r.Delete("/posts/{id}/comments/{commentID}", commentHandler.Delete)
	})
}
