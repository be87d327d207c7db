package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/linksylabs/linksy-backend/internal/auth"
	"github.com/linksylabs/linksy-backend/internal/config"
	"github.com/linksylabs/linksy-backend/internal/database"
	"github.com/linksylabs/linksy-backend/internal/handlers"
	"github.com/linksylabs/linksy-backend/internal/idp"
	middlewareCustom "github.com/linksylabs/linksy-backend/internal/middleware"
	"github.com/linksylabs/linksy-backend/internal/repositories"
	"github.com/linksylabs/linksy-backend/internal/routes"
	"github.com/linksylabs/linksy-backend/internal/services"
	"github.com/linksylabs/linksy-backend/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("auth_mode", cfg.Auth.Mode))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize object storage
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 15*time.Second)
	objectStore, err := storage.NewS3Storage(startupCtx, cfg.Storage, logger)
	if err != nil {
		logger.Error("failed to initialize object storage", slog.Any("error", err))
		os.Exit(1)
	}
	if err := objectStore.EnsureBucket(startupCtx); err != nil {
		logger.Error("failed to ensure storage bucket", slog.Any("error", err))
		os.Exit(1)
	}
	startupCancel()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	postRepo := repositories.NewPostRepository(db)
	commentRepo := repositories.NewCommentRepository(db)
	likeRepo := repositories.NewLikeRepository(db)

	// Build the authenticator for the configured mode. The choice is made
	// once here; handlers never branch on mode.
	var authenticator services.Authenticator
	switch cfg.Auth.Mode {
	case config.ModeFederated:
		idpClient := idp.NewClient(cfg.IdP, logger)
		reconciler := services.NewReconciler(userRepo, cfg.Auth.SyncTTL, logger)
		authenticator = services.NewFederatedAuthService(userRepo, idpClient, reconciler, logger)
	case config.ModeLegacy:
		tokenManager := auth.NewLegacyTokenManager(cfg.Auth.LegacySigningSecret, cfg.Auth.LegacyTokenExpiry)
		authenticator = services.NewLegacyAuthService(userRepo, tokenManager, logger)
	default:
		logger.Error("unknown auth mode", slog.String("mode", cfg.Auth.Mode))
		os.Exit(1)
	}

	// Initialize services
	userService := services.NewUserService(userRepo, objectStore, logger)
	postService := services.NewPostService(postRepo, commentRepo, likeRepo, objectStore, logger)
	commentService := services.NewCommentService(commentRepo, postRepo, objectStore, logger)
	likeService := services.NewLikeService(likeRepo, postRepo, logger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authenticator, logger)
	userHandler := handlers.NewUserHandler(userService, logger)
	postHandler := handlers.NewPostHandler(postService, logger)
	commentHandler := handlers.NewCommentHandler(commentService, logger)
	likeHandler := handlers.NewLikeHandler(likeService, logger)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.Env)
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authenticator, authHandler, userHandler, postHandler, commentHandler, likeHandler)

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Welcome to the Linksy API"}`))
	})

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
