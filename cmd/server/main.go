package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/RayenLT/files/internal/config"
	"github.com/RayenLT/files/internal/handlers"
	"github.com/RayenLT/files/internal/middleware"
	"github.com/RayenLT/files/internal/routes"
	"github.com/RayenLT/files/internal/services"
	"github.com/RayenLT/files/internal/storage"
	"github.com/RayenLT/files/pkg/logger"
)

func main() {
	// 1. Load Config & Initialize Logger
	config.LoadConfig()

	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}
	logger.Init(env, config.AppConfig.LogFile)

	logger.Info().Str("environment", env).Msg("Starting file link server...")

	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 2. Wire store, GitHub client and transfer pipeline
	store := storage.NewLinkStore(config.AppConfig.LinksFile)
	github := services.NewGithubClient(config.AppConfig)
	transfer := services.NewTransfer(github)
	handlers.Init(store, transfer, github)

	logger.Info().
		Str("links_file", store.Path()).
		Str("repo", config.AppConfig.GithubOwner+"/"+config.AppConfig.GithubRepo).
		Int("links", len(store.Load())).
		Msg("Link store ready")

	// 3. Setup Router
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.ErrorHandlerMiddleware())
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.Metrics())

	// Health and metrics bypass rate limiting so probes never get throttled
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/health" || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		middleware.GeneralRateLimit()(c)
	})

	// 4. Register Routes
	routes.RegisterSystemRoutes(r)
	routes.RegisterLinkRoutes(r)
	routes.RegisterAdminRoutes(r)

	// 5. Start Server with graceful shutdown
	port := config.AppConfig.Port
	if port == "" {
		port = "5000"
	}

	// No WriteTimeout: /create holds the response open for the whole
	// download+upload, which can legitimately run for minutes on large files.
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", port).Str("env", env).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("🛑 Shutting down server gracefully...")

	// Give outstanding requests 10 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("✅ Server exited gracefully")
}
