package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/therealutkarshpriyadarshi/shortforge/internal/cache"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/catalog"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/config"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/database"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/middleware"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/provider"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/queue"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/transcoder"
)

func main() {
	// A missing .env is fine
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	records, err := database.Open(cfg.Database, logger.WithField("component", "database"))
	if err != nil {
		logger.Fatalf("Failed to open record store: %v", err)
	}
	defer records.Close()

	q, err := queue.New(cfg.Queue, logger.WithField("component", "queue"))
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	// Run status is best effort; without redis the API answers from records
	var status StatusStore
	if redis, err := cache.NewCache(cfg.Redis); err != nil {
		logger.WithError(err).Warn("Redis unavailable, run status limited to finished records")
	} else {
		defer redis.Close()
		status = redis
	}

	// Names only; no provider is constructed here
	registry := provider.NewRegistry()
	if err := catalog.Register(registry, cfg, catalog.Deps{
		FFmpeg: transcoder.NewFFmpeg(cfg.App.FFmpegPath, cfg.App.FFprobePath),
		Logger: logger,
	}); err != nil {
		logger.Fatalf("Failed to register providers: %v", err)
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go limiter.Cleanup(ctx, time.Minute, 10*time.Minute)

	api := &API{
		records:   records,
		queue:     q,
		status:    status,
		registry:  registry,
		statusTTL: cfg.Server.StatusTTL,
		logger:    logger.WithField("component", "api"),
	}
	auth := middleware.NewAuthenticator(cfg.Server.JWTSecret)
	if !auth.Enabled() {
		logger.Warn("JWT_SECRET not set, run submission is unauthenticated")
	}
	router := setupRouter(api, auth, limiter, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithErr("Server forced to shutdown", err)
	}

	logger.Info("Server stopped")
}
