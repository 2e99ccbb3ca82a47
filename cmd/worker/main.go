package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/therealutkarshpriyadarshi/shortforge/internal/app"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/cache"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/config"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/metrics"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/queue"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/tracing"
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

	tracer, err := tracing.Init(cfg.Tracing)
	if err != nil {
		logger.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer tracer.Close()

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to build pipeline: %v", err)
	}
	defer a.Close()

	q, err := queue.New(cfg.Queue, logger.WithField("component", "queue"))
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	var status StatusWriter
	if a.Redis != nil {
		status = a.Redis
	} else if redis, err := cache.NewCache(cfg.Redis); err != nil {
		logger.WithError(err).Warn("Redis unavailable, run status is not tracked")
	} else {
		defer redis.Close()
		status = redis
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Enabled {
		server := metrics.NewServer(cfg.Metrics.Port, a.Health, logger)
		go func() {
			if err := server.Start(); err != nil {
				logger.ErrorWithErr("Metrics server stopped", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down worker gracefully...")
		cancel()
	}()

	handler := newHandler(handlerConfig{
		Runner:    a.Orchestrator,
		Records:   a.Records,
		Status:    status,
		StatusTTL: cfg.Server.StatusTTL,
		Logger:    logger.WithField("component", "worker"),
	})

	go reportQueueDepth(ctx, q, 15*time.Second, logger)

	logger.Infof("Worker started, consuming %s", q.Name())
	if err := q.Consume(ctx, handler); err != nil && ctx.Err() == nil {
		logger.ErrorWithErr("Failed to consume runs", err)
		return
	}

	logger.Info("Worker stopped")
}

type depthSource interface {
	Name() string
	DeadLetterQueueName() string
	GetQueueDepth() (int, error)
	GetDLQDepth() (int, error)
}

// reportQueueDepth publishes queue depths every interval until ctx is done
func reportQueueDepth(ctx context.Context, q depthSource, interval time.Duration, logger *logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		refreshQueueDepth(q, logger)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func refreshQueueDepth(q depthSource, logger *logging.Logger) {
	if depth, err := q.GetQueueDepth(); err != nil {
		logger.WithError(err).Debug("Failed to read queue depth")
	} else {
		metrics.SetQueueDepth(q.Name(), depth)
	}
	if depth, err := q.GetDLQDepth(); err != nil {
		logger.WithError(err).Debug("Failed to read dead letter queue depth")
	} else {
		metrics.SetQueueDepth(q.DeadLetterQueueName(), depth)
	}
}
