package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/therealutkarshpriyadarshi/shortforge/internal/cache"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/database"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/pipeline"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/queue"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

const (
	defaultSaveAttempts = 3
	defaultSaveBackoff  = 2 * time.Second
	maxSaveBackoff      = 30 * time.Second
)

// StatusWriter records run progress for the API
type StatusWriter interface {
	SetRunStatus(ctx context.Context, status cache.RunStatus, ttl time.Duration) error
}

// RecordStore is the slice of the record store the worker needs
type RecordStore interface {
	Save(ctx context.Context, record models.PipelineRecord) (string, error)
	GetByRunID(ctx context.Context, runID string) (*models.PipelineRecord, error)
}

type handlerConfig struct {
	Runner       pipeline.Runner
	Records      RecordStore  // optional
	Status       StatusWriter // optional
	StatusTTL    time.Duration
	SaveAttempts int
	SaveBackoff  time.Duration
	Logger       *logging.Logger
}

// newHandler adapts the orchestrator to the queue. Stage failures are
// acknowledged because the failed record is already saved. A record that
// could not be saved is retried on its own; the run is never repeated for it.
func newHandler(cfg handlerConfig) queue.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.SaveAttempts <= 0 {
		cfg.SaveAttempts = defaultSaveAttempts
	}
	if cfg.SaveBackoff <= 0 {
		cfg.SaveBackoff = defaultSaveBackoff
	}
	logger := cfg.Logger

	setStatus := func(ctx context.Context, s cache.RunStatus) {
		if cfg.Status == nil {
			return
		}
		if err := cfg.Status.SetRunStatus(context.WithoutCancel(ctx), s, cfg.StatusTTL); err != nil {
			logger.WithRunID(s.RunID).WithError(err).Warn("Failed to update run status")
		}
	}

	return func(ctx context.Context, req models.RunRequest) error {
		if req.ID == "" {
			return fmt.Errorf("%w: run request without id", queue.ErrPermanent)
		}

		log := logger.WithRunID(req.ID)

		// Redelivery of a run that already finished
		if cfg.Records != nil {
			existing, err := cfg.Records.GetByRunID(ctx, req.ID)
			switch {
			case err == nil && existing.Succeeded():
				log.WithField("record_id", existing.ID).Info("Run already completed, skipping")
				setStatus(ctx, finalStatus(*existing, nil))
				return nil
			case err != nil && !errors.Is(err, database.ErrNotFound):
				log.WithError(err).Warn("Failed to look up previous record")
			}
		}

		log.Info("Processing run")
		setStatus(ctx, cache.RunStatus{RunID: req.ID, State: cache.RunRunning})

		record, err := cfg.Runner.Run(ctx, req)

		var persistErr *pipeline.PersistenceError
		if errors.As(err, &persistErr) {
			record = persistErr.Record
			id, saveErr := saveWithRetry(ctx, cfg, persistErr.Record, log)
			if saveErr != nil {
				log.WithError(saveErr).Error("Run record not saved, giving up")
				setStatus(ctx, cache.RunStatus{RunID: req.ID, State: cache.RunFailed, Reason: models.ReasonPersistenceError, Error: saveErr.Error()})
				return fmt.Errorf("%w: %v", queue.ErrPermanent, saveErr)
			}
			record.ID = id
			// The stage outcome stands; only the save failed
			err = stageError(err)
		}

		if err != nil && ctx.Err() != nil {
			// The cancelled record is replaced when the redelivered run finishes
			log.Warn("Run interrupted by shutdown")
			return ctx.Err()
		}

		if err != nil {
			log.WithError(err).Warn("Run failed")
		} else {
			log.WithField("video", record.VideoPath).Info("Run completed")
		}
		setStatus(ctx, finalStatus(record, err))
		return nil
	}
}

// saveWithRetry saves record with exponential backoff. Saves outlive a
// cancelled ctx; only the waits between them stop early.
func saveWithRetry(ctx context.Context, cfg handlerConfig, record models.PipelineRecord, log *logging.Logger) (string, error) {
	if cfg.Records == nil {
		return "", errors.New("no record store configured")
	}

	saveCtx := context.WithoutCancel(ctx)
	backoff := cfg.SaveBackoff
	var lastErr error
	for attempt := 1; attempt <= cfg.SaveAttempts; attempt++ {
		id, err := cfg.Records.Save(saveCtx, record)
		if err == nil {
			log.WithField("attempt", attempt).Info("Run record saved on retry")
			return id, nil
		}
		lastErr = err
		log.WithError(err).WithField("attempt", attempt).Warn("Record save failed")

		if attempt == cfg.SaveAttempts {
			break
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", fmt.Errorf("save abandoned after %d attempts: %w", attempt, lastErr)
		case <-timer.C:
		}
		backoff *= 2
		if backoff > maxSaveBackoff {
			backoff = maxSaveBackoff
		}
	}
	return "", fmt.Errorf("save failed after %d attempts: %w", cfg.SaveAttempts, lastErr)
}

// stageError strips the persistence failure from a joined run error
func stageError(err error) error {
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		return stageErr
	}
	return nil
}

func finalStatus(record models.PipelineRecord, err error) cache.RunStatus {
	status := cache.RunStatus{
		RunID:     record.RunID,
		State:     cache.RunCompleted,
		RecordID:  record.ID,
		VideoPath: record.VideoPath,
	}
	if err != nil || !record.Succeeded() {
		status.State = cache.RunFailed
		status.Reason = record.Reason
		if err != nil {
			status.Error = err.Error()
		}
	}
	return status
}
