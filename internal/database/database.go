package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/shortforge/internal/config"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/metrics"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultListLimit bounds List when the caller passes a non-positive limit
const DefaultListLimit = 50

// ErrNotFound is returned when a record id is unknown
var ErrNotFound = errors.New("record not found")

// Store persists pipeline records. Both backends implement it. A run has at
// most one record: saving again under the same run id replaces it and keeps
// the original record id.
type Store interface {
	Save(ctx context.Context, record models.PipelineRecord) (string, error)
	List(ctx context.Context, limit int) ([]models.PipelineRecord, error)
	Get(ctx context.Context, id string) (*models.PipelineRecord, error)
	GetByRunID(ctx context.Context, runID string) (*models.PipelineRecord, error)
	Health(ctx context.Context) error
	Close() error
}

// Open connects to the configured backend and applies the schema
func Open(cfg config.DatabaseConfig, logger *logging.Logger) (Store, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	switch strings.ToLower(cfg.Driver) {
	case "", DriverSQLite:
		store, err := OpenSQLite(cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverPostgres, "postgresql":
		db, err := New(cfg)
		if err != nil {
			return nil, err
		}
		store, err := NewPostgresStore(db, logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

// observe records metrics and a log line for one database operation
func observe(logger *logging.Logger, operation string, start time.Time, err error) {
	elapsed := time.Since(start)
	status := "success"
	if err != nil && !errors.Is(err, ErrNotFound) {
		status = "error"
	}
	metrics.RecordDatabaseOperation(operation, status, elapsed.Seconds())
	if err != nil && !errors.Is(err, ErrNotFound) {
		logger.LogDatabaseOperation(operation, elapsed, err)
		return
	}
	logger.Debugf("database %s took %s", operation, elapsed)
}

// upsertAssignments replaces every column but id on a run id conflict
const upsertAssignments = `content_title = excluded.content_title,
			script_hook = excluded.script_hook,
			ai_provider = excluded.ai_provider,
			audio_path = excluded.audio_path,
			video_path = excluded.video_path,
			duration = excluded.duration,
			resolution = excluded.resolution,
			background = excluded.background,
			status = excluded.status,
			reason = excluded.reason,
			error = excluded.error,
			created_at = excluded.created_at`
