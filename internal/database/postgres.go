package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/config"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

// DB wraps the database connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// DSN builds a pgx connection string. An explicit URL wins over the discrete fields.
func DSN(cfg config.DatabaseConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d pool_min_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
		cfg.MaxConns, cfg.MinConns,
	)
}

// New creates a new database connection
func New(cfg config.DatabaseConfig) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Health checks if the database is healthy
func (db *DB) Health(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS pipeline_records (
		id            TEXT PRIMARY KEY,
		run_id        TEXT NOT NULL DEFAULT '',
		content_title TEXT NOT NULL DEFAULT '',
		script_hook   TEXT NOT NULL DEFAULT '',
		ai_provider   TEXT NOT NULL DEFAULT '',
		audio_path    TEXT NOT NULL DEFAULT '',
		video_path    TEXT NOT NULL DEFAULT '',
		duration      DOUBLE PRECISION NOT NULL DEFAULT 0,
		resolution    TEXT NOT NULL DEFAULT '',
		background    TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL,
		reason        TEXT NOT NULL DEFAULT '',
		error         TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_pipeline_records_created_at ON pipeline_records (created_at DESC);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_pipeline_records_run_id ON pipeline_records (run_id) WHERE run_id <> '';
`

// PostgresStore persists pipeline records in PostgreSQL
type PostgresStore struct {
	db     *DB
	logger *logging.Logger
}

// NewPostgresStore applies the schema and returns a store on db
func NewPostgresStore(db *DB, logger *logging.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := db.Pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &PostgresStore{db: db, logger: logger}, nil
}

// Save inserts a record and returns its id
func (s *PostgresStore) Save(ctx context.Context, record models.PipelineRecord) (id string, err error) {
	start := time.Now()
	defer func() { observe(s.logger, "save_record", start, err) }()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO pipeline_records (id, run_id, content_title, script_hook, ai_provider, audio_path,
			video_path, duration, resolution, background, status, reason, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (run_id) WHERE run_id <> '' DO UPDATE SET ` + upsertAssignments + `
		RETURNING id
	`

	err = s.db.Pool.QueryRow(ctx, query,
		record.ID, record.RunID, record.ContentTitle, record.ScriptHook, record.AIProvider,
		record.AudioPath, record.VideoPath, record.Duration, record.Resolution, record.Background,
		record.Status, record.Reason, record.Error, record.CreatedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to save record: %w", err)
	}

	return id, nil
}

// List returns the newest records first
func (s *PostgresStore) List(ctx context.Context, limit int) (records []models.PipelineRecord, err error) {
	start := time.Now()
	defer func() { observe(s.logger, "list_records", start, err) }()

	query := `
		SELECT id, run_id, content_title, script_hook, ai_provider, audio_path, video_path,
		       duration, resolution, background, status, reason, error, created_at
		FROM pipeline_records
		ORDER BY created_at DESC, id
		LIMIT $1
	`

	rows, err := s.db.Pool.Query(ctx, query, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	records = make([]models.PipelineRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// Get retrieves a record by id
func (s *PostgresStore) Get(ctx context.Context, id string) (record *models.PipelineRecord, err error) {
	start := time.Now()
	defer func() { observe(s.logger, "get_record", start, err) }()

	return s.getWhere(ctx, "id", id)
}

// GetByRunID retrieves the record saved for a run
func (s *PostgresStore) GetByRunID(ctx context.Context, runID string) (record *models.PipelineRecord, err error) {
	start := time.Now()
	defer func() { observe(s.logger, "get_record_by_run", start, err) }()

	if runID == "" {
		return nil, ErrNotFound
	}
	return s.getWhere(ctx, "run_id", runID)
}

func (s *PostgresStore) getWhere(ctx context.Context, column, value string) (*models.PipelineRecord, error) {
	query := `
		SELECT id, run_id, content_title, script_hook, ai_provider, audio_path, video_path,
		       duration, resolution, background, status, reason, error, created_at
		FROM pipeline_records
		WHERE ` + column + ` = $1
	`

	r, err := scanRecord(s.db.Pool.QueryRow(ctx, query, value))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return &r, nil
}

// Health pings the pool
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}

// Close closes the pool
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (models.PipelineRecord, error) {
	var r models.PipelineRecord
	err := row.Scan(
		&r.ID, &r.RunID, &r.ContentTitle, &r.ScriptHook, &r.AIProvider, &r.AudioPath,
		&r.VideoPath, &r.Duration, &r.Resolution, &r.Background, &r.Status, &r.Reason,
		&r.Error, &r.CreatedAt,
	)
	return r, err
}
