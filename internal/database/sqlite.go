package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/therealutkarshpriyadarshi/shortforge/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

// timeLayout is fixed width so created_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type migration struct {
	version string
	sql     string
}

var sqliteMigrations = []migration{
	{
		version: "001_pipeline_records",
		sql: `CREATE TABLE pipeline_records (
			id            TEXT PRIMARY KEY,
			run_id        TEXT NOT NULL DEFAULT '',
			content_title TEXT NOT NULL DEFAULT '',
			script_hook   TEXT NOT NULL DEFAULT '',
			ai_provider   TEXT NOT NULL DEFAULT '',
			audio_path    TEXT NOT NULL DEFAULT '',
			video_path    TEXT NOT NULL DEFAULT '',
			duration      REAL NOT NULL DEFAULT 0,
			resolution    TEXT NOT NULL DEFAULT '',
			status        TEXT NOT NULL,
			reason        TEXT NOT NULL DEFAULT '',
			error         TEXT NOT NULL DEFAULT '',
			created_at    TEXT NOT NULL
		);
		CREATE INDEX idx_pipeline_records_created_at ON pipeline_records (created_at);`,
	},
	{
		version: "002_background_kind",
		sql:     `ALTER TABLE pipeline_records ADD COLUMN background TEXT NOT NULL DEFAULT ''`,
	},
	{
		version: "003_unique_run_id",
		sql: `DELETE FROM pipeline_records
			WHERE run_id <> '' AND rowid NOT IN (
				SELECT MAX(rowid) FROM pipeline_records WHERE run_id <> '' GROUP BY run_id
			);
		CREATE UNIQUE INDEX idx_pipeline_records_run_id ON pipeline_records (run_id) WHERE run_id <> '';`,
	},
}

// SQLiteStore persists pipeline records in a local SQLite file
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *logging.Logger
}

// OpenSQLite opens or creates the database at path and applies migrations
func OpenSQLite(path string, logger *logging.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps :memory: databases and pragmas consistent.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLiteStore{db: db, path: path, logger: logger}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) applyMigrations(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	for _, m := range sqliteMigrations {
		var count int
		row := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = ?", m.version)
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("scan migration version: %w", err)
		}
		if count > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("record migration %s: %w", m.version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}

// Path returns the database file location
func (s *SQLiteStore) Path() string {
	return s.path
}

// Save inserts a record and returns its id
func (s *SQLiteStore) Save(ctx context.Context, record models.PipelineRecord) (id string, err error) {
	start := time.Now()
	defer func() { observe(s.logger, "save_record", start, err) }()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	err = s.db.QueryRowContext(
		ctx,
		`INSERT INTO pipeline_records (
			id, run_id, content_title, script_hook, ai_provider, audio_path, video_path,
			duration, resolution, background, status, reason, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id) WHERE run_id <> '' DO UPDATE SET `+upsertAssignments+`
		RETURNING id`,
		record.ID, record.RunID, record.ContentTitle, record.ScriptHook, record.AIProvider,
		record.AudioPath, record.VideoPath, record.Duration, record.Resolution, record.Background,
		record.Status, record.Reason, record.Error, record.CreatedAt.UTC().Format(timeLayout),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}

	return id, nil
}

const sqliteColumns = "id, run_id, content_title, script_hook, ai_provider, audio_path, video_path, duration, resolution, background, status, reason, error, created_at"

// List returns the newest records first
func (s *SQLiteStore) List(ctx context.Context, limit int) (records []models.PipelineRecord, err error) {
	start := time.Now()
	defer func() { observe(s.logger, "list_records", start, err) }()

	rows, err := s.db.QueryContext(
		ctx,
		"SELECT "+sqliteColumns+" FROM pipeline_records ORDER BY created_at DESC, id LIMIT ?",
		listLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	records = make([]models.PipelineRecord, 0)
	for rows.Next() {
		record, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// Get retrieves a record by id
func (s *SQLiteStore) Get(ctx context.Context, id string) (record *models.PipelineRecord, err error) {
	start := time.Now()
	defer func() { observe(s.logger, "get_record", start, err) }()

	return s.getWhere(ctx, "id", id)
}

// GetByRunID retrieves the record saved for a run
func (s *SQLiteStore) GetByRunID(ctx context.Context, runID string) (record *models.PipelineRecord, err error) {
	start := time.Now()
	defer func() { observe(s.logger, "get_record_by_run", start, err) }()

	if runID == "" {
		return nil, ErrNotFound
	}
	return s.getWhere(ctx, "run_id", runID)
}

func (s *SQLiteStore) getWhere(ctx context.Context, column, value string) (*models.PipelineRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sqliteColumns+" FROM pipeline_records WHERE "+column+" = ?", value)
	r, err := scanSQLiteRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// Health pings the database
func (s *SQLiteStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func scanSQLiteRecord(row rowScanner) (models.PipelineRecord, error) {
	var (
		r          models.PipelineRecord
		createdRaw string
	)
	if err := row.Scan(
		&r.ID, &r.RunID, &r.ContentTitle, &r.ScriptHook, &r.AIProvider, &r.AudioPath,
		&r.VideoPath, &r.Duration, &r.Resolution, &r.Background, &r.Status, &r.Reason,
		&r.Error, &createdRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scan record: %w", err)
	}

	created, err := time.Parse(time.RFC3339Nano, createdRaw)
	if err != nil {
		return r, fmt.Errorf("parse created_at %q: %w", createdRaw, err)
	}
	r.CreatedAt = created

	return r, nil
}
