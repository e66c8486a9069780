// Package scheduledb is the warm-start schedule cache: a SQLite file holding
// the last accepted schedule and its conditional request headers, so a
// restart can publish a snapshot before the first upstream fetch completes.
package scheduledb

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // CGo-based SQLite driver

	"zetlive.dev/internal/logging"
)

//go:embed schema.sql
var ddl string

// ErrBadDirectory marks a cache path whose directory cannot be used at all.
// A corrupt database file is a different, recoverable condition.
var ErrBadDirectory = errors.New("schedule cache directory unusable")

// Meta keys for the conditional request pair and snapshot age.
const (
	metaCreatedAt    = "created_at"
	metaLastModified = "last_modified"
	metaETag         = "etag"
)

// Store wraps the cache database. All methods are safe for concurrent use;
// writes are serialized by the schedule fetch loop anyway.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open creates or opens the cache at path and runs the schema migration.
// Directory problems return ErrBadDirectory; anything after that (a corrupt
// or unreadable database file) returns a plain error the caller may treat as
// non-fatal.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.WithComponent(logger, "scheduledb")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadDirectory, err)
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return nil, fmt.Errorf("%w: %s is not a directory", ErrBadDirectory, dir)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open schedule cache: %w", err)
	}

	ctx := context.Background()
	if err := configurePerformance(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	configureConnectionPool(db, path)

	logging.LogOperation(logger, "schedule_cache_opened", slog.String("path", path))

	return &Store{db: db, path: path, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying pool for the metrics collector.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Path() string {
	return s.path
}

func migrate(ctx context.Context, db *sql.DB) error {
	statements := strings.Split(ddl, "-- migrate")
	for _, stmt := range statements {
		trimmed := strings.TrimSpace(stmt)
		if trimmed == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, trimmed); err != nil {
			return fmt.Errorf("error executing DDL statement [%s]: %w", trimmed, err)
		}
	}
	return nil
}

// configurePerformance applies PRAGMA settings for bulk imports and reads.
func configurePerformance(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}

// configureConnectionPool limits :memory: databases to a single connection
// since each connection would otherwise get its own empty database. File
// databases allow concurrent readers under WAL.
func configureConnectionPool(db *sql.DB, path string) {
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		return
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
}
