// Package manifest records generated versions in PostgreSQL, one row per
// (source, version), so later runs and other tools can see what exists.
package manifest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/fruitsalade/mediagen/internal/generator"
	"github.com/fruitsalade/mediagen/internal/logging"
)

// Status values stored per entry.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS mediagen_versions (
	source       TEXT NOT NULL,
	version      TEXT NOT NULL,
	category     TEXT NOT NULL,
	path         TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	duration_ms  BIGINT NOT NULL DEFAULT 0,
	generated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (source, version)
)`

// Entry is one recorded version.
type Entry struct {
	Source      string
	Version     string
	Category    string
	Path        string
	Status      string
	Error       string
	Duration    time.Duration
	GeneratedAt time.Time
}

// Entries flattens result into rows in outcome order.
func Entries(result generator.BatchResult) []Entry {
	out := make([]Entry, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		e := Entry{
			Source:   result.File.Path,
			Version:  o.Version,
			Category: result.File.Category,
			Path:     o.Path,
			Status:   StatusOK,
			Duration: o.Duration,
		}
		if !o.OK {
			e.Status = StatusFailed
			if o.Err != nil {
				e.Error = o.Err.Error()
			}
		}
		out = append(out, e)
	}
	return out
}

// Store is a PostgreSQL manifest.
type Store struct {
	db *sql.DB
}

// Open connects to databaseURL and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing connection.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the manifest table if missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create manifest table: %w", err)
	}
	return nil
}

// Record upserts one row per outcome of result in a single transaction.
func (s *Store) Record(ctx context.Context, result generator.BatchResult) error {
	entries := Entries(result)
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO mediagen_versions (source, version, category, path, status, error, duration_ms, generated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			ON CONFLICT (source, version) DO UPDATE SET
				category=$3, path=$4, status=$5, error=$6, duration_ms=$7, generated_at=NOW()`,
			e.Source, e.Version, e.Category, e.Path, e.Status, e.Error, e.Duration.Milliseconds())
		if err != nil {
			return fmt.Errorf("upsert %s/%s: %w", e.Source, e.Version, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	logging.Debug("manifest: recorded",
		zap.String("source", result.File.Path),
		zap.Int("versions", len(entries)))
	return nil
}

// Versions returns the recorded entries for source ordered by version id.
func (s *Store) Versions(ctx context.Context, source string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, version, category, path, status, error, duration_ms, generated_at
		FROM mediagen_versions WHERE source = $1 ORDER BY version`, source)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ms int64
		if err := rows.Scan(&e.Source, &e.Version, &e.Category, &e.Path, &e.Status, &e.Error, &ms, &e.GeneratedAt); err != nil {
			return nil, err
		}
		e.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes every entry recorded for source.
func (s *Store) Delete(ctx context.Context, source string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM mediagen_versions WHERE source = $1`, source)
	return err
}
