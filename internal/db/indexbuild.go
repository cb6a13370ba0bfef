package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IndexBuildStore records the start/end of each corpus (re)index run, and
// LastStartedAt reports the started_at of the most recent completed build.
// The Knowledge Summary Service does not read these records.
type IndexBuildStore struct {
	db *DB
}

// NewIndexBuildStore creates an IndexBuildStore backed by the given database.
func NewIndexBuildStore(database *DB) *IndexBuildStore {
	return &IndexBuildStore{db: database}
}

// Start records the beginning of an index build and returns its ID.
func (s *IndexBuildStore) Start(ctx context.Context) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `INSERT INTO index_builds (id) VALUES (?)`, id)
	if err != nil {
		return "", fmt.Errorf("starting index build: %w", err)
	}
	return id, nil
}

// Complete marks an index build finished, recording the document count indexed.
func (s *IndexBuildStore) Complete(ctx context.Context, id string, documentCount int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE index_builds SET status = 'completed', completed_at = datetime('now'), document_count = ? WHERE id = ?`,
		documentCount, id)
	if err != nil {
		return fmt.Errorf("completing index build: %w", err)
	}
	return nil
}

// Fail marks an index build as failed.
func (s *IndexBuildStore) Fail(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE index_builds SET status = 'failed', completed_at = datetime('now') WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failing index build: %w", err)
	}
	return nil
}

// LastStartedAt returns the start time of the most recently started
// completed index build, or the zero time if none has completed yet.
func (s *IndexBuildStore) LastStartedAt(ctx context.Context) (time.Time, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT started_at FROM index_builds WHERE status = 'completed' ORDER BY started_at DESC LIMIT 1`)

	var t time.Time
	if err := row.Scan(&t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("querying last index build: %w", err)
	}
	return t, nil
}
