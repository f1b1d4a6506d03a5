// Package sqlite records analysis results in a local SQLite database so they
// can be looked up after they have been published.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/flood-impact-service/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS analyses (
		id               TEXT PRIMARY KEY,
		status           TEXT NOT NULL,
		error_kind       TEXT NOT NULL DEFAULT '',
		flooded_hectares REAL NOT NULL DEFAULT 0,
		completed_at     INTEGER NOT NULL,
		result           BLOB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS analyses_completed_at ON analyses (completed_at DESC)`,
}

// Store is the analysis history. It implements pipeline.BatchLoader and the
// HTTP adapter's ResultStore.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates or opens the database at path and applies the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open results db: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return &Store{db: db, logger: logger}, nil
}

// LoadBatch upserts the results in one transaction.
func (s *Store) LoadBatch(ctx context.Context, results []domain.AnalysisResult) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO analyses (id, status, error_kind, flooded_hectares, completed_at, result)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			error_kind = excluded.error_kind,
			flooded_hectares = excluded.flooded_hectares,
			completed_at = excluded.completed_at,
			result = excluded.result`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range results {
		r := &results[i]
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode result %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.Status, r.ErrorKind, r.FloodedHectares, r.CompletedAt.UnixNano(), data); err != nil {
			return fmt.Errorf("insert result %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("recorded results", "count", len(results))
	return nil
}

// Get returns the result recorded under id, or domain.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (domain.AnalysisResult, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT result FROM analyses WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AnalysisResult{}, fmt.Errorf("%s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("query result %s: %w", id, err)
	}
	return decode(data)
}

// List returns up to limit results, most recently completed first.
func (s *Store) List(ctx context.Context, limit int) ([]domain.AnalysisResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT result FROM analyses ORDER BY completed_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []domain.AnalysisResult
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r, err := decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func decode(data []byte) (domain.AnalysisResult, error) {
	var r domain.AnalysisResult
	if err := json.Unmarshal(data, &r); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("decode result: %w", err)
	}
	return r, nil
}
