// Package sqlite stores projects in a single SQLite table, one row per
// project, payload in the codec frame format.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"diffractcore/internal/infra/persistence"
	"diffractcore/pkg/domain"
)

var _ domain.ProjectRepository = (*Store)(nil)

const schema = `CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	modified_at INTEGER NOT NULL,
	payload BLOB NOT NULL
)`

// Store is a SQLite-backed project repository.
type Store struct {
	db   *sql.DB
	enc  persistence.Encoding
	path string
}

// NewStore opens (and creates when needed) the database at path.
func NewStore(path string, enc persistence.Encoding) (*Store, error) {
	if path == "" {
		path = "diffractcore.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create projects table: %w", err)
	}
	return &Store{db: db, enc: enc, path: path}, nil
}

// Save upserts doc.
func (s *Store) Save(ctx context.Context, doc domain.ProjectDocument) error {
	if err := persistence.CheckID(doc.ID); err != nil {
		return err
	}
	payload, err := s.enc.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO projects(id, name, modified_at, payload) VALUES(?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, modified_at=excluded.modified_at, payload=excluded.payload`,
		doc.ID, doc.Info.Name, doc.Info.ModifiedAt.UnixNano(), payload)
	if err != nil {
		return fmt.Errorf("upsert project %s: %w", doc.ID, err)
	}
	return nil
}

// Load implements domain.ProjectRepository.
func (s *Store) Load(ctx context.Context, id string) (domain.ProjectDocument, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM projects WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProjectDocument{}, persistence.NotFound(id)
	}
	if err != nil {
		return domain.ProjectDocument{}, fmt.Errorf("select project %s: %w", id, err)
	}
	return s.enc.Unmarshal(payload)
}

// List reads summaries from the indexed columns without decoding payloads.
func (s *Store) List(ctx context.Context) ([]domain.ProjectSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, modified_at FROM projects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := []domain.ProjectSummary{}
	for rows.Next() {
		var (
			sum      domain.ProjectSummary
			modified int64
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &modified); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		sum.ModifiedAt = time.Unix(0, modified).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete implements domain.ProjectRepository.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete project %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for tests.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
