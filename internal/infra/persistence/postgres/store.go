// Package postgres stores projects in a Postgres table through the pgx
// database/sql driver, one row per project.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"diffractcore/internal/infra/persistence"
	"diffractcore/pkg/domain"
)

var _ domain.ProjectRepository = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/diffractcore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// OverrideSQLOpen swaps the opener used by NewStore and returns a restore
// function. Tests use it to inject a stub driver.
func OverrideSQLOpen(fn func(driverName, dsn string) (*sql.DB, error)) func() {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = fn
	openMu.Unlock()
	return func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}
}

// Store is a Postgres-backed project repository.
type Store struct {
	db  *sql.DB
	enc persistence.Encoding
}

// NewStore connects with dsn (defaultDSN when empty) and ensures the table.
func NewStore(ctx context.Context, dsn string, enc persistence.Encoding) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	ddl := `CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		modified_at BIGINT NOT NULL,
		payload BYTEA NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure projects table: %w", err)
	}
	return &Store{db: db, enc: enc}, nil
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
	_, err = s.db.ExecContext(ctx, `INSERT INTO projects(id, name, modified_at, payload) VALUES($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, modified_at = excluded.modified_at, payload = excluded.payload`,
		doc.ID, doc.Info.Name, doc.Info.ModifiedAt.UnixNano(), payload)
	if err != nil {
		return fmt.Errorf("upsert project %s: %w", doc.ID, err)
	}
	return nil
}

// Load implements domain.ProjectRepository.
func (s *Store) Load(ctx context.Context, id string) (domain.ProjectDocument, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM projects WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProjectDocument{}, persistence.NotFound(id)
	}
	if err != nil {
		return domain.ProjectDocument{}, fmt.Errorf("select project %s: %w", id, err)
	}
	return s.enc.Unmarshal(payload)
}

// List implements domain.ProjectRepository.
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete project %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }
