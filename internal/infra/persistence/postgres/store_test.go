package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"diffractcore/internal/codec"
	"diffractcore/internal/infra/persistence"
	"diffractcore/internal/infra/persistence/persistencetest"
	"diffractcore/internal/infra/persistence/postgres/testutil"
)

func newStubStore(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		if driverName != "pgx" {
			t.Fatalf("unexpected driver %s", driverName)
		}
		return db, nil
	})
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "", persistence.Encoding{Compression: codec.LZ4})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store, conn
}

func TestStoreContract(t *testing.T) {
	store, conn := newStubStore(t)
	persistencetest.RunContract(t, store)
	if len(conn.Execs) == 0 || !strings.Contains(conn.Execs[0], "CREATE TABLE IF NOT EXISTS projects") {
		t.Fatalf("expected table bootstrap first, got %v", conn.Execs)
	}
}

func TestNewStorePropagatesOpenAndPingFailures(t *testing.T) {
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return nil, errors.New("dial refused") })
	if _, err := NewStore(context.Background(), "postgres://x", persistence.Encoding{}); err == nil || !strings.Contains(err.Error(), "dial refused") {
		t.Fatalf("expected open failure, got %v", err)
	}
	restore()

	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	defer OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })()
	if _, err := NewStore(context.Background(), "", persistence.Encoding{}); err == nil || !strings.Contains(err.Error(), "ping postgres") {
		t.Fatalf("expected ping failure, got %v", err)
	}
}

func TestSaveSurfacesExecErrors(t *testing.T) {
	store, conn := newStubStore(t)
	conn.FailTables = map[string]bool{"projects": true}
	doc := persistencetest.SampleDocument("p1", "x", time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	if err := store.Save(context.Background(), doc); err == nil {
		t.Fatalf("expected upsert failure")
	}
	if _, err := store.List(context.Background()); err == nil {
		t.Fatalf("expected list failure")
	}
}
