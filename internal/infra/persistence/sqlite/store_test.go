package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"diffractcore/internal/codec"
	"diffractcore/internal/infra/persistence"
	"diffractcore/internal/infra/persistence/persistencetest"
	"diffractcore/pkg/domain"
)

func TestStoreContract(t *testing.T) {
	for _, algo := range []codec.Algorithm{codec.None, codec.Zstd} {
		t.Run(algo.String(), func(t *testing.T) {
			store, err := NewStore(filepath.Join(t.TempDir(), "projects.db"), persistence.Encoding{Compression: algo})
			if err != nil {
				t.Fatalf("new store: %v", err)
			}
			defer func() { _ = store.Close() }()
			persistencetest.RunContract(t, store)
		})
	}
}

func TestStoreReopenKeepsProjects(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "projects.db")
	store, err := NewStore(path, persistence.Encoding{Compression: codec.S2})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	doc := persistencetest.SampleDocument("p1", "reopen", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	if err := store.Save(ctx, doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, persistence.Encoding{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	got, err := reopened.Load(ctx, "p1")
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if got.Info.Name != "reopen" || len(got.Parameters) != len(doc.Parameters) {
		t.Fatalf("unexpected document %+v", got.Info)
	}
	if reopened.Path() != path {
		t.Fatalf("path mismatch: %s", reopened.Path())
	}
}

func TestStoreRejectsCorruptPayload(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(filepath.Join(t.TempDir(), "projects.db"), persistence.Encoding{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	if _, err := store.DB().Exec(`INSERT INTO projects(id, name, modified_at, payload) VALUES('bad', 'bad', 0, ?)`, []byte("{not json")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.Load(ctx, "bad"); !errors.Is(err, domain.ErrMalformedData) {
		t.Fatalf("expected malformed data, got %v", err)
	}
}
