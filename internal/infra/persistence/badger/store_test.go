package badger

import (
	"context"
	"testing"
	"time"

	"diffractcore/internal/codec"
	"diffractcore/internal/infra/persistence"
	"diffractcore/internal/infra/persistence/persistencetest"
)

func TestStoreContractInMemory(t *testing.T) {
	store, err := NewStore(Config{InMemory: true}, persistence.Encoding{Compression: codec.Zstd})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	persistencetest.RunContract(t, store)
}

func TestStoreReopenFromDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewStore(Config{Path: dir, SyncWrites: true}, persistence.Encoding{Compression: codec.S2})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	doc := persistencetest.SampleDocument("p1", "on disk", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	if err := store.Save(ctx, doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(Config{Path: dir}, persistence.Encoding{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	got, err := reopened.Load(ctx, "p1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Info.Name != "on disk" || got.LastFit == nil || got.LastFit.RunID != "run-1" {
		t.Fatalf("unexpected document %+v", got)
	}
}

func TestNewStoreRequiresPath(t *testing.T) {
	if _, err := NewStore(Config{}, persistence.Encoding{}); err == nil {
		t.Fatalf("expected error for missing path")
	}
}
