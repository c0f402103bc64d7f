package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"diffractcore/internal/blob/core"
	"diffractcore/pkg/domain"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	if s.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", s.Driver())
	}

	meta := map[string]string{core.MetaProjectID: "p1"}
	info, err := s.Put(ctx, "archives/p1/a.dfc", strings.NewReader("payload"), core.PutOptions{ContentType: "application/octet-stream", Metadata: meta})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	meta[core.MetaProjectID] = "mutated"
	if info.Size != 7 || len(info.ETag) != 16 {
		t.Fatalf("unexpected info %+v", info)
	}

	if _, err := s.Put(ctx, "archives/p1/a.dfc", strings.NewReader("again"), core.PutOptions{}); !errors.Is(err, domain.ErrDuplicateID) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	got, rc, err := s.Get(ctx, "archives/p1/a.dfc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "payload" {
		t.Fatalf("unexpected body %q", body)
	}
	if got.Metadata[core.MetaProjectID] != "p1" {
		t.Fatalf("metadata not isolated from caller: %v", got.Metadata)
	}

	if _, err := s.Put(ctx, "archives/p2/b.dfc", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	list, err := s.List(ctx, "archives/p1/")
	if err != nil || len(list) != 1 || list[0].Key != "archives/p1/a.dfc" {
		t.Fatalf("unexpected list %v err=%v", list, err)
	}

	if ok, err := s.Delete(ctx, "archives/p1/a.dfc"); err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if ok, _ := s.Delete(ctx, "archives/p1/a.dfc"); ok {
		t.Fatalf("second delete should report missing")
	}
	if _, err := s.Head(ctx, "archives/p1/a.dfc"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.PresignURL(ctx, "x", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
}
