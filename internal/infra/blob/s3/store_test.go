package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"diffractcore/internal/blob/core"
	"diffractcore/pkg/domain"
)

func TestStoreMockedBasicFlow(t *testing.T) {
	store := NewMock()
	ctx := context.Background()
	meta := map[string]string{core.MetaChecksum: "0123456789abcdef", core.MetaProjectID: "lbco"}
	info, err := store.Put(ctx, "archives/lbco/1.dfc", bytes.NewReader([]byte("hello")), core.PutOptions{ContentType: "application/octet-stream", Metadata: meta})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "archives/lbco/1.dfc" || info.Size != 5 {
		t.Fatalf("unexpected info %#v", info)
	}
	if _, err := store.Put(ctx, "archives/lbco/1.dfc", bytes.NewReader([]byte("ignored")), core.PutOptions{}); !errors.Is(err, domain.ErrDuplicateID) {
		t.Fatalf("expected duplicate put error, got %v", err)
	}
	head, err := store.Head(ctx, "archives/lbco/1.dfc")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.Metadata[core.MetaChecksum] != "0123456789abcdef" || head.Metadata[core.MetaProjectID] != "lbco" {
		t.Fatalf("metadata not round-tripped: %v", head.Metadata)
	}
	got, rc, err := store.Get(ctx, "archives/lbco/1.dfc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "hello" || got.ContentType != "application/octet-stream" {
		t.Fatalf("get mismatch: %q %+v", data, got)
	}
	if _, err := store.Put(ctx, "archives/other/1.dfc", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("put other: %v", err)
	}
	list, err := store.List(ctx, "archives/lbco/")
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %+v", err, list)
	}
	if url, err := store.PresignURL(ctx, "archives/lbco/1.dfc", core.SignedURLOptions{Expiry: 30 * time.Second}); err != nil || url == "" {
		t.Fatalf("presign: %v %s", err, url)
	}
	if ok, err := store.Delete(ctx, "archives/lbco/1.dfc"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := store.Delete(ctx, "archives/lbco/1.dfc"); err != nil || ok {
		t.Fatalf("second delete should report false: %v %v", ok, err)
	}
}

func TestStoreMissingKeys(t *testing.T) {
	store := NewMock()
	ctx := context.Background()
	if _, err := store.Head(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found from head, got %v", err)
	}
	if _, _, err := store.Get(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found from get, got %v", err)
	}
	if _, err := store.PresignURL(ctx, "k", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected presign unsupported error, got %v", err)
	}
	if list, err := store.List(ctx, "none/"); err != nil || len(list) != 0 {
		t.Fatalf("expected empty list: %v %+v", err, list)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for missing bucket")
	}
	s, err := New(context.Background(), Config{Bucket: "bkt", Endpoint: "https://mock.s3.local", PathStyle: true, AccessKeyID: "AKIA", SecretAccessKey: "SECRET"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Driver() != core.DriverS3 {
		t.Fatalf("expected DriverS3")
	}
}

func TestDecodeAWSChunked(t *testing.T) {
	got, err := decodeAWSChunked([]byte("5;chunk-signature=abc\r\nhello\r\n3\r\n!!!\r\n0\r\nx-amz-checksum-crc32:AAAA\r\n\r\n"))
	if err != nil || string(got) != "hello!!!" {
		t.Fatalf("decode: %q %v", got, err)
	}
	if _, err := decodeAWSChunked([]byte("zz\r\nhello\r\n")); err == nil {
		t.Fatalf("expected error for bad size line")
	}
}
