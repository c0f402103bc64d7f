// Package core defines the blob storage contract shared by the archive
// backends. Backends live under internal/infra/blob and are selected by the
// parent blob package.
package core

import (
	"context"
	"errors"
	"io"
	"time"

	"diffractcore/pkg/domain"
)

// Driver identifies a blob backend.
type Driver string

// Known drivers.
const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

// Metadata keys written alongside project archives.
const (
	MetaChecksum    = "checksum-xxh64"
	MetaProjectID   = "project-id"
	MetaCompression = "compression"
)

// PutOptions carries optional attributes for Put.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// SignedURLOptions configures PresignURL.
type SignedURLOptions struct {
	Method string
	Expiry time.Duration
}

// Info describes a stored blob.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	URL          string            `json:"url,omitempty"`
}

// Store is a create-only object store with S3-like semantics.
type Store interface {
	// Put stores r at key and fails with DuplicateId when key exists.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// Get returns the blob and its metadata, or NotFound.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	// Delete reports false without error when key does not exist.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns blobs under prefix ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
	Driver() Driver
}

// ErrUnsupported is returned for optional capabilities a driver lacks.
var ErrUnsupported = errors.New("blob: unsupported operation")

// NotFound builds the error returned for a missing key.
func NotFound(key string) error {
	return domain.Newf(domain.CodeNotFound, key, "blob not found")
}

// Exists builds the error returned when Put targets an existing key.
func Exists(key string) error {
	return domain.Newf(domain.CodeDuplicateID, key, "blob already exists")
}

// CloneMetadata copies a metadata map.
func CloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
