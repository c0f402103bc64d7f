// Package blob is the entry point to archive storage. It re-exports the
// contract from blob/core and opens the configured backend.
package blob

import (
	"context"
	"fmt"

	"diffractcore/internal/blob/core"
	"diffractcore/internal/infra/blob/fs"
	"diffractcore/internal/infra/blob/memory"
	"diffractcore/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend.
	Driver = core.Driver
	// PutOptions configures a write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes a stored blob.
	Info = core.Info
	// Store is implemented by every backend.
	Store = core.Store
)

// Drivers.
const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

// Metadata keys.
const (
	MetaChecksum    = core.MetaChecksum
	MetaProjectID   = core.MetaProjectID
	MetaCompression = core.MetaCompression
)

// ErrUnsupported indicates an operation a driver does not offer.
var ErrUnsupported = core.ErrUnsupported

// Config selects and configures a backend.
type Config struct {
	Driver string    `yaml:"driver"`
	FSRoot string    `yaml:"fs_root"`
	S3     s3.Config `yaml:"s3"`
}

// Open returns the backend named by cfg.Driver; empty means filesystem.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := Driver(cfg.Driver)
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverMemory:
		return memory.New(), nil
	case DriverS3:
		return s3.New(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
