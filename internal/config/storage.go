package config

import (
	"context"
	"fmt"
	"log/slog"

	"diffractcore/internal/infra/persistence"
	"diffractcore/internal/infra/persistence/badger"
	"diffractcore/internal/infra/persistence/memory"
	"diffractcore/internal/infra/persistence/postgres"
	"diffractcore/internal/infra/persistence/sqlite"
	"diffractcore/pkg/domain"
)

// OpenRepository opens the project repository selected by the storage
// section. logger may be nil.
func (c Config) OpenRepository(ctx context.Context, logger *slog.Logger) (domain.ProjectRepository, error) {
	alg, err := c.Compression()
	if err != nil {
		return nil, err
	}
	enc := persistence.Encoding{Compression: alg}
	switch c.Storage.Driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(c.Storage.SQLitePath, enc)
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage needs a dsn")
		}
		return postgres.NewStore(ctx, c.Storage.PostgresDSN, enc)
	case StorageBadger:
		return badger.NewStore(badger.Config{Path: c.Storage.BadgerPath, Logger: logger}, enc)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
}
