package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenRepositoryDrivers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cases := []Storage{
		{Driver: StorageMemory},
		{Driver: StorageSQLite, SQLitePath: filepath.Join(dir, "p.db"), Compression: "zstd"},
		{Driver: StorageBadger, BadgerPath: filepath.Join(dir, "badger"), Compression: "lz4"},
	}
	for _, st := range cases {
		t.Run(st.Driver, func(t *testing.T) {
			cfg := Default()
			cfg.Storage = st
			repo, err := cfg.OpenRepository(ctx, nil)
			require.NoError(t, err)
			require.NoError(t, repo.Close())
		})
	}
}

func TestOpenRepositoryRejectsIncompleteSettings(t *testing.T) {
	ctx := context.Background()
	cfg := Default()
	cfg.Storage = Storage{Driver: StoragePostgres}
	_, err := cfg.OpenRepository(ctx, nil)
	require.ErrorContains(t, err, "dsn")

	cfg.Storage = Storage{Driver: "etcd"}
	_, err = cfg.OpenRepository(ctx, nil)
	require.ErrorContains(t, err, "unknown storage driver")

	cfg.Storage = Storage{Driver: StorageMemory, Compression: "brotli"}
	_, err = cfg.OpenRepository(ctx, nil)
	require.Error(t, err)
}
