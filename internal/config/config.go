// Package config loads diffractcore settings from an optional YAML file and
// DIFFRACTCORE_* environment overrides, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"diffractcore/internal/blob"
	"diffractcore/internal/codec"
	"diffractcore/internal/fit"
	"diffractcore/pkg/domain"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageBadger   = "badger"
)

// Storage selects the project repository.
type Storage struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	BadgerPath  string `yaml:"badger_path"`
	// Compression names the codec applied to stored documents and archives.
	Compression string `yaml:"compression"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Metrics selects the metrics and trace exporters.
type Metrics struct {
	// Recorder is one of none, expvar, prometheus.
	Recorder string `yaml:"recorder"`
	// Tracer is one of none, json, otel.
	Tracer string `yaml:"tracer"`
}

// HTTP configures the UI adapter.
type HTTP struct {
	Addr string `yaml:"addr"`
}

// Config is the full settings tree.
type Config struct {
	Storage Storage          `yaml:"storage"`
	Blob    blob.Config      `yaml:"blob"`
	Fit     domain.FitConfig `yaml:"fit"`
	Log     Log              `yaml:"log"`
	Metrics Metrics          `yaml:"metrics"`
	HTTP    HTTP             `yaml:"http"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Storage: Storage{Driver: StorageSQLite, SQLitePath: "diffractcore.db", Compression: "zstd"},
		Blob:    blob.Config{Driver: string(blob.DriverFilesystem), FSRoot: "archives"},
		Fit:     fit.DefaultConfig(),
		Log:     Log{Level: "info", Format: "text"},
		Metrics: Metrics{Recorder: "none", Tracer: "none"},
		HTTP:    HTTP{Addr: ":8080"},
	}
}

// Load reads path (skipped when empty) over the defaults, applies the process
// environment and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	applyEnv(&cfg, os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	str("DIFFRACTCORE_STORAGE_DRIVER", &cfg.Storage.Driver)
	str("DIFFRACTCORE_SQLITE_PATH", &cfg.Storage.SQLitePath)
	str("DIFFRACTCORE_POSTGRES_DSN", &cfg.Storage.PostgresDSN)
	str("DIFFRACTCORE_BADGER_PATH", &cfg.Storage.BadgerPath)
	str("DIFFRACTCORE_COMPRESSION", &cfg.Storage.Compression)
	str("DIFFRACTCORE_BLOB_DRIVER", &cfg.Blob.Driver)
	str("DIFFRACTCORE_BLOB_FS_ROOT", &cfg.Blob.FSRoot)
	str("DIFFRACTCORE_BLOB_S3_BUCKET", &cfg.Blob.S3.Bucket)
	str("DIFFRACTCORE_BLOB_S3_REGION", &cfg.Blob.S3.Region)
	str("DIFFRACTCORE_BLOB_S3_ENDPOINT", &cfg.Blob.S3.Endpoint)
	if v, ok := lookup("DIFFRACTCORE_BLOB_S3_PATH_STYLE"); ok {
		cfg.Blob.S3.PathStyle, _ = strconv.ParseBool(v)
	}
	str("DIFFRACTCORE_FIT_METHOD", &cfg.Fit.Method)
	if v, ok := lookup("DIFFRACTCORE_FIT_MAX_ITERATIONS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Fit.MaxIterations = n
		}
	}
	str("DIFFRACTCORE_LOG_LEVEL", &cfg.Log.Level)
	str("DIFFRACTCORE_LOG_FORMAT", &cfg.Log.Format)
	str("DIFFRACTCORE_METRICS_RECORDER", &cfg.Metrics.Recorder)
	str("DIFFRACTCORE_TRACER", &cfg.Metrics.Tracer)
	str("DIFFRACTCORE_HTTP_ADDR", &cfg.HTTP.Addr)
}

// Validate checks enumerated settings and normalizes the fit section.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StorageSQLite, StoragePostgres, StorageBadger:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if _, err := c.Compression(); err != nil {
		return err
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	switch c.Metrics.Recorder {
	case "", "none", "expvar", "prometheus":
	default:
		return fmt.Errorf("unknown metrics recorder %q", c.Metrics.Recorder)
	}
	switch c.Metrics.Tracer {
	case "", "none", "json", "otel":
	default:
		return fmt.Errorf("unknown tracer %q", c.Metrics.Tracer)
	}
	normalized, err := fit.NormalizeConfig(c.Fit)
	if err != nil {
		return fmt.Errorf("fit defaults: %w", err)
	}
	c.Fit = normalized
	return nil
}

// Compression parses Storage.Compression.
func (c Config) Compression() (codec.Algorithm, error) {
	return codec.Parse(c.Storage.Compression)
}

// SlogLevel maps Level to a slog.Level.
func (l Log) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return lvl, nil
}

// NewLogger builds a slog logger writing to w.
func (l Log) NewLogger(w io.Writer) (*slog.Logger, error) {
	lvl, err := l.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
