package main

import (
	"context"
	"expvar"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"diffractcore/internal/blob"
	"diffractcore/internal/config"
	"diffractcore/internal/core"
	"diffractcore/plugins/background"
)

// app holds the state shared by every subcommand.
type app struct {
	configPath string
	stdout     io.Writer
	stderr     io.Writer

	cfg     config.Config
	logger  *slog.Logger
	metrics http.Handler
}

// load reads the configuration and builds the logger.
func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	logger, err := cfg.Log.NewLogger(a.stderr)
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger
	return nil
}

// service opens the configured repository and assembles a core.Service.
// Archive commands and serve pass withBlob to attach the blob store.
func (a *app) service(ctx context.Context, withBlob bool) (*core.Service, error) {
	if err := a.load(); err != nil {
		return nil, err
	}
	repo, err := a.cfg.OpenRepository(ctx, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open %s repository: %w", a.cfg.Storage.Driver, err)
	}
	alg, err := a.cfg.Compression()
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	opts := []core.Option{
		core.WithLogger(core.NewSlogLogger(a.logger)),
		core.WithRulesEngine(core.NewDefaultRulesEngine()),
		core.WithFitDefaults(a.cfg.Fit),
		core.WithArchiveCompression(alg),
	}
	opts = append(opts, a.observability()...)
	if withBlob {
		store, err := blob.Open(ctx, a.cfg.Blob)
		if err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("open %s blob store: %w", a.cfg.Blob.Driver, err)
		}
		opts = append(opts, core.WithBlobStore(store))
	}
	svc := core.NewService(repo, opts...)
	if _, err := svc.InstallPlugin(background.New()); err != nil {
		_ = svc.Close()
		return nil, err
	}
	return svc, nil
}

func (a *app) observability() []core.Option {
	var opts []core.Option
	switch a.cfg.Metrics.Recorder {
	case "expvar":
		opts = append(opts, core.WithMetricsRecorder(core.NewExpvarMetricsRecorder("diffractcore")))
		a.metrics = expvar.Handler()
	case "prometheus":
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, core.WithMetricsRecorder(core.NewPrometheusMetricsRecorder(reg)))
		a.metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}
	switch a.cfg.Metrics.Tracer {
	case "json":
		opts = append(opts, core.WithTracer(core.NewJSONTracer(a.stderr)))
	case "otel":
		opts = append(opts, core.WithTracer(core.NewOTelTracer(nil)))
	}
	return opts
}

// run opens a service, calls fn and closes the service again.
func (a *app) run(ctx context.Context, withBlob bool, fn func(context.Context, *core.Service) error) error {
	svc, err := a.service(ctx, withBlob)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil {
			a.logger.Warn("close repository", "error", cerr)
		}
	}()
	return fn(ctx, svc)
}
