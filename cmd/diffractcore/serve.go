package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"diffractcore/internal/core"
	"diffractcore/internal/httpapi"
)

const shutdownGrace = 10 * time.Second

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP and WebSocket API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.run(ctx, true, func(ctx context.Context, svc *core.Service) error {
				if addr == "" {
					addr = a.cfg.HTTP.Addr
				}
				gin.SetMode(gin.ReleaseMode)
				opts := []httpapi.Option{httpapi.WithLogger(a.logger)}
				if a.metrics != nil {
					opts = append(opts, httpapi.WithMetricsHandler(a.metrics))
				}
				srv := &http.Server{
					Addr:              addr,
					Handler:           httpapi.New(svc, opts...).Handler(),
					ReadHeaderTimeout: 10 * time.Second,
				}
				errc := make(chan error, 1)
				go func() { errc <- srv.ListenAndServe() }()
				a.logger.Info("listening", "addr", addr, "storage", a.cfg.Storage.Driver, "blob", a.cfg.Blob.Driver)

				select {
				case err := <-errc:
					return err
				case <-ctx.Done():
				}
				a.logger.Info("shutting down")
				sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
				defer cancel()
				if err := srv.Shutdown(sctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
