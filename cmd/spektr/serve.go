package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spektr-org/spektr-retail/server"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			logger := newLogger(os.Stderr, cfg, true)
			logWarnings(logger, cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			defer a.Close()

			// Warm the snapshot; a failure here is retried lazily per request.
			if _, err := a.store.Snapshot(ctx); err != nil {
				logger.Warn("initial dataset load failed", "error", err)
			}
			if cfg.Dataset.RefreshSchedule != "" {
				if err := a.store.StartRefresh(cfg.Dataset.RefreshSchedule); err != nil {
					return err
				}
			}

			srv := server.New(a.analyst, a.registry, logger, server.Options{
				CORSAllowedOrigins: cfg.CORSAllowedOrigins,
				RateLimit: server.RateLimitConfig{
					RequestsPerSecond: cfg.RateLimitRPS,
					Burst:             cfg.RateLimitBurst,
				},
			})
			httpSrv := &http.Server{
				Addr:              cfg.ListenAddr,
				Handler:           srv.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("http api listening", "addr", cfg.ListenAddr)
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		},
	}
}
