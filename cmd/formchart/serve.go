package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/comalice/formchart"
	"github.com/comalice/formchart/internal/config"
	"github.com/comalice/formchart/internal/production"
	"github.com/comalice/formchart/internal/transport/httptransport"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <definition>",
		Short: "Serve questionnaire sessions over HTTP",
		Long: `Starts the session API and a Prometheus /metrics endpoint. Configuration comes from FORMCHART_* variables:
  FORMCHART_HTTP_ADDR, FORMCHART_LOG_LEVEL, FORMCHART_STORE (memory|file|yaml|redis),
  FORMCHART_STORE_DIR, FORMCHART_REDIS_ADDR, FORMCHART_REDIS_PREFIX, FORMCHART_SESSION_TTL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.HTTPAddr = addr
			}
			logger, err := loggerFor(cmd, cfg.LogLevel)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, args[0], logger)
		},
	}
	cmd.Flags().String("addr", "", "Listen address; overrides FORMCHART_HTTP_ADDR")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, path string, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics, err := production.NewMetricsPublisher(reg)
	if err != nil {
		return err
	}
	chart, err := formchart.Load(path, formchart.WithLogger(logger), formchart.WithPublisher(metrics))
	if err != nil {
		return err
	}
	store, closeStore, err := newSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newHandler(chart, store, reg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("serving sessions", "addr", srv.Addr, "machine", chart.Definition().ID, "store", cfg.Store)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", shutdownTimeout, err)
		}
		if err := <-serverErrors; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// newHandler mounts the session API at / and the metrics of reg at /metrics.
func newHandler(chart *formchart.Chart, store production.Persister[formchart.Context], reg *prometheus.Registry, logger *slog.Logger) http.Handler {
	sessions := httptransport.NewServer(chart.Machine(), chart.NewContext, store, httptransport.WithLogger(logger))
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Mount("/", sessions.Handler())
	return r
}

// newSessionStore opens the persister selected by cfg.Store.
func newSessionStore(ctx context.Context, cfg config.Config) (production.Persister[formchart.Context], func() error, error) {
	noop := func() error { return nil }
	switch cfg.Store {
	case config.StoreMemory:
		return production.NewMemoryPersister[formchart.Context](), noop, nil
	case config.StoreFile:
		p, err := production.NewJSONPersister[formchart.Context](cfg.StoreDir)
		return p, noop, err
	case config.StoreYAML:
		p, err := production.NewYAMLPersister[formchart.Context](cfg.StoreDir)
		return p, noop, err
	case config.StoreRedis:
		p := production.NewRedisPersister[formchart.Context](cfg.RedisAddr, "", 0,
			production.WithPrefix(cfg.RedisPrefix), production.WithTTL(cfg.SessionTTL))
		if err := p.Ping(ctx); err != nil {
			_ = p.Close()
			return nil, noop, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		return p, p.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
