package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"trackgen/internal/platform/config"
	"trackgen/internal/platform/httpserver"
	"trackgen/internal/platform/logger"
	httpmetrics "trackgen/internal/platform/metrics"
	"trackgen/internal/tracking/handler"
	trackingmetrics "trackgen/internal/tracking/metrics"
	"trackgen/internal/tracking/service"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Generation logic lives in internal/tracking.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "trackgen: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	tm := trackingmetrics.New(nil)
	deps, err := buildDependencies(ctx, cfg, log, tm)
	if err != nil {
		return err
	}
	defer deps.Close(log)

	svc, err := service.New(deps.locker, deps.registry,
		service.WithConfig(cfg.Generator),
		service.WithLogger(log),
		service.WithMetrics(tm),
		service.WithPublisher(deps.publisher),
	)
	if err != nil {
		return err
	}

	router := newRouter(log, httpmetrics.New(nil), handler.New(svc, log, tm), deps.health)
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting trackgen",
			"addr", cfg.Server.Addr,
			"lock_backend", cfg.Generator.LockBackend,
			"registry_backend", cfg.Generator.RegistryBackend,
			"lock_sharding", cfg.Generator.LockSharding,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}
