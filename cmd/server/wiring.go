package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"trackgen/internal/platform/config"
	"trackgen/internal/platform/httpserver"
	"trackgen/internal/platform/kafka"
	httpmetrics "trackgen/internal/platform/metrics"
	"trackgen/internal/platform/middleware"
	"trackgen/internal/platform/postgres"
	"trackgen/internal/platform/redis"
	"trackgen/internal/tracking/handler"
	"trackgen/internal/tracking/lock"
	trackingmetrics "trackgen/internal/tracking/metrics"
	"trackgen/internal/tracking/publisher"
	"trackgen/internal/tracking/registry"
	"trackgen/internal/tracking/service"
	"trackgen/pkg/platform/circuit"
)

const (
	issuanceTopicPartitions = 6
	flushTimeout            = 5 * time.Second
	healthTimeout           = time.Second
)

type dependencies struct {
	locker    service.Locker
	registry  service.Registry
	publisher service.IssuancePublisher
	health    map[string]httpserver.HealthCheck
	closers   []func(context.Context) error
}

// Close releases resources in reverse order of creation.
func (d *dependencies) Close(log *slog.Logger) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		if err := d.closers[i](ctx); err != nil {
			log.Warn("close dependency", "error", err)
		}
		cancel()
	}
}

func buildDependencies(ctx context.Context, cfg config.Config, log *slog.Logger, tm *trackingmetrics.Metrics) (*dependencies, error) {
	deps := &dependencies{
		publisher: publisher.Noop{},
		health:    make(map[string]httpserver.HealthCheck),
	}

	var rc *redis.Client
	if cfg.Generator.LockBackend == config.BackendRedis || cfg.Generator.RegistryBackend == config.BackendRedis {
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		rc = client
		deps.health["redis"] = rc.Health
		deps.closers = append(deps.closers, func(context.Context) error { return rc.Close() })
	}

	switch cfg.Generator.LockBackend {
	case config.BackendRedis:
		deps.locker = lock.NewRedis(rc.Client)
	default:
		log.Warn("in-memory lock only serializes this process")
		deps.locker = lock.NewInMemory()
	}

	switch cfg.Generator.RegistryBackend {
	case config.BackendRedis:
		deps.registry = registry.NewRedis(rc.Client, registry.WithEntryTTL(cfg.Generator.RegistryTTL))
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			deps.Close(log)
			return nil, err
		}
		deps.health["postgres"] = db.Health
		deps.closers = append(deps.closers, func(context.Context) error { return db.Close() })

		pg := registry.NewPostgres(db.DB)
		if err := pg.EnsureSchema(ctx); err != nil {
			deps.Close(log)
			return nil, fmt.Errorf("ensure registry schema: %w", err)
		}
		deps.registry = pg
	default:
		log.Warn("in-memory registry loses issued codes on restart")
		deps.registry = registry.NewInMemory()
	}

	kc, err := kafka.New(cfg.Kafka)
	if err != nil {
		deps.Close(log)
		return nil, err
	}
	if kc != nil {
		if err := kafka.EnsureTopic(ctx, kc, cfg.Kafka.IssuanceTopic, issuanceTopicPartitions); err != nil {
			log.Warn("issuance topic not ensured", "topic", cfg.Kafka.IssuanceTopic, "error", err)
		}
		deps.closers = append(deps.closers, func(ctx context.Context) error {
			defer kc.Close()
			return kc.Flush(ctx)
		})
		deps.publisher = publisher.NewKafka(kc, cfg.Kafka.IssuanceTopic,
			publisher.WithLogger(log),
			publisher.WithMetrics(tm),
			publisher.WithBreaker(circuit.New("issuance-publisher")),
		)
	}
	return deps, nil
}

func newRouter(log *slog.Logger, hm *httpmetrics.Metrics, h *handler.Handler, checks map[string]httpserver.HealthCheck) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Metrics(hm))
	// Innermost, so a recovered panic is still logged and counted as a 500.
	r.Use(middleware.Recovery(log))

	r.Get("/healthz", httpserver.HealthHandler(checks, healthTimeout))
	r.Handle("/metrics", httpmetrics.Handler())
	r.Route("/api/v1", h.Register)
	return r
}
