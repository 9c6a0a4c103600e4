// Package service owns the tracking number critical section:
// acquire lock, encode, record in the registry, release, stamp.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"trackgen/internal/platform/config"
	"trackgen/internal/tracking/encoder"
	"trackgen/internal/tracking/metrics"
	"trackgen/internal/tracking/models"
	"trackgen/internal/tracking/ports"
	"trackgen/internal/tracking/publisher"
	"trackgen/internal/tracking/tiebreaker"
	dErrors "trackgen/pkg/domain-errors"
	"trackgen/pkg/platform/sentinel"
	"trackgen/pkg/requestcontext"
)

const tracerName = "trackgen/internal/tracking/service"

// Type aliases so callers can wire stores without importing ports.
type (
	Locker            = ports.Locker
	Registry          = ports.Registry
	IssuancePublisher = ports.IssuancePublisher
)

// Service generates tracking numbers.
type Service struct {
	locker    Locker
	registry  Registry
	publisher IssuancePublisher
	counter   *tiebreaker.Counter
	lockKey   models.LockKeyFunc
	config    config.GeneratorConfig
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	now       func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithPublisher(p IssuancePublisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithTiebreaker injects the counter, letting tests pin the sequence.
func WithTiebreaker(c *tiebreaker.Counter) Option {
	return func(s *Service) {
		if c != nil {
			s.counter = c
		}
	}
}

// WithConfig sets TTL, timeouts, attempts and the lock sharding policy.
func WithConfig(cfg config.GeneratorConfig) Option {
	return func(s *Service) {
		s.config = cfg
		s.lockKey = LockKeyFor(cfg)
	}
}

// WithLockKey overrides the sharding policy derived from config.
func WithLockKey(fn models.LockKeyFunc) Option {
	return func(s *Service) {
		if fn != nil {
			s.lockKey = fn
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs the generator. Locker and registry are required.
func New(locker Locker, registry Registry, opts ...Option) (*Service, error) {
	if locker == nil {
		return nil, errors.New("locker is required")
	}
	if registry == nil {
		return nil, errors.New("registry is required")
	}

	cfg := config.DefaultGenerator()
	svc := &Service{
		locker:    locker,
		registry:  registry,
		publisher: publisher.Noop{},
		config:    cfg,
		lockKey:   LockKeyFor(cfg),
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if err := svc.config.Validate(); err != nil {
		return nil, fmt.Errorf("generator config: %w", err)
	}
	if svc.counter == nil {
		svc.counter = tiebreaker.NewFromClock()
	}
	return svc, nil
}

// LockKeyFor maps the configured sharding strategy to a key function.
func LockKeyFor(cfg config.GeneratorConfig) models.LockKeyFunc {
	switch cfg.LockSharding {
	case config.ShardingGlobal:
		return models.GlobalLockKey()
	case config.ShardingBucket:
		return models.BucketLockKey(cfg.LockBuckets)
	default:
		return models.CustomerLockKey()
	}
}

// Generate issues a tracking number for req.
//
// Failures are coded domain errors wrapping models.ErrLockBusy,
// models.ErrRegistryExhausted or models.ErrStoreUnavailable.
func (s *Service) Generate(ctx context.Context, req models.GenerationRequest) (*models.IssuedTrackingNumber, error) {
	ctx, span := s.tracer.Start(ctx, "tracking.Generate")
	defer span.End()

	requestID := requestcontext.RequestID(ctx)
	key := s.lockKey(req)
	span.SetAttributes(attribute.String("tracking.lock_key", key))

	acquireStart := time.Now()
	handle, err := s.acquire(ctx, key)
	if err != nil {
		s.failSpan(span, err)
		s.logger.WarnContext(ctx, "tracking number lock not acquired",
			"request_id", requestID,
			"lock_key", key,
			"error", err,
		)
		return nil, err
	}

	// Store calls inside the lock ignore caller cancellation but stop at the
	// lease: the key was set no earlier than acquireStart.
	detached := context.WithoutCancel(ctx)
	criticalCtx, cancelCritical := context.WithDeadline(detached, acquireStart.Add(handle.TTL))
	defer cancelCritical()
	lockedAt := s.now()
	code, attempts, err := func() (models.TrackingNumber, int, error) {
		defer s.release(detached, handle)
		return s.allocate(criticalCtx, req)
	}()
	held := s.now().Sub(lockedAt)
	s.metrics.ObserveCriticalSection(held)
	if held > handle.TTL {
		s.logger.WarnContext(ctx, "critical section outlived lock ttl",
			"request_id", requestID,
			"lock_key", key,
			"ttl_ms", handle.TTL.Milliseconds(),
			"held_ms", held.Milliseconds(),
		)
	}
	if err != nil {
		s.failSpan(span, err)
		s.logger.ErrorContext(ctx, "tracking number not allocated",
			"request_id", requestID,
			"lock_key", key,
			"attempts", attempts,
			"error", err,
		)
		return nil, err
	}

	issued := &models.IssuedTrackingNumber{
		TrackingNumber: code,
		IssuedAt:       s.now(),
		Attempts:       attempts,
		LockKey:        key,
	}
	s.metrics.IncrementOutcome(metrics.OutcomeIssued)
	s.metrics.ObserveAttempts(attempts)
	span.SetAttributes(
		attribute.String("tracking.number", code.String()),
		attribute.Int("tracking.attempts", attempts),
	)
	s.publish(ctx, req, issued)

	s.logger.InfoContext(ctx, "tracking number issued",
		"request_id", requestID,
		"tracking_number", code,
		"customer_id", req.CustomerID,
		"lock_key", key,
		"attempts", attempts,
	)
	return issued, nil
}

// Exists reports whether code has been issued.
func (s *Service) Exists(ctx context.Context, code models.TrackingNumber) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "tracking.Exists")
	defer span.End()

	if !code.Valid() {
		return false, dErrors.New(dErrors.CodeValidation, "tracking number must be 16 characters of A-Z and 0-9")
	}
	storeCtx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()

	start := s.now()
	ok, err := s.registry.Exists(storeCtx, code)
	s.metrics.ObserveStoreLatency("exists", s.now().Sub(start))
	if err != nil {
		err = unavailable(err, "check tracking number")
		s.failSpan(span, err)
		return false, err
	}
	return ok, nil
}

func (s *Service) acquire(ctx context.Context, key string) (*models.LockHandle, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()

	start := s.now()
	handle, err := s.locker.Acquire(storeCtx, key, s.config.LockTTL)
	s.metrics.ObserveStoreLatency("acquire", s.now().Sub(start))
	switch {
	case err == nil:
		s.metrics.IncrementLockAcquisition("acquired")
		return handle, nil
	case errors.Is(err, sentinel.ErrConflict):
		s.metrics.IncrementLockAcquisition("busy")
		s.metrics.IncrementOutcome(metrics.OutcomeLockBusy)
		return nil, dErrors.Wrap(models.ErrLockBusy, dErrors.CodeBusy, "tracking number generator busy, retry shortly")
	default:
		// Anything other than a clear "held" answer must not be read as acquired.
		s.metrics.IncrementLockAcquisition("error")
		s.metrics.IncrementOutcome(metrics.OutcomeStoreUnavailable)
		return nil, unavailable(err, "acquire generation lock")
	}
}

// allocate runs inside the held lock. Each attempt advances the tiebreaker once.
func (s *Service) allocate(ctx context.Context, req models.GenerationRequest) (models.TrackingNumber, int, error) {
	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			s.metrics.IncrementOutcome(metrics.OutcomeStoreUnavailable)
			return "", attempt - 1, unavailable(err, "generation lock lease elapsed")
		}
		code := encoder.Encode(req, s.counter.Next())

		err := s.record(ctx, code)
		if err == nil {
			return code, attempt, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			s.metrics.IncrementOutcome(metrics.OutcomeStoreUnavailable)
			return "", attempt, unavailable(err, "record tracking number")
		}
		s.metrics.IncrementCollision()
		s.logger.WarnContext(ctx, "tracking number collision",
			"request_id", requestcontext.RequestID(ctx),
			"tracking_number", code,
			"attempt", attempt,
		)
	}
	s.metrics.IncrementOutcome(metrics.OutcomeExhausted)
	return "", s.config.MaxAttempts, dErrors.Wrap(models.ErrRegistryExhausted, dErrors.CodeAllocationFailed,
		fmt.Sprintf("no unique tracking number after %d attempts", s.config.MaxAttempts))
}

func (s *Service) record(ctx context.Context, code models.TrackingNumber) error {
	storeCtx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()

	start := s.now()
	err := s.registry.Record(storeCtx, code)
	s.metrics.ObserveStoreLatency("record", s.now().Sub(start))
	return err
}

// release never fails the call: an unreleased lock expires with its TTL.
func (s *Service) release(ctx context.Context, handle *models.LockHandle) {
	storeCtx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()

	start := s.now()
	err := s.locker.Release(storeCtx, handle)
	s.metrics.ObserveStoreLatency("release", s.now().Sub(start))
	if err != nil {
		s.logger.WarnContext(ctx, "tracking number lock release failed, waiting for ttl",
			"request_id", requestcontext.RequestID(ctx),
			"lock_key", handle.Key,
			"expires_at", handle.ExpiresAt(),
			"error", err,
		)
	}
}

// publish is best effort; a lost event never fails an issued code.
func (s *Service) publish(ctx context.Context, req models.GenerationRequest, issued *models.IssuedTrackingNumber) {
	event := models.IssuanceEvent{
		TrackingNumber:       issued.TrackingNumber.String(),
		CustomerID:           req.CustomerID,
		CustomerSlug:         req.CustomerSlug,
		OriginCountryID:      req.OriginCountryID,
		DestinationCountryID: req.DestinationCountryID,
		Attempts:             issued.Attempts,
		LockKey:              issued.LockKey,
		RequestID:            requestcontext.RequestID(ctx),
		IssuedAt:             issued.IssuedAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "issuance event dropped",
			"request_id", event.RequestID,
			"tracking_number", event.TrackingNumber,
			"error", err,
		)
	}
}

func (s *Service) failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func unavailable(err error, msg string) error {
	return dErrors.Wrap(fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err), dErrors.CodeDependencyUnavailable, msg)
}
