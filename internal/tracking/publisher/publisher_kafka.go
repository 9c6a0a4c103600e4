// Package publisher emits issuance events for accepted tracking numbers.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"trackgen/internal/tracking/metrics"
	"trackgen/internal/tracking/models"
	"trackgen/pkg/platform/circuit"
)

// ErrCircuitOpen is returned while the broker is considered unhealthy.
var ErrCircuitOpen = errors.New("issuance publisher circuit open")

// Producer is the subset of *kgo.Client used for publishing.
type Producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
}

// KafkaPublisher produces issuance events asynchronously. Events are keyed by
// customer so one customer's events stay ordered within a partition.
type KafkaPublisher struct {
	producer Producer
	topic    string
	breaker  *circuit.Breaker
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a KafkaPublisher.
type Option func(*KafkaPublisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *KafkaPublisher) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *KafkaPublisher) {
		p.metrics = m
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(p *KafkaPublisher) {
		if b != nil {
			p.breaker = b
		}
	}
}

// NewKafka constructs a publisher writing to topic.
func NewKafka(producer Producer, topic string, opts ...Option) *KafkaPublisher {
	p := &KafkaPublisher{
		producer: producer,
		topic:    topic,
		breaker:  circuit.New("issuance-publisher"),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish enqueues the event and returns without waiting for the broker ack.
func (p *KafkaPublisher) Publish(ctx context.Context, event models.IssuanceEvent) error {
	if !p.breaker.Allow() {
		p.metrics.IncrementPublishFailure()
		return ErrCircuitOpen
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal issuance event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.CustomerID),
		Value: payload,
	}
	// The request may finish before the broker acks.
	p.producer.Produce(context.WithoutCancel(ctx), record, p.onAck)
	return nil
}

func (p *KafkaPublisher) onAck(r *kgo.Record, err error) {
	if err != nil {
		p.metrics.IncrementPublishFailure()
		if _, change := p.breaker.RecordFailure(); change.Opened {
			p.metrics.SetPublisherCircuit(true)
			p.logger.Warn("issuance publisher circuit opened", "topic", r.Topic, "error", err)
		}
		p.logger.Warn("issuance event not published",
			"topic", r.Topic,
			"customer_id", string(r.Key),
			"error", err,
		)
		return
	}
	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.metrics.SetPublisherCircuit(false)
		p.logger.Info("issuance publisher circuit closed", "topic", r.Topic)
	}
}
