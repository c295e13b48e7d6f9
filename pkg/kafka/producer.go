// Package kafka publishes the platform's event envelopes with kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/codes"
)

// ProducerConfig holds the kafka-go writer settings for a Producer.
type ProducerConfig struct {
	Brokers      []string
	BatchSize    int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// DefaultProducerConfig returns a config for brokers with small batches and
// a five second write timeout.
func DefaultProducerConfig(brokers []string) ProducerConfig {
	return ProducerConfig{
		Brokers:      brokers,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}
}

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes events synchronously with acks from all replicas. Messages
// are partitioned by event key.
type Producer struct {
	w       messageWriter
	brokers []string
	logger  *slog.Logger
}

// NewProducer creates a Producer backed by a kafka.Writer that hashes message
// keys to partitions, waits for all in-sync replicas and compresses batches
// with snappy.
func NewProducer(cfg ProducerConfig, logger *slog.Logger) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           kafka.RequireAll,
		Compression:            kafka.Snappy,
		AllowAutoTopicCreation: true,
	}
	return newProducer(w, cfg.Brokers, logger)
}

func newProducer(w messageWriter, brokers []string, logger *slog.Logger) *Producer {
	return &Producer{w: w, brokers: brokers, logger: logger}
}

// Publish writes e to topic. The event type, source and correlation id are
// copied into headers next to the W3C trace context.
func (p *Producer) Publish(ctx context.Context, topic string, e *Event) (err error) {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(e.Key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
			{Key: "source", Value: []byte(e.Source)},
		},
	}
	if e.CorrelationID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "correlation_id", Value: []byte(e.CorrelationID)})
	}

	ctx, span := startPublishSpan(ctx, &msg)
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		publishedTotal.WithLabelValues(topic, outcome).Inc()
		publishDuration.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	}()

	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write to %s: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("event_id", e.ID),
		slog.String("key", e.Key),
	)
	return nil
}

// Ping succeeds when any configured broker answers a metadata request.
func (p *Producer) Ping(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}

	var errs []error
	for _, addr := range p.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		_, err = conn.Brokers()
		_ = conn.Close()
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("kafka: no broker reachable: %w", errors.Join(errs...))
}

// Close flushes buffered messages.
func (p *Producer) Close() error {
	return p.w.Close()
}
