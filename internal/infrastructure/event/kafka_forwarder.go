package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/config"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// MessageWriter is the part of kafka.Writer the forwarder uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaForwarder is a wildcard event handler that copies every ledger event
// to a Kafka topic, keyed by aggregate id so one aggregate stays ordered.
type KafkaForwarder struct {
	writer MessageWriter
	source string
	logger *zap.Logger
}

// NewKafkaWriter builds a synchronous writer for cfg
func NewKafkaWriter(cfg config.EventsConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
}

// NewKafkaForwarder creates a forwarder writing through writer
func NewKafkaForwarder(writer MessageWriter, source string, logger *zap.Logger) *KafkaForwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaForwarder{writer: writer, source: source, logger: logger.Named("kafka_forwarder")}
}

// EventTypes returns nil: the forwarder receives every event
func (f *KafkaForwarder) EventTypes() []string {
	return nil
}

// Handle writes one event. Trace context travels in the message headers.
func (f *KafkaForwarder) Handle(ctx context.Context, event shared.DomainEvent) error {
	env, err := NewEnvelope(f.source, event)
	if err != nil {
		return err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(env.AggregateID),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-id", Value: []byte(env.ID)},
			{Key: "event-type", Value: []byte(env.Type)},
			{Key: "event-time", Value: []byte(env.OccurredAt.Format(time.RFC3339Nano))},
			{Key: "content-type", Value: []byte("application/json")},
		},
	}
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	if err := f.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to forward event %s: %w", env.ID, err)
	}
	f.logger.Debug("event forwarded", zap.String("event_type", env.Type), zap.String("event_id", env.ID))
	return nil
}

// Close flushes and closes the writer
func (f *KafkaForwarder) Close() error {
	return f.writer.Close()
}

var _ shared.EventHandler = (*KafkaForwarder)(nil)
