package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cp25sy5-modjot/pii-redact-service/internal/domain"
	"github.com/cp25sy5-modjot/pii-redact-service/internal/ports"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type Config struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger zerolog.Logger
}

// NewPublisher returns a Kafka-backed publisher, or a NoopPublisher when audit
// is disabled or the first broker cannot be reached.
func NewPublisher(cfg Config, logger zerolog.Logger) ports.AuditPort {
	logger = logger.With().Str("component", "audit").Logger()
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		return NewNoopPublisher(logger)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers[0])
	if err != nil {
		logger.Warn().Err(err).Strs("brokers", cfg.Brokers).Msg("kafka unreachable, audit events will only be logged")
		return NewNoopPublisher(logger)
	}
	defer conn.Close()

	if err := conn.CreateTopics(kafka.TopicConfig{Topic: cfg.Topic, NumPartitions: 1, ReplicationFactor: 1}); err != nil {
		logger.Debug().Err(err).Str("topic", cfg.Topic).Msg("create topic (might already exist)")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireOne,
	}
	logger.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("audit publisher connected")
	return newKafkaPublisher(writer, cfg.Topic, logger)
}

func newKafkaPublisher(w messageWriter, topic string, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event domain.AuditEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Operation),
		Value: value,
		Time:  event.Timestamp,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write audit event to %s: %w", p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher logs events at debug level instead of shipping them.
type NoopPublisher struct {
	logger zerolog.Logger
}

func NewNoopPublisher(logger zerolog.Logger) *NoopPublisher {
	return &NoopPublisher{logger: logger}
}

func (n *NoopPublisher) Publish(_ context.Context, event domain.AuditEvent) error {
	n.logger.Debug().
		Str("request_id", event.RequestID).
		Str("operation", event.Operation).
		Int("tokens", event.Tokens).
		Int("redacted", event.Redacted).
		Msg("audit event")
	return nil
}

func (n *NoopPublisher) Close() error { return nil }
