// Package messaging bridges dispatched domain events onto Kafka.
package messaging

import (
	"context"
	"encoding/json"
	"time"

	"clickup-bridge/internal/config"
	"clickup-bridge/internal/events"
	"clickup-bridge/pkg/errors"
	"clickup-bridge/pkg/logger"
	"clickup-bridge/pkg/metrics"

	"github.com/segmentio/kafka-go"
)

// Publisher writes domain events to a Kafka topic. It is wired into the
// dispatcher as a regular listener, so a broker outage surfaces as a
// delivery failure rather than silent loss.
type Publisher struct {
	writer  *kafka.Writer
	topic   string
	logger  logger.Logger
	metrics *metrics.Metrics
}

// eventEnvelope is the wire format for published events
type eventEnvelope struct {
	Event       string                 `json:"event"`
	Source      string                 `json:"source"`
	Successful  bool                   `json:"successful"`
	Payload     map[string]interface{} `json:"payload"`
	PublishedAt time.Time              `json:"published_at"`
}

// NewPublisher creates a publisher from configuration
func NewPublisher(cfg *config.KafkaConfig, log logger.Logger) (*Publisher, error) {
	if cfg == nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "kafka config is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.ValidationError(errors.CodeMissingField, "at least one kafka broker is required")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 100 * time.Millisecond,
		Compression:  kafka.Snappy,
	}

	return &Publisher{
		writer:  writer,
		topic:   cfg.Topic,
		logger:  log,
		metrics: metrics.GetGlobal(),
	}, nil
}

// Publish writes one event to the topic, keyed by event type so ordering
// holds per type
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	envelope := eventEnvelope{
		Event:       string(event.EventType()),
		Source:      string(event.EventSource()),
		Successful:  event.WasSuccessful(),
		Payload:     event.RawPayload(),
		PublishedAt: time.Now().UTC(),
	}

	value, err := json.Marshal(envelope)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, errors.CodeInternal, "encode event envelope")
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(envelope.Event),
		Value: value,
	})
	if err != nil {
		p.metrics.RecordEventPublished(p.topic, "error")
		p.logger.Error("failed to publish event", "topic", p.topic, "event", envelope.Event, "error", err)
		return errors.ExternalError("kafka", err)
	}

	p.metrics.RecordEventPublished(p.topic, "success")
	return nil
}

// Handler adapts the publisher into a dispatcher subscription
func (p *Publisher) Handler() events.Handler {
	return func(ctx context.Context, event events.DomainEvent) error {
		return p.Publish(ctx, event)
	}
}

// Close flushes and closes the writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}
