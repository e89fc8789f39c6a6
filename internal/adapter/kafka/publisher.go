package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/citizen-feed-service/internal/config"
	"github.com/couchcryptid/citizen-feed-service/internal/domain"
	"github.com/couchcryptid/citizen-feed-service/internal/observability"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher emits one change event per tick to a Kafka topic.
// It implements feed.Emitter.
type Publisher struct {
	writer  *kafkago.Writer
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured change topic.
func NewPublisher(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaChangeTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, metrics: metrics, logger: logger}
}

// ChangeEvent is the serialized envelope for one reconciliation pass.
// The key sets are sorted so identical changesets serialize identically.
type ChangeEvent struct {
	EventID         string    `json:"event_id"`
	EmittedAt       time.Time `json:"emitted_at"`
	Created         []string  `json:"created"`
	Updated         []string  `json:"updated"`
	Removed         []string  `json:"removed"`
	ActiveIncidents int       `json:"active_incidents"`
}

// Emit publishes the tick's changeset. Ticks with an empty changeset are
// skipped; presentation already has the state and the topic stays quiet.
func (p *Publisher) Emit(ctx context.Context, snap *domain.Snapshot) error {
	if snap.Changes.Empty() {
		p.metrics.PublishesTotal.WithLabelValues("empty").Inc()
		return nil
	}

	msg, err := serializeToMessage(snap)
	if err != nil {
		p.metrics.PublishesTotal.WithLabelValues("error").Inc()
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.PublishesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("publish change event: %w", err)
	}
	p.metrics.PublishesTotal.WithLabelValues("success").Inc()
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a snapshot's changeset into a Kafka message.
func serializeToMessage(snap *domain.Snapshot) (kafkago.Message, error) {
	event := ChangeEvent{
		EventID:         uuid.NewString(),
		EmittedAt:       snap.TakenAt,
		Created:         snap.Changes.Created.Sorted(),
		Updated:         snap.Changes.Updated.Sorted(),
		Removed:         snap.Changes.Removed.Sorted(),
		ActiveIncidents: len(snap.Incidents),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize change event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.EventID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "emitted_at", Value: []byte(snap.TakenAt.Format(time.RFC3339))},
		},
	}, nil
}
