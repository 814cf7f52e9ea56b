package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"inspectra/config"
	"inspectra/internal/models"
)

const snapshotEventType = "property.snapshot.created"

// SnapshotEvent is the message published for every stored snapshot
type SnapshotEvent struct {
	EventID        string                `json:"event_id"`
	EventType      string                `json:"event_type"`
	OccurredAt     time.Time             `json:"occurred_at"`
	SnapshotID     string                `json:"snapshot_id"`
	PropertyID     string                `json:"property_id"`
	InspectedAt    time.Time             `json:"inspected_at"`
	PropertyScore  float64               `json:"property_score"`
	RiskTier       models.RiskTier       `json:"risk_tier"`
	Coverage       float64               `json:"coverage"`
	UnderInspected bool                  `json:"under_inspected"`
	DecisionSignal models.DecisionSignal `json:"decision_signal"`
}

func NewSnapshotEvent(snapshot *models.PropertySnapshot, now time.Time) SnapshotEvent {
	return SnapshotEvent{
		EventID:        uuid.NewString(),
		EventType:      snapshotEventType,
		OccurredAt:     now.UTC(),
		SnapshotID:     snapshot.ID,
		PropertyID:     snapshot.PropertyID,
		InspectedAt:    snapshot.Timestamp,
		PropertyScore:  snapshot.PropertyScore,
		RiskTier:       snapshot.RiskTier,
		Coverage:       snapshot.Coverage,
		UnderInspected: snapshot.UnderInspected,
		DecisionSignal: snapshot.DecisionSignal,
	}
}

// Publisher announces stored snapshots to downstream consumers
type Publisher interface {
	PublishSnapshots(ctx context.Context, snapshots []*models.PropertySnapshot) error
	Close() error
}

// NopPublisher drops every event. It is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishSnapshots(context.Context, []*models.PropertySnapshot) error { return nil }

func (NopPublisher) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaPublisher writes snapshot events keyed by property id, so every
// event of one property lands on the same partition in order.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *logrus.Logger
	now    func() time.Time
}

// NewPublisher returns a Kafka publisher, or a NopPublisher when no brokers are configured
func NewPublisher(cfg *config.Config, logger *logrus.Logger) Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Info("No Kafka brokers configured, snapshot events are disabled")
		return NopPublisher{}
	}

	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafkago.RequireAll,
	}
	return newKafkaPublisher(writer, cfg.Kafka.Topic, logger)
}

func newKafkaPublisher(writer messageWriter, topic string, logger *logrus.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		topic:  topic,
		logger: logger,
		now:    time.Now,
	}
}

func (p *KafkaPublisher) PublishSnapshots(ctx context.Context, snapshots []*models.PropertySnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	messages := make([]kafkago.Message, 0, len(snapshots))
	for _, snapshot := range snapshots {
		event := NewSnapshotEvent(snapshot, p.now())
		value, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to encode snapshot event %s: %w", snapshot.ID, err)
		}
		messages = append(messages, kafkago.Message{
			Key:   []byte(snapshot.PropertyID),
			Value: value,
			Headers: []kafkago.Header{
				{Key: "event_type", Value: []byte(event.EventType)},
				{Key: "event_id", Value: []byte(event.EventID)},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		return fmt.Errorf("kafka publish to %s: %w", p.topic, err)
	}

	p.logger.WithFields(logrus.Fields{
		"topic":  p.topic,
		"events": len(messages),
	}).Debug("Published snapshot events")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
