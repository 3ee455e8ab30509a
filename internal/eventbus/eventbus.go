package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/roadwatch/backend/internal/domain"
)

const DefaultAlertTopic = "hazard_alerts"

// AlertMessage is the Kafka payload for one alert.
type AlertMessage struct {
	EventID   string             `json:"event_id"`
	EventType string             `json:"event_type"`
	HazardID  string             `json:"hazard_id"`
	Class     domain.HazardClass `json:"class"`
	Distance  float64            `json:"distance_meters"`
	Position  domain.Coordinate  `json:"position"`
	Hazard    domain.Coordinate  `json:"hazard_location"`
	Severity  int                `json:"severity"`
	Timestamp time.Time          `json:"timestamp"`
}

func NewAlertMessage(ev domain.AlertEvent) AlertMessage {
	return AlertMessage{
		EventID:   ev.ID,
		EventType: "hazard.alert",
		HazardID:  ev.Hazard.ID(),
		Class:     ev.Class,
		Distance:  ev.DistanceMeters,
		Position:  ev.Position,
		Hazard:    ev.Hazard.Location,
		Severity:  ev.Hazard.Severity,
		Timestamp: ev.Timestamp,
	}
}

// AlertBus writes alerts to a Kafka topic keyed by hazard id, so all alerts
// for one hazard land on the same partition.
type AlertBus struct {
	writer *kafka.Writer
}

func NewAlertBus(brokers []string, topic string) *AlertBus {
	if topic == "" {
		topic = DefaultAlertTopic
	}
	return &AlertBus{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
	}
}

func (b *AlertBus) PublishAlert(ctx context.Context, ev domain.AlertEvent) error {
	if ev.ID == "" {
		return fmt.Errorf("alert missing event id for hazard %s", ev.Hazard.ID())
	}
	msg, err := json.Marshal(NewAlertMessage(ev))
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	return b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Hazard.ID()),
		Value: msg,
	})
}

func (b *AlertBus) Close() error {
	if err := b.writer.Close(); err != nil {
		return fmt.Errorf("close alert writer: %w", err)
	}
	return nil
}
