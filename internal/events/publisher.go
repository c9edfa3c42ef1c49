package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_cart/abandoned-cart-service/internal/domain"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultTopic      = "abandoned-carts"
	EventTypeRecorded = "abandoned-cart.recorded"

	// records are published one at a time, so a long batch window would
	// stall every upsert of the run
	batchTimeout = 10 * time.Millisecond
	writeTimeout = 5 * time.Second
)

type Publisher interface {
	PublishRecorded(ctx context.Context, runID string, record domain.AbandonedCartRecord) error
	Close() error
}

type RecordedEvent struct {
	EventType  string                     `json:"event_type"`
	RunID      string                     `json:"run_id"`
	Record     domain.AbandonedCartRecord `json:"record"`
	RecordedAt time.Time                  `json:"recorded_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
	now    func() time.Time
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           batchTimeout,
		WriteTimeout:           writeTimeout,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w, now: time.Now}
}

// PublishRecorded announces a stored record. Messages are keyed by cart id
// so every event for one cart lands on the same partition.
func (p *KafkaPublisher) PublishRecorded(ctx context.Context, runID string, record domain.AbandonedCartRecord) error {
	payload, err := json.Marshal(RecordedEvent{
		EventType:  EventTypeRecorded,
		RunID:      runID,
		Record:     record,
		RecordedAt: p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal recorded event failed: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(record.CartID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeRecorded)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish recorded event for cart %s failed: %w", record.CartID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishRecorded(context.Context, string, domain.AbandonedCartRecord) error {
	return nil
}

func (NopPublisher) Close() error { return nil }
