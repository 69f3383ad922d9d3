package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-events/internal/models"
)

const (
	MessageEventCreated      = "event-created"
	MessageDuplicateSquashed = "duplicate-squashed"
)

// envelope is the wire shape for catalog change messages. CanonicalID is only
// set for duplicate-squashed messages.
type envelope struct {
	Type        string       `json:"type"`
	EventID     string       `json:"event_id"`
	CanonicalID string       `json:"canonical_id,omitempty"`
	Event       models.Event `json:"event"`
	PublishedAt time.Time    `json:"published_at"`
}

type Producer struct {
	Writer   *kafka.Writer
	MockMode bool
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   topic,
	})
	return &Producer{Writer: writer}
}

// NewMockProducer returns a producer that logs instead of writing, for local
// runs without a broker.
func NewMockProducer() *Producer {
	return &Producer{MockMode: true}
}

func (p *Producer) publish(key string, env envelope) error {
	env.PublishedAt = time.Now().UTC()
	msgBytes, err := json.Marshal(env)
	if err != nil {
		return err
	}

	if p.MockMode || p.Writer == nil {
		fmt.Printf("Kafka mock publish [%s]: %s\n", env.Type, string(msgBytes))
		return nil
	}

	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(key),
			Value: msgBytes,
		},
	)
}

// PublishEventCreated streams a newly created catalog event.
func (p *Producer) PublishEventCreated(e models.Event) error {
	return p.publish(e.ID, envelope{
		Type:    MessageEventCreated,
		EventID: e.ID,
		Event:   e,
	})
}

// PublishDuplicateSquashed streams the squash of duplicate into canonical.
// Keyed by the canonical id so all squashes against one event stay ordered.
func (p *Producer) PublishDuplicateSquashed(duplicate, canonical models.Event) error {
	return p.publish(canonical.ID, envelope{
		Type:        MessageDuplicateSquashed,
		EventID:     duplicate.ID,
		CanonicalID: canonical.ID,
		Event:       duplicate,
	})
}

func (p *Producer) Close() error {
	if p.Writer == nil {
		return nil
	}
	return p.Writer.Close()
}
