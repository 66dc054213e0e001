// Package events publishes messaging domain events for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event types
const (
	ChannelCreated = "channel.created"
	ChannelUpdated = "channel.updated"
	MessageCreated = "message.created"
	MessageUpdated = "message.updated"
	MessageDeleted = "message.deleted"
)

// Event is one domain event. Events of a channel share a partition key.
type Event struct {
	Type       string      `json:"type"`
	ChannelID  string      `json:"channel_id"`
	ActorID    string      `json:"actor_id"`
	OccurredAt int64       `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// Publisher delivers events
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Kafka writes events to one topic keyed by channel id
type Kafka struct {
	writer *kafka.Writer
}

// NewKafka creates a publisher for topic on brokers
func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}}
}

// Publish encodes e as JSON and writes it
func (k *Kafka) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", e.Type, err)
	}
	msg := kafka.Message{
		Key:     []byte(e.ChannelID),
		Value:   value,
		Time:    time.UnixMilli(e.OccurredAt),
		Headers: []kafka.Header{{Key: "type", Value: []byte(e.Type)}},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", e.Type, err)
	}
	return nil
}

func (k *Kafka) Close() error { return k.writer.Close() }
