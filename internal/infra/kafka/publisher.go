package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"contest-engine/internal/domain"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher ships contest events as JSON, keyed by participant so one team's
// events stay ordered within a partition.
type Publisher struct {
	writer MessageWriter
}

func NewPublisher(writer MessageWriter) *Publisher {
	return &Publisher{writer: writer}
}

// NewWriter builds the producer used in production.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

type eventMessage struct {
	Type          domain.EventType `json:"type"`
	ParticipantID string           `json:"participantId"`
	TeamName      string           `json:"teamName,omitempty"`
	Data          map[string]any   `json:"data,omitempty"`
	At            time.Time        `json:"at"`
}

func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(eventMessage{
		Type:          event.Type,
		ParticipantID: event.ParticipantID,
		TeamName:      event.TeamName,
		Data:          event.Data,
		At:            event.At.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ParticipantID),
		Value: payload,
		Time:  event.At,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}
