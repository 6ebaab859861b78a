// Package events publishes domain events to RabbitMQ for downstream consumers
// such as reporting jobs. Publishing is best effort: callers log failures and
// carry on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	TypeChatAnswered     = "chat.answered"
	TypeDocumentUploaded = "document.uploaded"
	TypeDocumentDeleted  = "document.deleted"
)

type Event struct {
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	UserID     uint           `json:"user_id"`
	Data       map[string]any `json:"data,omitempty"`
}

func New(eventType string, userID uint, data map[string]any) Event {
	return Event{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		UserID:     userID,
		Data:       data,
	}
}

type RabbitPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewRabbitPublisher(conn *amqp.Connection, queueName string) *RabbitPublisher {
	return &RabbitPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *RabbitPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := Encode(event)
	if err != nil {
		return err
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         event.Type,
			Timestamp:    event.OccurredAt,
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish %s event failed: %w", event.Type, err)
	}
	return nil
}

func Encode(event Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event failed: %w", event.Type, err)
	}
	return payload, nil
}
