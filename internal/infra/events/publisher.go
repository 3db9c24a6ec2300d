package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"recurring_message_bot/internal/domain/chat"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// AMQPSink implements chat.Sink by publishing message-append events to the
// chat service's topic exchange. The chat service owns persistence and
// fan-out; this process only hands the message over the broker.
type AMQPSink struct {
	conn     *amqp091.Connection
	exchange string
}

// envelope is the wire format consumed by the chat service.
type envelope struct {
	Meta meta        `json:"meta"`
	Data messageData `json:"data"`
}

type meta struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
}

type messageData struct {
	ChannelID  string            `json:"channel_id"`
	Body       string            `json:"body"`
	AuthorID   string            `json:"author_id"`
	AuthorName string            `json:"author_name"`
	Tags       map[string]string `json:"tags,omitempty"`
}

func NewAMQPSink(url, exchange string) (*AMQPSink, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial AMQP broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open AMQP channel: %w", err)
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(
		exchange, "topic", true, false, false, false, nil,
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %q: %w", exchange, err)
	}

	return &AMQPSink{conn: conn, exchange: exchange}, nil
}

// Append publishes one message-append event and returns its event ID.
func (s *AMQPSink) Append(ctx context.Context, msg *chat.Message) (string, error) {
	ch, err := s.conn.Channel()
	if err != nil {
		return "", fmt.Errorf("failed to open AMQP channel: %w", err)
	}
	defer ch.Close()

	eventID := uuid.NewString()
	body, err := json.Marshal(envelope{
		Meta: meta{
			ID:         eventID,
			Kind:       "chat.message.append",
			OccurredAt: msg.SentAt,
		},
		Data: messageData{
			ChannelID:  msg.ChannelID,
			Body:       msg.Body,
			AuthorID:   msg.AuthorID,
			AuthorName: msg.AuthorName,
			Tags:       msg.Tags,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal message envelope: %w", err)
	}

	err = ch.PublishWithContext(
		ctx, s.exchange, "chat.message.append", false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    eventID,
			Timestamp:    msg.SentAt,
			Body:         body,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to publish message event: %w", err)
	}
	return eventID, nil
}

func (s *AMQPSink) Close() error {
	return s.conn.Close()
}
