// Package notification fans membership events out to the members and staff
// they concern. It only produces messages; delivery transports live elsewhere.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

type Message struct {
	ID          string          `json:"id"`
	RecipientID int64           `json:"recipient_id"`
	EventType   string          `json:"event_type"`
	EventID     string          `json:"event_id"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Publisher interface {
	Deliver(ctx context.Context, msg *Message) error
}

// RedisPublisher publishes each message on a channel for live consumers and
// pushes it onto an outbox list for the delivery worker.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	outbox  string
}

func NewRedisPublisher(client *redis.Client, channel, outbox string) *RedisPublisher {
	return &RedisPublisher{
		client:  client,
		channel: channel,
		outbox:  outbox,
	}
}

func (p *RedisPublisher) Deliver(ctx context.Context, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, p.channel, data)
		pipe.LPush(ctx, p.outbox, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to deliver message %s: %w", msg.ID, err)
	}
	return nil
}

// Pending returns up to n messages from the outbox, oldest first, without
// removing them.
func (p *RedisPublisher) Pending(ctx context.Context, n int64) ([]Message, error) {
	raw, err := p.client.LRange(ctx, p.outbox, -n, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read outbox: %w", err)
	}

	msgs := make([]Message, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var m Message
		if err := json.Unmarshal([]byte(raw[i]), &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// LogPublisher writes messages to the log. Used when no Redis is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Deliver(_ context.Context, msg *Message) error {
	p.logger.Info("notification",
		"message_id", msg.ID,
		"recipient_id", msg.RecipientID,
		"event_type", msg.EventType,
		"event_id", msg.EventID)
	return nil
}
