package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Domenick1991/travelsync/internal/logger"
	"github.com/segmentio/kafka-go"
)

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, groupID, topic string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, kafka.Message) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
}

// SyncEventHandler decodes sync events and passes them on. Undecodable
// messages are logged and skipped so one bad record does not stall the group.
func SyncEventHandler(next func(context.Context, SyncEvent) error) func(context.Context, kafka.Message) error {
	return func(ctx context.Context, msg kafka.Message) error {
		var event SyncEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Warn("decode sync event", "offset", msg.Offset, "error", err)
			return nil
		}
		return next(ctx, event)
	}
}
