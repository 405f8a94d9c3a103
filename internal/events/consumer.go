package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
)

// StartEventLog subscribes to topic and logs every event it receives until
// the subscriber closes or ctx ends. It stands in for downstream consumers
// when events stay in-process.
func StartEventLog(ctx context.Context, subscriber message.Subscriber, topic string, logger *slog.Logger) error {
	messages, err := subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	go func() {
		for msg := range messages {
			event, err := DecodeMessage(msg)
			if err != nil {
				logger.Warn("Dropping undecodable event", "message_id", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			logger.Info("Event received",
				"event_id", event.ID,
				"event_type", event.Type,
				"topic", topic,
				"data", event.Data,
			)
			msg.Ack()
		}
	}()
	return nil
}
