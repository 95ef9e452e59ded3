package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/utafrali/savedcarts/pkg/kafka"
)

// TopicUserDeleted is published by the user service when an account is removed.
var TopicUserDeleted = pkgkafka.Topic("user", "deleted")

// UserDeletedData is the payload of a user.deleted event. Older producers
// only set id.
type UserDeletedData struct {
	UserID string `json:"user_id"`
	ID     string `json:"id"`
}

// UserPurger removes everything stored for a user.
type UserPurger interface {
	PurgeUser(ctx context.Context, userID string) error
}

// Consumer handles user lifecycle events.
type Consumer struct {
	purger UserPurger
	logger *slog.Logger
}

// NewConsumer creates a new event consumer for the saved-carts service.
func NewConsumer(purger UserPurger, logger *slog.Logger) *Consumer {
	return &Consumer{
		purger: purger,
		logger: logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicUserDeleted:
		return c.handleUserDeleted(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// handleUserDeleted drops the saved carts of a deleted user.
func (c *Consumer) handleUserDeleted(ctx context.Context, event *pkgkafka.Event) error {
	var data UserDeletedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal user.deleted data: %w", err)
	}

	userID := data.UserID
	if userID == "" {
		userID = data.ID
	}
	if userID == "" {
		userID = event.AggregateID
	}
	if userID == "" {
		c.logger.WarnContext(ctx, "user.deleted event without user id",
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	if err := c.purger.PurgeUser(ctx, userID); err != nil {
		return fmt.Errorf("purge saved carts of deleted user: %w", err)
	}

	c.logger.InfoContext(ctx, "purged saved carts of deleted user",
		slog.String("user_id", userID),
	)
	return nil
}
