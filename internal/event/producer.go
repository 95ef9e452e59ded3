package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/savedcarts/internal/domain"
	pkgkafka "github.com/utafrali/savedcarts/pkg/kafka"
	"github.com/utafrali/savedcarts/pkg/logger"
)

// Kafka topic constants for saved-cart domain events.
var (
	TopicSavedCartSaved    = pkgkafka.Topic("saved_cart", "saved")
	TopicSavedCartRestored = pkgkafka.Topic("saved_cart", "restored")
	TopicSavedCartDeleted  = pkgkafka.Topic("saved_cart", "deleted")
)

// AggregateTypeSavedCart is the aggregate type of saved-cart events.
const AggregateTypeSavedCart = "saved_cart"

// SourceSavedCartsService identifies events originating from this service.
const SourceSavedCartsService = "saved-carts-service"

// SnapshotData is the payload of saved_cart.saved and saved_cart.restored events.
type SnapshotData struct {
	UserID    string         `json:"user_id"`
	SavedAt   int64          `json:"saved_at"`
	LineCount int            `json:"line_count"`
	ItemCount int            `json:"item_count"`
	Lines     []SnapshotLine `json:"lines"`
}

// SnapshotLine is a line within snapshot events.
type SnapshotLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// DeletedData is the payload of a saved_cart.deleted event.
type DeletedData struct {
	UserID  string `json:"user_id"`
	SavedAt int64  `json:"saved_at"`
}

// EventWriter is the part of *pkgkafka.Producer the event producer uses.
type EventWriter interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes saved-cart domain events to Kafka.
type Producer struct {
	kafka  EventWriter
	logger *slog.Logger
}

// NewProducer creates a new event producer for the saved-carts service.
func NewProducer(kafka EventWriter, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishSaved publishes a saved_cart.saved event.
func (p *Producer) PublishSaved(ctx context.Context, userID string, snapshot domain.Snapshot) error {
	return p.publish(ctx, TopicSavedCartSaved, userID, newSnapshotData(userID, snapshot))
}

// PublishRestored publishes a saved_cart.restored event.
func (p *Producer) PublishRestored(ctx context.Context, userID string, snapshot domain.Snapshot) error {
	return p.publish(ctx, TopicSavedCartRestored, userID, newSnapshotData(userID, snapshot))
}

// PublishDeleted publishes a saved_cart.deleted event.
func (p *Producer) PublishDeleted(ctx context.Context, userID string, savedAt int64) error {
	return p.publish(ctx, TopicSavedCartDeleted, userID, DeletedData{UserID: userID, SavedAt: savedAt})
}

func (p *Producer) publish(ctx context.Context, topic, userID string, data any) error {
	var opts []pkgkafka.EventOption
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		opts = append(opts, pkgkafka.WithCorrelationID(id))
	}

	event, err := pkgkafka.NewEvent(topic, userID, AggregateTypeSavedCart, SourceSavedCartsService, data, opts...)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published saved cart event",
		slog.String("topic", topic),
		slog.String("user_id", userID),
		slog.String("event_id", event.EventID),
	)
	return nil
}

func newSnapshotData(userID string, s domain.Snapshot) SnapshotData {
	lines := make([]SnapshotLine, len(s.Lines))
	for i, l := range s.Lines {
		lines[i] = SnapshotLine{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	return SnapshotData{
		UserID:    userID,
		SavedAt:   s.SavedAt,
		LineCount: len(s.Lines),
		ItemCount: s.ItemCount(),
		Lines:     lines,
	}
}
