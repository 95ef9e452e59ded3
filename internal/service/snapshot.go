package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/savedcarts/internal/domain"
	apperrors "github.com/utafrali/savedcarts/pkg/errors"
	"github.com/utafrali/savedcarts/pkg/tracing"
)

const tracerName = "github.com/utafrali/savedcarts/internal/service"

// CartAccessor reads and rewrites a user's active cart.
type CartAccessor interface {
	Lines(ctx context.Context, userID string) ([]domain.Line, error)
	Clear(ctx context.Context, userID string) error
	AddLine(ctx context.Context, userID string, line domain.Line) error
}

// SnapshotRepository persists a user's saved carts.
type SnapshotRepository interface {
	Load(ctx context.Context, userID string) (*domain.SavedCarts, error)
	Find(ctx context.Context, userID string) (*domain.SavedCarts, error)
	Save(ctx context.Context, userID string, carts *domain.SavedCarts) error
	Purge(ctx context.Context, userID string) error
}

// EventPublisher announces saved-cart changes to other services.
type EventPublisher interface {
	PublishSaved(ctx context.Context, userID string, snapshot domain.Snapshot) error
	PublishRestored(ctx context.Context, userID string, snapshot domain.Snapshot) error
	PublishDeleted(ctx context.Context, userID string, savedAt int64) error
}

// Option configures a SnapshotService.
type Option func(*SnapshotService)

// WithClock replaces time.Now as the source of snapshot keys.
func WithClock(now func() time.Time) Option {
	return func(s *SnapshotService) { s.now = now }
}

// WithPublisher publishes an event after every successful change.
func WithPublisher(p EventPublisher) Option {
	return func(s *SnapshotService) { s.events = p }
}

// WithMetrics counts operations by outcome.
func WithMetrics(m *Metrics) Option {
	return func(s *SnapshotService) { s.metrics = m }
}

// SnapshotService implements saving, restoring and deleting cart snapshots.
//
// Every operation takes the id of the authenticated user; an empty id means
// the caller is anonymous and the operation reports false without touching
// anything. The boolean result is the outcome shown to the shopper. The error
// is only set when a dependency failed and is meant for logs.
type SnapshotService struct {
	repo    SnapshotRepository
	cart    CartAccessor
	events  EventPublisher
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
	tracer  trace.Tracer
}

// NewSnapshotService creates a new snapshot service.
func NewSnapshotService(repo SnapshotRepository, cart CartAccessor, logger *slog.Logger, opts ...Option) *SnapshotService {
	s := &SnapshotService{
		repo:   repo,
		cart:   cart,
		logger: logger,
		now:    time.Now,
		tracer: tracing.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveCurrentCart snapshots the user's active cart under the current second.
// An empty cart is not saved. A save within the same second as an earlier one
// replaces that snapshot.
func (s *SnapshotService) SaveCurrentCart(ctx context.Context, userID string) (ok bool, err error) {
	ctx, span := s.tracer.Start(ctx, "SnapshotService.SaveCurrentCart",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer func() { s.finish(span, opSave, ok, err) }()

	if userID == "" {
		return false, nil
	}

	lines, err := s.cart.Lines(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("read active cart: %w", err)
	}
	if len(lines) == 0 {
		return false, nil
	}

	snapshot := domain.Snapshot{SavedAt: s.now().Unix(), Lines: lines}
	span.SetAttributes(attribute.Int64("saved_cart.saved_at", snapshot.SavedAt))

	carts, err := s.repo.Load(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load saved carts: %w", err)
	}
	carts.Put(snapshot)
	if err := s.repo.Save(ctx, userID, carts); err != nil {
		return false, fmt.Errorf("save saved carts: %w", err)
	}

	s.logger.InfoContext(ctx, "cart saved",
		slog.String("user_id", userID),
		slog.Int64("saved_at", snapshot.SavedAt),
		slog.Int("line_count", len(lines)),
	)
	s.publish(ctx, opSave, func(p EventPublisher) error { return p.PublishSaved(ctx, userID, snapshot) })
	return true, nil
}

// RestoreCart replaces the user's active cart with the lines of the snapshot
// saved at savedAt. The snapshot stays stored. When no non-empty snapshot has
// that key the active cart is left untouched.
func (s *SnapshotService) RestoreCart(ctx context.Context, userID string, savedAt int64) (ok bool, err error) {
	ctx, span := s.tracer.Start(ctx, "SnapshotService.RestoreCart",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int64("saved_cart.saved_at", savedAt),
		))
	defer func() { s.finish(span, opRestore, ok, err) }()

	if userID == "" {
		return false, nil
	}

	carts, found, err := s.find(ctx, userID)
	if err != nil || !found {
		return false, err
	}

	snapshot, found := carts.Find(savedAt)
	if !found {
		return false, nil
	}

	if err := s.cart.Clear(ctx, userID); err != nil {
		return false, fmt.Errorf("clear active cart: %w", err)
	}
	for i, line := range snapshot.Lines {
		if err := s.cart.AddLine(ctx, userID, line); err != nil {
			// The cart now holds only the lines added before the failure.
			return false, fmt.Errorf("add line %d (%s) to active cart: %w", i, line.ProductID, err)
		}
	}

	s.logger.InfoContext(ctx, "cart restored",
		slog.String("user_id", userID),
		slog.Int64("saved_at", savedAt),
		slog.Int("line_count", len(snapshot.Lines)),
	)
	s.publish(ctx, opRestore, func(p EventPublisher) error { return p.PublishRestored(ctx, userID, snapshot) })
	return true, nil
}

// DeleteSnapshot removes the snapshot saved at savedAt. It succeeds whenever
// the user has saved carts at all, whether or not the key exists.
func (s *SnapshotService) DeleteSnapshot(ctx context.Context, userID string, savedAt int64) (ok bool, err error) {
	ctx, span := s.tracer.Start(ctx, "SnapshotService.DeleteSnapshot",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int64("saved_cart.saved_at", savedAt),
		))
	defer func() { s.finish(span, opDelete, ok, err) }()

	if userID == "" {
		return false, nil
	}

	carts, found, err := s.find(ctx, userID)
	if err != nil || !found {
		return false, err
	}

	removed := carts.Remove(savedAt)
	if err := s.repo.Save(ctx, userID, carts); err != nil {
		return false, fmt.Errorf("save saved carts: %w", err)
	}

	s.logger.InfoContext(ctx, "saved cart deleted",
		slog.String("user_id", userID),
		slog.Int64("saved_at", savedAt),
		slog.Bool("existed", removed),
	)
	if removed {
		s.publish(ctx, opDelete, func(p EventPublisher) error { return p.PublishDeleted(ctx, userID, savedAt) })
	}
	return true, nil
}

// ListSnapshots returns the user's snapshots in save order. Anonymous users
// have none.
func (s *SnapshotService) ListSnapshots(ctx context.Context, userID string) (snapshots []domain.Snapshot, err error) {
	ctx, span := s.tracer.Start(ctx, "SnapshotService.ListSnapshots",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer func() { s.finish(span, opList, err == nil, err) }()

	if userID == "" {
		return []domain.Snapshot{}, nil
	}

	carts, err := s.repo.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load saved carts: %w", err)
	}
	return carts.All(), nil
}

// PurgeUser deletes everything stored for the user.
func (s *SnapshotService) PurgeUser(ctx context.Context, userID string) (err error) {
	ctx, span := s.tracer.Start(ctx, "SnapshotService.PurgeUser",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer func() { s.finish(span, opPurge, err == nil, err) }()

	if userID == "" {
		return apperrors.InvalidInput("user id is required")
	}
	if err := s.repo.Purge(ctx, userID); err != nil {
		return fmt.Errorf("purge user: %w", err)
	}
	return nil
}

// find loads the user's saved carts and reports whether any were ever stored.
func (s *SnapshotService) find(ctx context.Context, userID string) (*domain.SavedCarts, bool, error) {
	carts, err := s.repo.Find(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("find saved carts: %w", err)
	}
	return carts, true, nil
}

func (s *SnapshotService) publish(ctx context.Context, op string, fn func(EventPublisher) error) {
	if s.events == nil {
		return
	}
	if err := fn(s.events); err != nil {
		s.logger.WarnContext(ctx, "failed to publish saved cart event",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
	}
}

func (s *SnapshotService) finish(span trace.Span, op string, ok bool, err error) {
	span.SetAttributes(attribute.Bool("saved_cart.ok", ok))
	tracing.End(span, err)
	s.metrics.observe(op, ok, err)
}
