package repository

import (
	"context"
)

// AttributeStore defines per-user key/value persistence for user attributes.
type AttributeStore interface {
	// Get returns the raw value of a user attribute. It returns an
	// apperrors.ErrNotFound error when the attribute was never written.
	Get(ctx context.Context, userID, key string) ([]byte, error)

	// Set replaces the value of a user attribute.
	Set(ctx context.Context, userID, key string, value []byte) error

	// DeleteAll removes every attribute of a user.
	DeleteAll(ctx context.Context, userID string) error
}

// NoticeStore queues one-shot, user-visible notices between a redirect and
// the next page render.
type NoticeStore interface {
	// Add appends a notice for the user.
	Add(ctx context.Context, userID, message string) error

	// Drain returns and removes all pending notices for the user, oldest first.
	Drain(ctx context.Context, userID string) ([]string, error)
}
