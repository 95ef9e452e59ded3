package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/utafrali/savedcarts/internal/domain"
	apperrors "github.com/utafrali/savedcarts/pkg/errors"
)

// SnapshotStore reads and writes a user's saved carts through an AttributeStore.
// Writes replace the whole collection; callers read-modify-write without locking,
// so concurrent writers for the same user race and the last write wins.
type SnapshotStore struct {
	attrs AttributeStore
}

// NewSnapshotStore creates a snapshot store on top of the given attribute store.
func NewSnapshotStore(attrs AttributeStore) *SnapshotStore {
	return &SnapshotStore{attrs: attrs}
}

// Find returns the user's saved carts, or an apperrors.ErrNotFound error when
// the user never saved anything.
func (s *SnapshotStore) Find(ctx context.Context, userID string) (*domain.SavedCarts, error) {
	data, err := s.attrs.Get(ctx, userID, domain.SavedCartsAttribute)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("saved carts", userID)
		}
		return nil, fmt.Errorf("get saved carts attribute: %w", err)
	}

	carts := domain.NewSavedCarts()
	if err := json.Unmarshal(data, carts); err != nil {
		return nil, fmt.Errorf("unmarshal saved carts: %w", err)
	}
	return carts, nil
}

// Load returns the user's saved carts, or an empty collection when none exist.
func (s *SnapshotStore) Load(ctx context.Context, userID string) (*domain.SavedCarts, error) {
	carts, err := s.Find(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.NewSavedCarts(), nil
		}
		return nil, err
	}
	return carts, nil
}

// Save replaces the stored collection for the user.
func (s *SnapshotStore) Save(ctx context.Context, userID string, carts *domain.SavedCarts) error {
	data, err := json.Marshal(carts)
	if err != nil {
		return fmt.Errorf("marshal saved carts: %w", err)
	}

	if err := s.attrs.Set(ctx, userID, domain.SavedCartsAttribute, data); err != nil {
		return fmt.Errorf("set saved carts attribute: %w", err)
	}
	return nil
}

// Purge removes every stored attribute of the user, saved carts included.
func (s *SnapshotStore) Purge(ctx context.Context, userID string) error {
	if err := s.attrs.DeleteAll(ctx, userID); err != nil {
		return fmt.Errorf("purge user attributes: %w", err)
	}
	return nil
}
