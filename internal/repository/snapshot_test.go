package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/savedcarts/internal/domain"
	apperrors "github.com/utafrali/savedcarts/pkg/errors"
)

type mockAttributeStore struct {
	mock.Mock
}

func (m *mockAttributeStore) Get(ctx context.Context, userID, key string) ([]byte, error) {
	args := m.Called(ctx, userID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockAttributeStore) Set(ctx context.Context, userID, key string, value []byte) error {
	args := m.Called(ctx, userID, key, value)
	return args.Error(0)
}

func (m *mockAttributeStore) DeleteAll(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func TestSnapshotStore_Find_Decodes(t *testing.T) {
	attrs := new(mockAttributeStore)
	store := NewSnapshotStore(attrs)

	attrs.On("Get", mock.Anything, "42", domain.SavedCartsAttribute).
		Return([]byte(`[{"saved_at":1000,"lines":[{"product_id":"A1","quantity":2}]}]`), nil)

	carts, err := store.Find(context.Background(), "42")
	require.NoError(t, err)
	require.Equal(t, 1, carts.Len())

	snap, ok := carts.Find(1000)
	require.True(t, ok)
	assert.Equal(t, "A1", snap.Lines[0].ProductID)
	assert.Equal(t, 2, snap.Lines[0].Quantity)
	attrs.AssertExpectations(t)
}

func TestSnapshotStore_Find_NotFound(t *testing.T) {
	attrs := new(mockAttributeStore)
	store := NewSnapshotStore(attrs)

	attrs.On("Get", mock.Anything, "42", domain.SavedCartsAttribute).
		Return(nil, apperrors.NotFound("user attribute", "42/saved_carts"))

	carts, err := store.Find(context.Background(), "42")
	assert.Nil(t, carts)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSnapshotStore_Find_CorruptValue(t *testing.T) {
	attrs := new(mockAttributeStore)
	store := NewSnapshotStore(attrs)

	attrs.On("Get", mock.Anything, "42", domain.SavedCartsAttribute).Return([]byte(`{"oops"`), nil)

	_, err := store.Find(context.Background(), "42")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), "unmarshal saved carts")
}

func TestSnapshotStore_Load_EmptyWhenAbsent(t *testing.T) {
	attrs := new(mockAttributeStore)
	store := NewSnapshotStore(attrs)

	attrs.On("Get", mock.Anything, "42", domain.SavedCartsAttribute).
		Return(nil, apperrors.NotFound("user attribute", "42/saved_carts"))

	carts, err := store.Load(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, 0, carts.Len())
}

func TestSnapshotStore_Load_BackendError(t *testing.T) {
	attrs := new(mockAttributeStore)
	store := NewSnapshotStore(attrs)

	attrs.On("Get", mock.Anything, "42", domain.SavedCartsAttribute).Return(nil, errors.New("connection refused"))

	_, err := store.Load(context.Background(), "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSnapshotStore_Save_EncodesInOrder(t *testing.T) {
	attrs := new(mockAttributeStore)
	store := NewSnapshotStore(attrs)

	carts := domain.NewSavedCarts(
		domain.Snapshot{SavedAt: 2000, Lines: []domain.Line{{ProductID: "B", Quantity: 1}}},
		domain.Snapshot{SavedAt: 1000, Lines: []domain.Line{{ProductID: "A", Quantity: 3}}},
	)
	want := `[{"saved_at":2000,"lines":[{"product_id":"B","quantity":1}]},{"saved_at":1000,"lines":[{"product_id":"A","quantity":3}]}]`

	attrs.On("Set", mock.Anything, "42", domain.SavedCartsAttribute, []byte(want)).Return(nil)

	require.NoError(t, store.Save(context.Background(), "42", carts))
	attrs.AssertExpectations(t)
}

func TestSnapshotStore_Save_Error(t *testing.T) {
	attrs := new(mockAttributeStore)
	store := NewSnapshotStore(attrs)

	attrs.On("Set", mock.Anything, "42", domain.SavedCartsAttribute, []byte(`[]`)).Return(errors.New("READONLY"))

	err := store.Save(context.Background(), "42", domain.NewSavedCarts())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set saved carts attribute")
}

func TestSnapshotStore_Purge(t *testing.T) {
	attrs := new(mockAttributeStore)
	store := NewSnapshotStore(attrs)

	attrs.On("DeleteAll", mock.Anything, "42").Return(nil)

	require.NoError(t, store.Purge(context.Background(), "42"))
	attrs.AssertExpectations(t)
}
