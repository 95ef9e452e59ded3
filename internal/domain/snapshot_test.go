package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(productID string, qty int) Line {
	return Line{ProductID: productID, Quantity: qty}
}

// ============================================================================
// SavedCarts.Put Tests
// ============================================================================

func TestPut_AppendsInSaveOrder(t *testing.T) {
	c := NewSavedCarts()
	c.Put(Snapshot{SavedAt: 300, Lines: []Line{line("A", 1)}})
	c.Put(Snapshot{SavedAt: 100, Lines: []Line{line("B", 1)}})
	c.Put(Snapshot{SavedAt: 200, Lines: []Line{line("C", 1)}})

	all := c.All()
	require.Len(t, all, 3)
	assert.Equal(t, int64(300), all[0].SavedAt)
	assert.Equal(t, int64(100), all[1].SavedAt)
	assert.Equal(t, int64(200), all[2].SavedAt)
}

func TestPut_SameKeyOverwritesInPlace(t *testing.T) {
	c := NewSavedCarts(
		Snapshot{SavedAt: 1, Lines: []Line{line("A", 1)}},
		Snapshot{SavedAt: 2, Lines: []Line{line("B", 1)}},
	)

	c.Put(Snapshot{SavedAt: 1, Lines: []Line{line("Z", 9)}})

	all := c.All()
	require.Len(t, all, 2)
	assert.Equal(t, int64(1), all[0].SavedAt)
	assert.Equal(t, "Z", all[0].Lines[0].ProductID)
	assert.Equal(t, 9, all[0].Lines[0].Quantity)
}

// ============================================================================
// SavedCarts.Find Tests
// ============================================================================

func TestFind_Match(t *testing.T) {
	c := NewSavedCarts(Snapshot{SavedAt: 1000, Lines: []Line{line("A1", 2)}})

	s, ok := c.Find(1000)

	require.True(t, ok)
	assert.Equal(t, []Line{line("A1", 2)}, s.Lines)
}

func TestFind_UnknownKey(t *testing.T) {
	c := NewSavedCarts(Snapshot{SavedAt: 1000, Lines: []Line{line("A1", 2)}})

	_, ok := c.Find(999)

	assert.False(t, ok)
}

func TestFind_SkipsEmptySnapshot(t *testing.T) {
	c := NewSavedCarts(Snapshot{SavedAt: 1000})

	_, ok := c.Find(1000)

	assert.False(t, ok)
}

// ============================================================================
// SavedCarts.Remove Tests
// ============================================================================

func TestRemove(t *testing.T) {
	c := NewSavedCarts(
		Snapshot{SavedAt: 1, Lines: []Line{line("A", 1)}},
		Snapshot{SavedAt: 2, Lines: []Line{line("B", 1)}},
		Snapshot{SavedAt: 3, Lines: []Line{line("C", 1)}},
	)

	assert.True(t, c.Remove(2))
	assert.False(t, c.Remove(2))

	all := c.All()
	require.Len(t, all, 2)
	assert.Equal(t, int64(1), all[0].SavedAt)
	assert.Equal(t, int64(3), all[1].SavedAt)
}

func TestAll_ReturnsCopy(t *testing.T) {
	c := NewSavedCarts(Snapshot{SavedAt: 1, Lines: []Line{line("A", 1)}})

	all := c.All()
	all[0].SavedAt = 42

	assert.Equal(t, int64(1), c.All()[0].SavedAt)
}

// ============================================================================
// JSON encoding
// ============================================================================

func TestJSON_PreservesOrder(t *testing.T) {
	c := NewSavedCarts(
		Snapshot{SavedAt: 20, Lines: []Line{line("A", 1)}},
		Snapshot{SavedAt: 10, Lines: []Line{{ProductID: "B", Quantity: 3, Attributes: map[string]any{"sku": "B-1"}}}},
	)

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var decoded SavedCarts
	require.NoError(t, json.Unmarshal(data, &decoded))

	all := decoded.All()
	require.Len(t, all, 2)
	assert.Equal(t, int64(20), all[0].SavedAt)
	assert.Equal(t, int64(10), all[1].SavedAt)
	assert.Equal(t, "B-1", all[1].Lines[0].Attributes["sku"])
}

func TestJSON_EmptyIsArray(t *testing.T) {
	data, err := json.Marshal(NewSavedCarts())
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestJSON_InvalidPayload(t *testing.T) {
	var c SavedCarts
	assert.Error(t, json.Unmarshal([]byte(`{"1000":[]}`), &c))
}

// ============================================================================
// Snapshot helpers
// ============================================================================

func TestSnapshot_ItemCount(t *testing.T) {
	s := Snapshot{Lines: []Line{line("A", 2), line("B", 3)}}
	assert.Equal(t, 5, s.ItemCount())
}

func TestSnapshot_SavedTime(t *testing.T) {
	s := Snapshot{SavedAt: 1000}
	assert.Equal(t, time.Date(1970, 1, 1, 0, 16, 40, 0, time.UTC), s.SavedTime())
}
