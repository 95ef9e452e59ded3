package domain

import (
	"encoding/json"
	"time"
)

// SavedCartsAttribute is the user attribute key under which saved carts are stored.
const SavedCartsAttribute = "saved_carts"

// Line represents one product/quantity pair in an active cart or a snapshot.
// Attributes carries host-specific fields (variant, name, price, ...) that are
// passed through untouched when a snapshot is restored.
type Line struct {
	ProductID  string         `json:"product_id" validate:"required"`
	Quantity   int            `json:"quantity" validate:"gte=1"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Snapshot is an immutable copy of a cart's lines keyed by the second it was saved.
type Snapshot struct {
	SavedAt int64  `json:"saved_at"`
	Lines   []Line `json:"lines"`
}

// SavedTime returns the save timestamp as a UTC time.
func (s Snapshot) SavedTime() time.Time {
	return time.Unix(s.SavedAt, 0).UTC()
}

// ItemCount returns the total quantity across all lines.
func (s Snapshot) ItemCount() int {
	var count int
	for _, l := range s.Lines {
		count += l.Quantity
	}
	return count
}

// SavedCarts is a user's collection of snapshots in save order.
// Keys are unique; putting an existing key replaces its lines in place.
type SavedCarts struct {
	entries []Snapshot
}

// NewSavedCarts builds a collection from snapshots, keeping the last value for
// duplicate keys at the position of the first occurrence.
func NewSavedCarts(snapshots ...Snapshot) *SavedCarts {
	c := &SavedCarts{}
	for _, s := range snapshots {
		c.Put(s)
	}
	return c
}

// Len returns the number of stored snapshots.
func (c *SavedCarts) Len() int {
	return len(c.entries)
}

// All returns a copy of the snapshots in storage order.
func (c *SavedCarts) All() []Snapshot {
	out := make([]Snapshot, len(c.entries))
	copy(out, c.entries)
	return out
}

// Put inserts s, or overwrites the snapshot already stored under s.SavedAt.
func (c *SavedCarts) Put(s Snapshot) {
	for i := range c.entries {
		if c.entries[i].SavedAt == s.SavedAt {
			c.entries[i] = s
			return
		}
	}
	c.entries = append(c.entries, s)
}

// Find returns the first snapshot keyed by savedAt that has at least one line.
func (c *SavedCarts) Find(savedAt int64) (Snapshot, bool) {
	for _, s := range c.entries {
		if s.SavedAt == savedAt && len(s.Lines) > 0 {
			return s, true
		}
	}
	return Snapshot{}, false
}

// Remove deletes the snapshot keyed by savedAt. It reports whether one existed.
func (c *SavedCarts) Remove(savedAt int64) bool {
	for i := range c.entries {
		if c.entries[i].SavedAt == savedAt {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return true
		}
	}
	return false
}

// MarshalJSON encodes the collection as an array so save order is preserved.
func (c *SavedCarts) MarshalJSON() ([]byte, error) {
	if c == nil || c.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.entries)
}

// UnmarshalJSON decodes an array of snapshots.
func (c *SavedCarts) UnmarshalJSON(data []byte) error {
	var entries []Snapshot
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*c = SavedCarts{}
	for _, s := range entries {
		c.Put(s)
	}
	return nil
}
