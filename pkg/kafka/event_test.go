package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type savedPayload struct {
	UserID  string `json:"user_id"`
	SavedAt int64  `json:"saved_at"`
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "ecommerce.saved_cart.saved", Topic("saved_cart", "saved"))
	assert.Equal(t, "ecommerce.user.deleted", Topic("user", "deleted"))
}

func TestNewEvent_Fields(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	event, err := NewEvent("saved_cart.saved", "42", "saved_cart", "saved-carts-service",
		savedPayload{UserID: "42", SavedAt: 1000},
		WithCorrelationID("corr-1"),
		WithTimestamp(ts),
		WithMetadata("line_count", "1"),
	)
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "saved_cart.saved", event.EventType)
	assert.Equal(t, "42", event.AggregateID)
	assert.Equal(t, "saved_cart", event.AggregateType)
	assert.Equal(t, 1, event.Version)
	assert.Equal(t, "corr-1", event.CorrelationID)
	assert.Equal(t, ts.UTC(), event.Timestamp)
	assert.Equal(t, map[string]string{"line_count": "1"}, event.Metadata)
	assert.JSONEq(t, `{"user_id":"42","saved_at":1000}`, string(event.Data))
}

func TestNewEvent_DefaultsAndUniqueIDs(t *testing.T) {
	a, err := NewEvent("t", "1", "x", "s", nil)
	require.NoError(t, err)
	b, err := NewEvent("t", "1", "x", "s", nil)
	require.NoError(t, err)

	assert.NotEqual(t, a.EventID, b.EventID)
	assert.WithinDuration(t, time.Now().UTC(), a.Timestamp, 2*time.Second)
	assert.Nil(t, a.Metadata)
}

func TestNewEvent_UnencodableData(t *testing.T) {
	_, err := NewEvent("t", "1", "x", "s", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshal t payload")
}

func TestEvent_MarshalUnmarshal(t *testing.T) {
	event, err := NewEvent("saved_cart.deleted", "42", "saved_cart", "svc", savedPayload{UserID: "42", SavedAt: 7})
	require.NoError(t, err)

	raw, err := event.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, event.EventID, decoded.EventID)

	var payload savedPayload
	require.NoError(t, decoded.UnmarshalData(&payload))
	assert.Equal(t, int64(7), payload.SavedAt)
}

func TestUnmarshalEvent_Invalid(t *testing.T) {
	_, err := UnmarshalEvent([]byte("not json"))
	assert.Error(t, err)
}

func TestEvent_UnmarshalData_Empty(t *testing.T) {
	e := &Event{EventID: "e1"}
	var payload savedPayload
	assert.Error(t, e.UnmarshalData(&payload))
}
