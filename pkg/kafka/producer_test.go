package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/savedcarts/pkg/logger"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	m := NewMetrics(prometheus.NewRegistry())
	p := NewProducerWithWriter(w, nil, m, logger.Discard())

	event, err := NewEvent("saved_cart.saved", "42", "saved_cart", "saved-carts-service", map[string]int{"saved_at": 1000}, WithCorrelationID("c-1"))
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), "ecommerce.saved_cart.saved", event))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "ecommerce.saved_cart.saved", msg.Topic)
	assert.Equal(t, "42", string(msg.Key))
	assert.Equal(t, "saved_cart.saved", header(msg, "event_type"))
	assert.Equal(t, "saved-carts-service", header(msg, "source"))
	assert.Equal(t, "c-1", header(msg, "correlation_id"))

	decoded, err := UnmarshalEvent(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, event.EventID, decoded.EventID)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Published.WithLabelValues("ecommerce.saved_cart.saved")))
}

func TestProducer_PublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	m := NewMetrics(prometheus.NewRegistry())
	p := NewProducerWithWriter(w, nil, m, logger.Discard())

	event, err := NewEvent("saved_cart.deleted", "42", "saved_cart", "svc", nil)
	require.NoError(t, err)

	err = p.Publish(context.Background(), "ecommerce.saved_cart.deleted", event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish event to ecommerce.saved_cart.deleted")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PublishErrors.WithLabelValues("ecommerce.saved_cart.deleted")))
}

func TestProducer_NilMetricsAndClose(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, nil, nil, logger.Discard())

	event, err := NewEvent("x", "1", "y", "z", nil)
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), "t", event))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPingBrokers_NoneConfigured(t *testing.T) {
	err := PingBrokers(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers configured")
}

func TestPingBrokers_Unreachable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := PingBrokers(ctx, []string{"127.0.0.1:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all brokers unreachable")
}
