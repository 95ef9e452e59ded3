package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	opSave    = "save"
	opRestore = "restore"
	opDelete  = "delete"
	opList    = "list"
	opPurge   = "purge"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
	resultError   = "error"
)

// Metrics counts snapshot operations.
type Metrics struct {
	operations *prometheus.CounterVec
}

// NewMetrics registers the snapshot operation counter with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		operations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "saved_cart_operations_total",
			Help: "Total number of saved cart operations by outcome",
		}, []string{"operation", "result"}),
	}
}

// observe is a no-op on a nil receiver.
func (m *Metrics) observe(op string, ok bool, err error) {
	if m == nil {
		return
	}
	result := resultSuccess
	switch {
	case err != nil:
		result = resultError
	case !ok:
		result = resultFailure
	}
	m.operations.WithLabelValues(op, result).Inc()
}
