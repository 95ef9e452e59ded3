package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the producer and consumer collectors.
type Metrics struct {
	Published      *prometheus.CounterVec
	PublishErrors  *prometheus.CounterVec
	Consumed       *prometheus.CounterVec
	ConsumeFailed  *prometheus.CounterVec
	HandleDuration *prometheus.HistogramVec
}

// NewMetrics registers the Kafka collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Published: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_producer_messages_published_total",
			Help: "Total number of Kafka messages published",
		}, []string{"topic"}),
		PublishErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_producer_publish_errors_total",
			Help: "Total number of Kafka publish errors",
		}, []string{"topic"}),
		Consumed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_consumer_messages_processed_total",
			Help: "Total number of successfully processed Kafka messages",
		}, []string{"topic", "consumer_group"}),
		ConsumeFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_consumer_messages_failed_total",
			Help: "Total number of Kafka messages skipped after failing all retries",
		}, []string{"topic", "consumer_group"}),
		HandleDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kafka_consumer_processing_duration_seconds",
			Help:    "Duration of Kafka message processing in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic", "consumer_group"}),
	}
}
