package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	EndpointLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "comicscout",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of deals API endpoints",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"endpoint"},
	)

	EndpointErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "comicscout",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by deals API endpoint and kind",
		},
		[]string{"endpoint", "kind"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(EndpointLatency, EndpointErrors)
	})
}

// Observe records the latency of one endpoint call started at start.
func Observe(endpoint string, start time.Time) {
	EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func Fail(endpoint, kind string) {
	EndpointErrors.WithLabelValues(endpoint, kind).Inc()
}
