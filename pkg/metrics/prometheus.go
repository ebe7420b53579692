package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ComicScout/internal/domain/repository"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	listingOutcomes *prometheus.CounterVec
	dealScores      prometheus.Histogram
	messagesSent    *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

var _ repository.Metrics = (*Recorder)(nil)

// New registers the collectors with reg; nil means the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		listingOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "comicscout",
				Name:      "listing_outcomes_total",
				Help:      "Listings evaluated by the deals pipeline, by outcome",
			},
			[]string{"outcome"},
		),
		dealScores: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "comicscout",
				Name:      "deal_score",
				Help:      "Distribution of computed deal scores",
				Buckets:   []float64{0, 5, 10, 25, 50, 75, 100},
			},
		),
		messagesSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "comicscout",
				Name:      "messages_sent_total",
				Help:      "Total number of messages sent to a backend",
			},
			[]string{"backend", "topic"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "comicscout",
				Name:      "errors_total",
				Help:      "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "comicscout",
				Name:      "operation_duration_seconds",
				Help:      "Duration of operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordListingOutcome(outcome string) {
	r.listingOutcomes.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordDealScore(score int) {
	r.dealScores.Observe(float64(score))
}

func (r *Recorder) RecordMessageSent(backend, topic string) {
	r.messagesSent.WithLabelValues(backend, topic).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
