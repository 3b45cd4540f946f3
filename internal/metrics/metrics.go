// Package metrics holds the Prometheus collectors of the bot and the HTTP
// server exposing them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "summarybot"

// Request outcomes.
const (
	OutcomeDelivered = "delivered"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Event kinds.
const (
	KindText     = "text"
	KindDocument = "document"
	KindCommand  = "command"
)

//nolint:gochecknoglobals // Collectors are registered once per process.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "Inbound events by kind and final outcome.",
	}, []string{"kind", "outcome"})

	chunksPerRequest = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "chunks_per_request",
		Help:      "Number of chunks summarized for one request.",
		Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 55},
	})

	summarizerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "summarizer_call_duration_seconds",
		Help:      "Duration of a single summarizer call.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"provider", "result"})

	deliveredUnitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "delivered_units_total",
		Help:      "Outbound reply messages carrying summary text.",
	})

	sweptFilesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "staging_swept_files_total",
		Help:      "Stale staged files removed by the janitor.",
	})
)

func ObserveRequest(kind, outcome string) {
	requestsTotal.WithLabelValues(kind, outcome).Inc()
}

func ObserveChunks(n int) {
	chunksPerRequest.Observe(float64(n))
}

func ObserveSummarizerCall(provider string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}

	summarizerDuration.WithLabelValues(provider, result).Observe(d.Seconds())
}

func ObserveDelivered(units int) {
	deliveredUnitsTotal.Add(float64(units))
}

func ObserveSwept(files int) {
	sweptFilesTotal.Add(float64(files))
}
