// Package metrics exposes the bot's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chefbot"

var (
	Events = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_total",
		Help:      "Conversation events handled, by kind.",
	}, []string{"kind"})

	Failures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "failures_total",
		Help:      "User-visible failures, by error class.",
	}, []string{"class"})

	ProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_request_duration_seconds",
		Help:      "Recipe provider request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "outcome"})

	Sessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Conversation sessions currently held in memory.",
	})
)

// ObserveProvider records one provider call started at start.
func ObserveProvider(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ProviderLatency.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}

func Handler() http.Handler {
	return promhttp.Handler()
}
