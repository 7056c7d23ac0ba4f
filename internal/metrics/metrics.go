// Package metrics records the outcome of a refresh run as Prometheus metrics.
//
// A run is a short-lived process, so nothing is served over HTTP. The registry
// can instead be written in text exposition format for node_exporter's
// textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values for ExchangesTotal.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the collectors for one run on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	ExchangesTotal   *prometheus.CounterVec
	SkippedTotal     prometheus.Counter
	ExchangeDuration prometheus.Histogram
	LastRunTimestamp prometheus.Gauge
	Tokens           prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ExchangesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenrefresh_exchanges_total",
				Help: "Total number of client-credentials exchanges attempted (by result).",
			},
			[]string{"result"},
		),

		SkippedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tokenrefresh_skipped_total",
			Help: "Credential entries skipped because the client id or secret was missing.",
		}),

		ExchangeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tokenrefresh_exchange_duration_seconds",
			Help:    "Duration of token endpoint requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 11), // 10ms → ~10s
		}),

		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tokenrefresh_last_run_timestamp_seconds",
			Help: "Unix time the last snapshot was written.",
		}),

		Tokens: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tokenrefresh_tokens",
			Help: "Number of tokens in the last snapshot.",
		}),
	}
}

// Registry exposes the underlying registry, e.g. for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveExchange records one attempted exchange.
func (m *Metrics) ObserveExchange(success bool, start time.Time) {
	result := ResultFailure
	if success {
		result = ResultSuccess
	}
	m.ExchangesTotal.WithLabelValues(result).Inc()
	m.ExchangeDuration.Observe(time.Since(start).Seconds())
}

// ObserveSkipped records one entry that was not exchanged.
func (m *Metrics) ObserveSkipped() {
	m.SkippedTotal.Inc()
}

// ObserveSnapshot records the snapshot that ended the run.
func (m *Metrics) ObserveSnapshot(tokens int, at time.Time) {
	m.Tokens.Set(float64(tokens))
	m.LastRunTimestamp.Set(float64(at.Unix()))
}

// WriteTextfile writes all metrics to path for the node_exporter textfile collector.
// The write goes through a temp file and rename, so the collector never reads a partial file.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile %s: %w", path, err)
	}
	return nil
}
