// Package metrics constructs the prometheus collectors the service reports.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ardanlabs/blockvault/foundation/blockchain/database"
	"github.com/ardanlabs/blockvault/foundation/blockchain/state"
	"github.com/ardanlabs/blockvault/foundation/events"
)

// Metrics holds the set of collectors for the service.
type Metrics struct {
	Requests       prometheus.Counter
	Errors         prometheus.Counter
	Panics         prometheus.Counter
	Sessions       *prometheus.CounterVec
	SessionSeconds prometheus.Histogram
	HashRate       prometheus.Gauge
	BlocksAdded    prometheus.Counter
	Snapshots      prometheus.Counter
}

// New constructs the collectors and registers them.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := Metrics{
		Requests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "explorer_requests_total",
			Help: "Number of requests handled",
		}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "explorer_errors_total",
			Help: "Number of requests that returned an error",
		}),
		Panics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "explorer_panics_total",
			Help: "Number of requests that panicked",
		}),
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "explorer_mining_sessions_total",
			Help: "Number of mining sessions by final status",
		}, []string{"status"}),
		SessionSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "explorer_mining_session_seconds",
			Help:    "Time spent in mining sessions that ended",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		HashRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "explorer_mining_hash_rate",
			Help: "Hashes per second reported by the last mining progress",
		}),
		BlocksAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "explorer_blocks_added_total",
			Help: "Number of blocks appended to the chain",
		}),
		Snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "explorer_snapshots_total",
			Help: "Number of snapshots created",
		}),
	}

	collectors := []prometheus.Collector{
		m.Requests,
		m.Errors,
		m.Panics,
		m.Sessions,
		m.SessionSeconds,
		m.HashRate,
		m.BlocksAdded,
		m.Snapshots,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return &m, nil
}

// Consume updates the collectors from the events received on the channel
// until the channel is closed.
func (m *Metrics) Consume(ch <-chan events.Event) {
	for e := range ch {
		m.Observe(e)
	}
}

// Observe updates the collectors for a single event.
func (m *Metrics) Observe(e events.Event) {
	switch e.Type {
	case events.TypeBlockAdded:
		m.BlocksAdded.Inc()

	case events.TypeBackupCreated:
		m.Snapshots.Inc()

	case events.TypeMiningProgress:
		if p, ok := e.Data.(database.Progress); ok {
			m.HashRate.Set(p.HashRate)
		}

	case events.TypeMiningSession:
		s, ok := e.Data.(state.Session)
		if !ok || s.Active() {
			return
		}
		m.Sessions.WithLabelValues(s.Status).Inc()
		if !s.EndedAt.IsZero() {
			m.SessionSeconds.Observe(s.EndedAt.Sub(s.StartedAt).Seconds())
		}
	}
}
