package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hazard"

// Metrics holds the Prometheus collectors for the polling loops and alert lifecycle.
type Metrics struct {
	Cycles        *prometheus.CounterVec   // labels: loop={weather,seismic}, outcome={ok,error}
	CycleDuration *prometheus.HistogramVec // labels: loop
	FetchErrors   *prometheus.CounterVec   // labels: source={weather,usgs}
	AlertsOpened  *prometheus.CounterVec   // labels: category
	AlertsCleared *prometheus.CounterVec   // labels: reason={auto_clear,superseded}

	PersistenceErrors *prometheus.CounterVec // labels: op
	ReadingsLogged    prometheus.Counter
	PollInterval      *prometheus.GaugeVec // labels: loop

	reg prometheus.Registerer
}

// StreamStats is the view of the alert event fan-out exported as metrics.
type StreamStats interface {
	SubscriberCount() int
	Dropped() uint64
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Completed poll cycles by loop and outcome.",
		}, []string{"loop", "outcome"}),
		CycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a full fetch, evaluate and persist pass.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"loop"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Upstream fetch failures by source.",
		}, []string{"source"}),
		AlertsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_opened_total",
			Help:      "Alerts inserted as the active row of their pair.",
		}, []string{"category"}),
		AlertsCleared: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_cleared_total",
			Help:      "Alerts deactivated, by reason.",
		}, []string{"reason"}),
		PersistenceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_errors_total",
			Help:      "Store operations that failed during a cycle.",
		}, []string{"op"}),
		ReadingsLogged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_logged_total",
			Help:      "Reading snapshots written after deduplication.",
		}),
		PollInterval: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "poll_interval_seconds",
			Help:      "Interval the loop re-armed with after its last cycle.",
		}, []string{"loop"}),
		reg: reg,
	}

	reg.MustRegister(
		m.Cycles,
		m.CycleDuration,
		m.FetchErrors,
		m.AlertsOpened,
		m.AlertsCleared,
		m.PersistenceErrors,
		m.ReadingsLogged,
		m.PollInterval,
	)

	return m
}

// RegisterStream exports the subscriber count and dropped events of the
// alert stream. Call it once per Metrics.
func (m *Metrics) RegisterStream(s StreamStats) {
	m.reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_subscribers",
			Help:      "Clients currently subscribed to the alert event stream.",
		}, func() float64 { return float64(s.SubscriberCount()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_events_dropped_total",
			Help:      "Alert events not delivered to a subscriber whose buffer was full.",
		}, func() float64 { return float64(s.Dropped()) }),
	)
}

// NewMetricsForTesting registers on a fresh registry so tests can build
// as many instances as they need.
func NewMetricsForTesting() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
