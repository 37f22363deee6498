package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the price monitor's prometheus instruments.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Sweeps               *prometheus.CounterVec
	SweepDuration        *prometheus.HistogramVec
	AlertsChecked        prometheus.Counter
	AlertsSkipped        prometheus.Counter
	FetchUnavailable     prometheus.Counter
	ObservationsRecorded prometheus.Counter
	PersistenceErrors    prometheus.Counter
	NotificationsSent    *prometheus.CounterVec
	NotificationErrors   *prometheus.CounterVec
}

// New registers the instruments on reg under namespace.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Sweeps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "The total number of price check sweeps",
		}, []string{"trigger"}),
		SweepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Time taken to check every alert in a sweep",
			Buckets:   prometheus.DefBuckets,
		}, []string{"trigger"}),
		AlertsChecked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_checked_total",
			Help:      "The total number of alerts with a successful price fetch",
		}),
		AlertsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_skipped_total",
			Help:      "The total number of alerts skipped because their departure date has passed",
		}),
		FetchUnavailable: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_unavailable_total",
			Help:      "The total number of price fetches that returned no usable quote",
		}),
		ObservationsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_recorded_total",
			Help:      "The total number of price history rows written",
		}),
		PersistenceErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_errors_total",
			Help:      "The total number of failed price history writes",
		}),
		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "The total number of delivered notifications",
		}, []string{"notifier", "reason"}),
		NotificationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_errors_total",
			Help:      "The total number of failed notification deliveries",
		}, []string{"notifier"}),
	}
}

func (m *Metrics) ObserveSweep(trigger string, d time.Duration) {
	if m == nil {
		return
	}
	m.Sweeps.WithLabelValues(trigger).Inc()
	m.SweepDuration.WithLabelValues(trigger).Observe(d.Seconds())
}

func (m *Metrics) IncChecked() {
	if m != nil {
		m.AlertsChecked.Inc()
	}
}

func (m *Metrics) IncSkipped() {
	if m != nil {
		m.AlertsSkipped.Inc()
	}
}

func (m *Metrics) IncUnavailable() {
	if m != nil {
		m.FetchUnavailable.Inc()
	}
}

func (m *Metrics) IncObservation() {
	if m != nil {
		m.ObservationsRecorded.Inc()
	}
}

func (m *Metrics) IncPersistenceError() {
	if m != nil {
		m.PersistenceErrors.Inc()
	}
}

func (m *Metrics) IncNotification(notifier, reason string) {
	if m != nil {
		m.NotificationsSent.WithLabelValues(notifier, reason).Inc()
	}
}

func (m *Metrics) IncNotificationError(notifier string) {
	if m != nil {
		m.NotificationErrors.WithLabelValues(notifier).Inc()
	}
}
