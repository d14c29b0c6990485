package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/concurrence/asynccancel/cancelscope"
)

// Metrics implements cancelscope.Observer by registering a small family of
// counters, a gauge and a histogram on reg, namespaced
// "asynccancel_cancelscope_*".
type Metrics struct {
	scopesCreated     prometheus.Counter
	scopesCancelled   prometheus.Counter
	itemsAdded        prometheus.Counter
	itemsCancelled    prometheus.Counter
	subscopesCreated  prometheus.Counter
	suspensionsActive prometheus.Gauge
	timeoutsArmed     prometheus.Histogram
}

// NewMetrics creates and registers the observer's metrics on reg. Pass
// prometheus.NewRegistry() for an isolated registry, or
// prometheus.DefaultRegisterer to publish alongside the process's other
// metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		scopesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "asynccancel_cancelscope_scopes_created_total",
			Help: "Total CancelScopes created.",
		}),
		scopesCancelled: f.NewCounter(prometheus.CounterOpts{
			Name: "asynccancel_cancelscope_scopes_cancelled_total",
			Help: "Total CancelScopes that have been cancelled.",
		}),
		itemsAdded: f.NewCounter(prometheus.CounterOpts{
			Name: "asynccancel_cancelscope_items_added_total",
			Help: "Total Cancellables registered with a scope.",
		}),
		itemsCancelled: f.NewCounter(prometheus.CounterOpts{
			Name: "asynccancel_cancelscope_items_cancelled_total",
			Help: "Total Cancellables cancelled by a scope.",
		}),
		subscopesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "asynccancel_cancelscope_subscopes_created_total",
			Help: "Total subscopes created via MakeSubscope.",
		}),
		suspensionsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "asynccancel_cancelscope_suspensions_active",
			Help: "Currently open suspend_async frames across all scopes.",
		}),
		timeoutsArmed: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "asynccancel_cancelscope_timeout_seconds",
			Help:    "Durations passed to WithTimeout/SetTimeout.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) ScopeCreated()   { m.scopesCreated.Inc() }
func (m *Metrics) ScopeCancelled() { m.scopesCancelled.Inc() }
func (m *Metrics) ItemAdded()      { m.itemsAdded.Inc() }

func (m *Metrics) ItemCancelled() { m.itemsCancelled.Inc() }

func (m *Metrics) SubscopeCreated() { m.subscopesCreated.Inc() }

func (m *Metrics) SuspensionStarted()  { m.suspensionsActive.Inc() }
func (m *Metrics) SuspensionResolved() { m.suspensionsActive.Dec() }

func (m *Metrics) TimeoutArmed(d time.Duration) { m.timeoutsArmed.Observe(d.Seconds()) }

var _ cancelscope.Observer = (*Metrics)(nil)
