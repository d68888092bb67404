package flow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts demand and emission events for sources and stages. A nil *Metrics records
// nothing.
type Metrics struct {
	requested prometheus.Counter
	emitted   prometheus.Counter
	cancels   prometheus.Counter
	disposals prometheus.Counter
	delivered prometheus.Counter
}

// NewMetrics registers the flow counters with reg under namespace.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requested: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requested_items_total",
			Help:      "Items requested from sources, excluding unbounded requests",
		}),
		emitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emitted_items_total",
			Help:      "Items emitted by sources",
		}),
		cancels: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cancellations_total",
			Help:      "Source subscriptions cancelled by their subscriber",
		}),
		disposals: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disposals_total",
			Help:      "Source subscriptions that reached a terminal state",
		}),
		delivered: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivered_items_total",
			Help:      "Items released downstream by paced stages",
		}),
	}
}

func (m *Metrics) request(n int64) {
	if m == nil || n == Unbounded {
		return
	}
	m.requested.Add(float64(n))
}

func (m *Metrics) emit() {
	if m == nil {
		return
	}
	m.emitted.Inc()
}

func (m *Metrics) cancel() {
	if m == nil {
		return
	}
	m.cancels.Inc()
}

func (m *Metrics) dispose() {
	if m == nil {
		return
	}
	m.disposals.Inc()
}

func (m *Metrics) deliver() {
	if m == nil {
		return
	}
	m.delivered.Inc()
}
