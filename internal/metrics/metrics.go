// Package metrics exposes conference counters to Prometheus.
//
// A nil *Collector is valid and records nothing, so components can run
// without a registry in tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "confdemo"

type Collector struct {
	admissions     *prometheus.CounterVec
	triggers       *prometheus.CounterVec
	listeners      *prometheus.CounterVec
	bridgeCreates  prometheus.Counter
	activeSessions *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		admissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admissions_total",
			Help:      "Participant admissions by result and the stage reached.",
		}, []string{"result", "stage"}),
		triggers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_total",
			Help:      "Trigger key presses by outcome.",
		}, []string{"result"}),
		listeners: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listeners_total",
			Help:      "Listener playback sessions by outcome.",
		}, []string{"result"}),
		bridgeCreates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_creates_total",
			Help:      "Conference bridges created by this process.",
		}),
		activeSessions: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently inside the application.",
		}, []string{"kind"}),
	}
}

func (c *Collector) Admission(result, stage string) {
	if c == nil {
		return
	}
	c.admissions.WithLabelValues(result, stage).Inc()
}

func (c *Collector) Trigger(result string) {
	if c == nil {
		return
	}
	c.triggers.WithLabelValues(result).Inc()
}

func (c *Collector) Listener(result string) {
	if c == nil {
		return
	}
	c.listeners.WithLabelValues(result).Inc()
}

func (c *Collector) BridgeCreated() {
	if c == nil {
		return
	}
	c.bridgeCreates.Inc()
}

func (c *Collector) SessionStarted(kind string) {
	if c == nil {
		return
	}
	c.activeSessions.WithLabelValues(kind).Inc()
}

func (c *Collector) SessionEnded(kind string) {
	if c == nil {
		return
	}
	c.activeSessions.WithLabelValues(kind).Dec()
}
