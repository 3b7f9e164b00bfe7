package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorCounts(t *testing.T) {
	c := New(prometheus.NewRegistry())

	c.Admission("joined", "announced")
	c.Admission("joined", "announced")
	c.Admission("failed", "ringing")
	c.Trigger("spawned")
	c.Listener("timeout")
	c.BridgeCreated()
	c.SessionStarted("participant")
	c.SessionStarted("participant")
	c.SessionEnded("participant")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.admissions.WithLabelValues("joined", "announced")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.admissions.WithLabelValues("failed", "ringing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.triggers.WithLabelValues("spawned")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.listeners.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.bridgeCreates))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.activeSessions.WithLabelValues("participant")))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.Admission("joined", "announced")
		c.Trigger("ignored")
		c.Listener("finished")
		c.BridgeCreated()
		c.SessionStarted("listener")
		c.SessionEnded("listener")
	})
}
