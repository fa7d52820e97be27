package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("overlay", reg)

	c.ObserveRead("option", "override")
	c.ObserveRead("option", "override")
	c.ObserveRead("site_option", "store")
	c.ObserveCleanup("deleted", 4)
	c.ObserveCleanup("deleted", 0)
	c.SetLoaded(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.reads.WithLabelValues("option", "override")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.reads.WithLabelValues("site_option", "store")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.cleanupActions.WithLabelValues("deleted")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.loaded))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveRead("option", "store")
		c.ObserveCleanup("deleted", 1)
		c.SetLoaded(1)
	})
}

func TestNewCollectorWithoutRegistry(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector("overlay", nil)
		NewCollector("overlay", nil)
	})
}
