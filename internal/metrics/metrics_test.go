package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCommand("attendance.register_self", "ok", 10*time.Millisecond)
	m.ObserveCommand("attendance.register_self", "conflict", time.Millisecond)
	m.IngestEvent("inserted")
	m.Notification("carnival.created", "sent")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("attendance.register_self", "conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingestEvents.WithLabelValues("inserted")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 4)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCommand("x", "ok", time.Second)
		m.IngestEvent("failed")
		m.Notification("k", "failed")
	})
}
