package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetricsIsIdempotent(t *testing.T) {
	assert.NotPanics(t, InitMetrics)
	assert.NotPanics(t, InitMetrics)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "devicewatch_poll_tasks_active" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestProbesTotal(t *testing.T) {
	before := testutil.ToFloat64(ProbesTotal.WithLabelValues(ResultActive))
	ProbesTotal.WithLabelValues(ResultActive).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ProbesTotal.WithLabelValues(ResultActive)))
}
