package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsForTesting_Registrable(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(m.Analyses))

	m.Analyses.WithLabelValues("failed", "empty_input").Inc()
	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "flood_impact_analyses_total", families[0].GetName())
	assert.Equal(t, 1.0, families[0].GetMetric()[0].GetCounter().GetValue())
}

func TestMetrics_AllCollectorsRegisterOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	for _, c := range NewMetricsForTesting().collectors() {
		require.NoError(t, reg.Register(c))
	}
	assert.Len(t, NewMetricsForTesting().collectors(), 14)
}
