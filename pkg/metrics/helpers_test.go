package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// sample gathers reg and returns the series of family name carrying every
// label in want.
func sample(t *testing.T, reg prometheus.Gatherer, name string, want map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, series := range family.GetMetric() {
			if hasLabels(series, want) {
				return series
			}
		}
	}
	t.Fatalf("no %s series with labels %v", name, want)
	return nil
}

func counter(t *testing.T, reg prometheus.Gatherer, name string, want map[string]string) float64 {
	t.Helper()
	return sample(t, reg, name, want).GetCounter().GetValue()
}

func hasLabels(series *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(series.GetLabel()))
	for _, pair := range series.GetLabel() {
		got[pair.GetName()] = pair.GetValue()
	}
	for key, value := range want {
		if got[key] != value {
			return false
		}
	}
	return true
}
