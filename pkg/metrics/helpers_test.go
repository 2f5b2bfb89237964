package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// sample snapshots a single series so tests can inspect histogram and gauge
// internals that testutil.ToFloat64 does not expose.
func sample(t *testing.T, m prometheus.Metric) *dto.Metric {
	t.Helper()
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return &out
}

func observer(t *testing.T, vec *prometheus.HistogramVec, labels ...string) prometheus.Metric {
	t.Helper()
	obs, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("histogram labels %v: %v", labels, err)
	}
	return obs.(prometheus.Metric)
}
