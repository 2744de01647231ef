package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := New(registry)

	if m.GroupsCreated == nil || m.AllocationsRejected == nil || m.DBRetries == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	m.GroupsConfirmed.Inc()
	m.AutoEntriesCreated.WithLabelValues("asset-liability").Inc()

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}

	if got := testutil.ToFloat64(m.GroupsConfirmed); got != 1 {
		t.Fatalf("expected confirmed counter 1, got %v", got)
	}
}

func TestNewIsolatedRegistries(t *testing.T) {
	first := New(prometheus.NewRegistry())
	second := New(prometheus.NewRegistry())

	first.PaymentsCreated.Inc()

	if got := testutil.ToFloat64(second.PaymentsCreated); got != 0 {
		t.Fatalf("expected independent counters, got %v", got)
	}
}
