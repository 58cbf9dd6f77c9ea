package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestObserveKernelOpRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewRegistryCollector(reg)
	if err != nil {
		t.Fatalf("NewRegistryCollector: %v", err)
	}

	collector.ObserveKernelOp("load", "ok", 15*time.Millisecond)
	collector.ObserveKernelOp("load", "already_loaded", time.Millisecond)

	if got := testutil.ToFloat64(collector.KernelOps.WithLabelValues("load", "ok")); got != 1 {
		t.Fatalf("ephem_kernel_operations_total{load,ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.KernelOps.WithLabelValues("load", "already_loaded")); got != 1 {
		t.Fatalf("ephem_kernel_operations_total{load,already_loaded} = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "ephem_kernel_operation_duration_seconds", map[string]string{"op": "load"}); count != 2 {
		t.Fatalf("ephem_kernel_operation_duration_seconds sample_count = %d, want 2", count)
	}
}

func TestSetRegistryCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewRegistryCollector(reg)
	if err != nil {
		t.Fatalf("NewRegistryCollector: %v", err)
	}
	collector.SetRegistryCounts(2, 3, 4, 1)

	if got := testutil.ToFloat64(collector.KernelsLoaded); got != 2 {
		t.Fatalf("ephem_kernels_loaded = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.EntitiesLive); got != 3 {
		t.Fatalf("ephem_entities_live = %v, want 3", got)
	}
	if got := testutil.ToFloat64(collector.CoverageIDs.WithLabelValues("position")); got != 4 {
		t.Fatalf("ephem_coverage_ids{position} = %v, want 4", got)
	}
	if got := testutil.ToFloat64(collector.CoverageIDs.WithLabelValues("rotation")); got != 1 {
		t.Fatalf("ephem_coverage_ids{rotation} = %v, want 1", got)
	}
}

func TestNewRegistryCollectorReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewRegistryCollector(reg)
	if err != nil {
		t.Fatalf("first NewRegistryCollector: %v", err)
	}
	second, err := NewRegistryCollector(reg)
	if err != nil {
		t.Fatalf("second NewRegistryCollector: %v", err)
	}
	first.ObserveKernelOp("unload", "ok", 0)
	if got := testutil.ToFloat64(second.KernelOps.WithLabelValues("unload", "ok")); got != 1 {
		t.Fatalf("collectors do not share the registered counter: %v", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *RegistryCollector
	c.SetRegistryCounts(1, 1, 1, 1)
	c.ObserveKernelOp("load", "ok", time.Second)
}

func TestMetricsHandlerExposesRegistryGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewRegistryCollector(reg)
	if err != nil {
		t.Fatalf("NewRegistryCollector: %v", err)
	}
	collector.SetRegistryCounts(3, 4, 5, 6)
	collector.ObserveKernelOp("load", "ok", 10*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"ephem_kernel_operations_total",
		"ephem_kernel_operation_duration_seconds",
		"ephem_kernels_loaded 3",
		"ephem_entities_live 4",
		`ephem_coverage_ids{channel="position"} 5`,
		`ephem_coverage_ids{channel="rotation"} 6`,
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output:\n%s", metric, body)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
