package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestCollector_ObserveSolve(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	c.ObserveSolve("ok", 20*time.Microsecond)
	c.ObserveSolve("ok", 30*time.Microsecond)
	c.ObserveSolve("no_solution", 10*time.Microsecond)

	if got := testutil.ToFloat64(c.Solves.WithLabelValues("ok")); got != 2 {
		t.Fatalf("lps_solves_total{ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.Solves.WithLabelValues("no_solution")); got != 1 {
		t.Fatalf("lps_solves_total{no_solution} = %v, want 1", got)
	}
	if got := histogramSampleCount(t, reg, "lps_solve_duration_seconds"); got != 3 {
		t.Fatalf("lps_solve_duration_seconds sample_count = %d, want 3", got)
	}
}

func TestCollector_ObserveRange(t *testing.T) {
	c, err := NewCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	c.ObserveRange("anchor_1", "stored")
	c.ObserveRange("anchor_1", "stored")
	c.ObserveRange("anchor_2", "rejected")

	if got := testutil.ToFloat64(c.Ranges.WithLabelValues("anchor_1", "stored")); got != 2 {
		t.Fatalf("stored = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.Ranges.WithLabelValues("anchor_2", "rejected")); got != 1 {
		t.Fatalf("rejected = %v, want 1", got)
	}
}

func TestNewCollector_ReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	second, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("second NewCollector: %v", err)
	}

	first.ObserveSolve("ok", time.Microsecond)
	if got := testutil.ToFloat64(second.Solves.WithLabelValues("ok")); got != 1 {
		t.Fatalf("second collector sees %v solves, want 1", got)
	}
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	c.ObserveSolve("ok", time.Millisecond)
	c.ObserveRange("anchor_1", "stored")
}

func TestCollector_Handler(t *testing.T) {
	c, err := NewCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	c.ObserveSolve("ok", time.Microsecond)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `lps_solves_total{outcome="ok"} 1`) {
		t.Fatalf("metrics output missing solve counter:\n%s", body)
	}
}

func histogramSampleCount(t *testing.T, reg *prometheus.Registry, name string) uint64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			var h *dto.Histogram = m.GetHistogram()
			if h != nil {
				return h.GetSampleCount()
			}
		}
	}
	t.Fatalf("histogram %s not found", name)
	return 0
}
