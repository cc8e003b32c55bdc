package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounter(t *testing.T) {
	c := NewCounter("test_counter", "Test counter")

	if c.Value() != 0 {
		t.Errorf("expected initial value 0, got %d", c.Value())
	}

	c.Inc()
	c.Add(5)
	if c.Value() != 6 {
		t.Errorf("expected value 6, got %d", c.Value())
	}

	if c.Name() != "test_counter" {
		t.Errorf("expected name 'test_counter', got '%s'", c.Name())
	}
	if c.Type() != TypeCounter {
		t.Errorf("expected type counter, got %s", c.Type())
	}
}

func TestGauge(t *testing.T) {
	g := NewGauge("test_gauge", "Test gauge")

	g.Set(100)
	if g.Value() != 100 {
		t.Errorf("expected value 100, got %d", g.Value())
	}

	g.SetUint64(7)
	if g.Value() != 7 {
		t.Errorf("expected value 7, got %d", g.Value())
	}

	if g.Type() != TypeGauge {
		t.Errorf("expected type gauge, got %s", g.Type())
	}
}

func TestHistogram(t *testing.T) {
	h := NewHistogram("test_histogram", "Test histogram", []float64{1.0, 0.1, 5.0, 0.5})

	for _, v := range []float64{0.05, 0.3, 0.7, 2.0, 10.0} {
		h.Observe(v)
	}

	snap := h.Snapshot()
	if snap.Count != 5 {
		t.Errorf("expected count 5, got %d", snap.Count)
	}

	expectedSum := 0.05 + 0.3 + 0.7 + 2.0 + 10.0
	if snap.Sum != expectedSum {
		t.Errorf("expected sum %.2f, got %.2f", expectedSum, snap.Sum)
	}

	// Buckets are sorted and cumulative
	expectedBounds := []float64{0.1, 0.5, 1.0, 5.0}
	expectedCounts := []uint64{1, 2, 3, 4}
	for i := range expectedCounts {
		if snap.Buckets[i].UpperBound != expectedBounds[i] {
			t.Errorf("bucket %d: expected bound %v, got %v", i, expectedBounds[i], snap.Buckets[i].UpperBound)
		}
		if snap.Buckets[i].Count != expectedCounts[i] {
			t.Errorf("bucket %d: expected count %d, got %d", i, expectedCounts[i], snap.Buckets[i].Count)
		}
	}
}

func TestMetricsRecordInstruction(t *testing.T) {
	m := NewMetrics()

	m.RecordInstruction(false, 200, 1, 2*time.Millisecond)
	m.RecordInstruction(true, 100, 0, time.Millisecond)

	if m.InstructionsProcessed.Value() != 2 {
		t.Errorf("expected 2 processed, got %d", m.InstructionsProcessed.Value())
	}
	if m.InstructionsFailed.Value() != 1 {
		t.Errorf("expected 1 failed, got %d", m.InstructionsFailed.Value())
	}
	if m.ComputeUnitsConsumed.Value() != 300 {
		t.Errorf("expected 300 compute units, got %d", m.ComputeUnitsConsumed.Value())
	}
	if m.AccountsWritten.Value() != 1 {
		t.Errorf("expected 1 account written, got %d", m.AccountsWritten.Value())
	}
	if m.InstructionDuration.Snapshot().Count != 2 {
		t.Errorf("expected 2 duration samples, got %d", m.InstructionDuration.Snapshot().Count)
	}
	if m.Get("x1mint_instructions_failed_total") != m.InstructionsFailed {
		t.Error("Get should return the registered counter")
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.AccountsCount.Set(3)
	m.InstructionsProcessed.Add(2)
	m.InstructionDuration.Observe(0.002)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	output := rr.Body.String()

	for _, want := range []string{
		"# HELP x1mint_instructions_processed_total Total number of instructions processed",
		"# TYPE x1mint_instructions_processed_total counter",
		"x1mint_instructions_processed_total 2",
		"x1mint_accounts_count 3",
		"x1mint_instruction_duration_seconds_bucket{le=\"0.005\"} 1",
		"x1mint_instruction_duration_seconds_bucket{le=\"0.001\"} 0",
		"x1mint_instruction_duration_seconds_bucket{le=\"+Inf\"} 1",
		"x1mint_instruction_duration_seconds_count 1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMetricsRegistry_AcceptsOtherCollectors(t *testing.T) {
	m := NewMetrics()

	extra := NewCounter("x1mint_extra_total", "Extra counter")
	if err := m.Registry().Register(extra); err != nil {
		t.Fatalf("register extra collector: %v", err)
	}
	if got := testutil.ToFloat64(extra); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
	extra.Inc()
	if got := testutil.ToFloat64(extra); got != 1 {
		t.Errorf("expected 1, got %v", got)
	}

	if err := m.Registry().Register(NewCounter("x1mint_instructions_processed_total", "dup")); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestHealthChecker(t *testing.T) {
	h := NewHealthChecker()

	status := h.Check(context.Background())
	if !status.Healthy {
		t.Error("checker with no checks should be healthy")
	}

	h.RegisterCheck("store", func(ctx context.Context) Check {
		return Check{Healthy: true}
	})
	h.RegisterCheck("sysvar", func(ctx context.Context) Check {
		return Check{Healthy: false, Message: "rent sysvar missing"}
	})

	status = h.Check(context.Background())
	if status.Healthy {
		t.Error("expected unhealthy status")
	}
	if status.Message != "sysvar: rent sysvar missing" {
		t.Errorf("unexpected message %q", status.Message)
	}
	if len(status.Checks) != 2 || status.Checks["store"].Name != "store" {
		t.Errorf("unexpected checks %+v", status.Checks)
	}
}
