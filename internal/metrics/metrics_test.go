package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second registration should be tolerated, got %v", err)
	}
}

func TestObserveFetchAndCycle(t *testing.T) {
	okBefore := testutil.ToFloat64(fetchAttemptsTotal.WithLabelValues(ResultOK))
	decodeBefore := testutil.ToFloat64(fetchAttemptsTotal.WithLabelValues("decode"))
	failBefore := testutil.ToFloat64(cyclesTotal.WithLabelValues(OutcomeFailure))
	successBefore := testutil.ToFloat64(cyclesTotal.WithLabelValues(OutcomeSuccess))

	ObserveFetch(20*time.Millisecond, "")
	ObserveFetch(-time.Second, "decode")
	ObserveCycle(OutcomeFailure)
	ObserveCycle("anything-else")

	if got := testutil.ToFloat64(fetchAttemptsTotal.WithLabelValues(ResultOK)); got != okBefore+1 {
		t.Fatalf("expected ok attempts %v, got %v", okBefore+1, got)
	}
	if got := testutil.ToFloat64(fetchAttemptsTotal.WithLabelValues("decode")); got != decodeBefore+1 {
		t.Fatalf("expected decode attempts %v, got %v", decodeBefore+1, got)
	}
	if got := testutil.ToFloat64(cyclesTotal.WithLabelValues(OutcomeFailure)); got != failBefore+1 {
		t.Fatalf("expected failure cycles %v, got %v", failBefore+1, got)
	}
	if got := testutil.ToFloat64(cyclesTotal.WithLabelValues(OutcomeSuccess)); got != successBefore+1 {
		t.Fatalf("expected success cycles %v, got %v", successBefore+1, got)
	}
}

func TestGauges(t *testing.T) {
	SetRegistered(3)
	if got := testutil.ToFloat64(twinsRegistered); got != 3 {
		t.Fatalf("expected 3 registered, got %v", got)
	}

	SetHealthy("twin-a", true)
	SetHealthy("twin-b", false)
	if got := testutil.ToFloat64(twinHealthy.WithLabelValues("twin-a")); got != 1 {
		t.Fatalf("expected twin-a healthy, got %v", got)
	}
	if got := testutil.ToFloat64(twinHealthy.WithLabelValues("twin-b")); got != 0 {
		t.Fatalf("expected twin-b unhealthy, got %v", got)
	}
}

func TestClearHealthyDropsSeries(t *testing.T) {
	SetHealthy("twin-cleared", true)
	before := testutil.CollectAndCount(twinHealthy)

	ClearHealthy("twin-cleared")
	if got := testutil.CollectAndCount(twinHealthy); got != before-1 {
		t.Fatalf("expected %d series after clear, got %d", before-1, got)
	}
	ClearHealthy("twin-cleared")
}
