package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPMetricsRecordsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.Start()
	m.Observe("GET", "/api/orders/{id}", 200, 30*time.Millisecond)
	m.Start()
	m.Observe("POST", "", 404, time.Millisecond)

	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/orders/{id}", "200")); got != 1 {
		t.Fatalf("expected one GET, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("POST", "unmatched", "404")); got != 1 {
		t.Fatalf("expected unmatched route label, got %v", got)
	}
	if got := testutil.ToFloat64(m.inflight); got != 0 {
		t.Fatalf("expected no requests in flight, got %v", got)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	m := NewHTTPMetrics(nil)
	m.Start()
	m.Observe("GET", "/", 200, time.Millisecond)

	var rt *RealtimeMetrics
	rt.SetConnections(3)
	rt.IncDropped()
}
