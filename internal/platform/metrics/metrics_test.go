package metrics

import (
	"testing"
	"time"
)

func TestCollectorSnapshot(t *testing.T) {
	c := New()
	c.Record("GET /api/leaves", 200, 10*time.Millisecond)
	c.Record("GET /api/leaves", 404, 20*time.Millisecond)
	c.Record("POST /api/auth/login", 429, 0)
	c.Record("POST /api/salaries", 500, 30*time.Millisecond)

	snap := c.Snapshot()
	if snap.RequestsTotal != 4 {
		t.Fatalf("expected 4 requests, got %d", snap.RequestsTotal)
	}
	if snap.ClientErrors != 2 || snap.ServerErrors != 1 || snap.RateLimitedTotal != 1 {
		t.Fatalf("unexpected error counters: %+v", snap)
	}
	if snap.AvgDurationMs != 15 {
		t.Fatalf("expected avg 15ms, got %v", snap.AvgDurationMs)
	}
	if snap.ByRoute["GET /api/leaves"] != 2 {
		t.Fatalf("expected 2 leave list hits, got %d", snap.ByRoute["GET /api/leaves"])
	}
}

func TestNilCollectorRecordIsNoop(t *testing.T) {
	var c *Collector
	c.Record("x", 200, time.Millisecond)
}
