package ratelimit

import (
	"testing"
	"time"
)

func TestLimiter_AllowWithinLimit(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 3, CleanupInterval: time.Hour, StaleAfter: time.Hour})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("4th request should be rejected")
	}
}

func TestLimiter_ClientsAreIndependent(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1, CleanupInterval: time.Hour, StaleAfter: time.Hour})
	defer rl.Stop()

	if !rl.Allow("10.0.0.1") {
		t.Fatal("first client should be allowed")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("second client should not share the first client's budget")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("first client should be over its budget")
	}
}

func TestLimiter_Metrics(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1, CleanupInterval: time.Hour, StaleAfter: time.Hour})
	defer rl.Stop()

	rl.Allow("10.0.0.1")
	rl.Allow("10.0.0.1")
	rl.Allow("10.0.0.1")

	m := rl.GetMetrics()
	if m.TotalHits != 2 {
		t.Errorf("expected 2 rejections recorded, got %d", m.TotalHits)
	}
	if m.ClientCount != 1 {
		t.Errorf("expected 1 tracked client, got %d", m.ClientCount)
	}
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	rl.Stop()
	rl.Stop() // Must not panic on double close
}

func TestLimiter_CleanupRemovesStaleEntries(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 10, CleanupInterval: time.Hour, StaleAfter: 10 * time.Millisecond})
	defer rl.Stop()

	rl.Allow("10.0.0.1")
	time.Sleep(20 * time.Millisecond)
	rl.cleanupStaleEntries()

	if got := rl.ActiveClients(); got != 0 {
		t.Errorf("expected stale client to be dropped, still tracking %d", got)
	}
}
