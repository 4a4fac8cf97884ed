package ratelimit

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"
)

func fakeClock(l *Limiter) *time.Time {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.nowFunc = func() time.Time { return now }
	return &now
}

func TestAllow_Burst(t *testing.T) {
	l := NewLimiter(1.0, 3)

	for i := 0; i < 3; i++ {
		if !l.Allow("key1") {
			t.Errorf("request %d should be allowed (within burst)", i+1)
		}
	}
	if l.Allow("key1") {
		t.Error("request after burst exhaustion should be rejected")
	}
}

func TestAllow_Refill(t *testing.T) {
	l := NewLimiter(10.0, 2) // 10 tokens/sec
	now := fakeClock(l)

	l.Allow("key1")
	l.Allow("key1")
	if l.Allow("key1") {
		t.Error("expected rejection after burst")
	}

	*now = now.Add(100 * time.Millisecond)
	if !l.Allow("key1") {
		t.Error("expected allow after one token refilled")
	}
}

func TestAllow_RefillCappedAtBurst(t *testing.T) {
	l := NewLimiter(100.0, 3)
	now := fakeClock(l)

	for i := 0; i < 3; i++ {
		l.Allow("key1")
	}
	*now = now.Add(10 * time.Second)

	for i := 0; i < 3; i++ {
		if !l.Allow("key1") {
			t.Errorf("request %d should be allowed after refill", i+1)
		}
	}
	if l.Allow("key1") {
		t.Error("4th request should be rejected (burst cap)")
	}
}

func TestAllow_IndependentKeys(t *testing.T) {
	l := NewLimiter(1.0, 1)

	l.Allow("key1")
	if l.Allow("key1") {
		t.Error("key1 should be exhausted")
	}
	if !l.Allow("key2") {
		t.Error("key2 should be allowed (independent bucket)")
	}
}

func TestTake_RetryAfter(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want time.Duration
	}{
		{"one per second", 1.0, time.Second},
		{"two per second", 2.0, 500 * time.Millisecond},
		{"zero rate", 0, time.Duration(math.MaxInt64)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLimiter(tt.rate, 1)
			fakeClock(l)
			l.Allow("k")
			ok, wait := l.take("k")
			if ok {
				t.Fatal("expected rejection")
			}
			if wait != tt.want {
				t.Errorf("wait = %v, want %v", wait, tt.want)
			}
		})
	}
}

func TestAllow_ConcurrentAccess(t *testing.T) {
	l := NewLimiter(0, 100)

	var wg sync.WaitGroup
	allowed := make(chan bool, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- l.Allow("concurrent-key")
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for a := range allowed {
		if a {
			count++
		}
	}
	if count != 100 {
		t.Errorf("allowed %d requests, want exactly the burst of 100", count)
	}
}

func TestNewToolLimiters(t *testing.T) {
	limiters := NewToolLimiters()

	tests := []struct {
		tool  string
		burst int
	}{
		{ToolRun, 5},
		{ToolSuite, 1},
		{ToolHistory, 10},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			limiter, ok := limiters[tt.tool]
			if !ok {
				t.Fatalf("missing rate limiter for tool: %s", tt.tool)
			}
			if limiter.burst != tt.burst {
				t.Errorf("burst = %d, want %d", limiter.burst, tt.burst)
			}
		})
	}
}

func TestCheckLimit(t *testing.T) {
	limiters := NewToolLimiters()

	if err := CheckLimit(limiters, ToolRun); err != nil {
		t.Errorf("unexpected error for %s: %v", ToolRun, err)
	}
	if err := CheckLimit(limiters, "unknown_tool"); err != nil {
		t.Errorf("unexpected error for unknown tool: %v", err)
	}

	CheckLimit(limiters, ToolSuite)
	err := CheckLimit(limiters, ToolSuite)
	if !errors.Is(err, ErrLimited) {
		t.Fatalf("expected ErrLimited after burst exhaustion, got %v", err)
	}
	var le *LimitError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LimitError, got %T", err)
	}
	if le.Tool != ToolSuite || le.RetryAfter <= 0 {
		t.Errorf("LimitError = %+v", le)
	}
}
