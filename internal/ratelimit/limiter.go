// Package ratelimit provides per-key token bucket rate limiting for MCP tools.
package ratelimit

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// Tool names guarded by NewToolLimiters.
const (
	ToolRun     = "intersim_run"
	ToolSuite   = "intersim_suite"
	ToolHistory = "intersim_history"
)

// ErrLimited matches any *LimitError via errors.Is.
var ErrLimited = errors.New("rate limit exceeded")

// LimitError reports a rejected call and when a token will next be available.
type LimitError struct {
	Tool       string
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry in %s", e.Tool, e.RetryAfter.Round(time.Second))
}

// Is reports whether target is ErrLimited.
func (e *LimitError) Is(target error) bool { return target == ErrLimited }

// Limiter is a per-key token bucket. Each key starts with a full burst.
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   int
	nowFunc func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewLimiter creates a rate limiter with the given rate (tokens/sec) and burst size.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// PerMinute creates a limiter allowing n calls a minute with the given burst.
func PerMinute(n float64, burst int) *Limiter {
	return NewLimiter(n/60.0, burst)
}

// Allow takes a token for key if one is available.
func (l *Limiter) Allow(key string) bool {
	ok, _ := l.take(key)
	return ok
}

// take returns whether a token was taken and, if not, how long until one is.
// With a zero rate a drained bucket never refills and the wait is math.MaxInt64.
func (l *Limiter) take(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.burst), last: now}
		l.buckets[key] = b
	}

	if dt := now.Sub(b.last).Seconds(); dt > 0 {
		b.tokens = math.Min(float64(l.burst), b.tokens+l.rate*dt)
		b.last = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	if l.rate <= 0 {
		return false, time.Duration(math.MaxInt64)
	}
	return false, time.Duration((1 - b.tokens) / l.rate * float64(time.Second))
}

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters creates the default per-tool limiters. A suite holds the
// process for up to a minute, so it gets the tightest budget.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		ToolRun:     PerMinute(20, 5),
		ToolSuite:   PerMinute(4, 1),
		ToolHistory: PerMinute(60, 10),
	}
}

// CheckLimit returns a *LimitError if toolName is over its limit.
// Tools without a configured limiter are always allowed.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}
	if ok, wait := limiter.take(toolName); !ok {
		return &LimitError{Tool: toolName, RetryAfter: wait}
	}
	return nil
}
