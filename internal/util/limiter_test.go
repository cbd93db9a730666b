package util

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_AllowWithinBurst(t *testing.T) {
	limiter := NewLimiter(1.0, 3)

	allowed := 0
	for i := 0; i < 5; i++ {
		if limiter.Allow("https://example.com/page") {
			allowed++
		}
	}

	if allowed != 3 {
		t.Errorf("expected burst of 3 allowed, got %d", allowed)
	}
}

func TestLimiter_PerHostIsolation(t *testing.T) {
	limiter := NewLimiter(1.0, 1)

	if !limiter.Allow("https://a.example.com/page") {
		t.Error("first request to host a should be allowed")
	}
	if limiter.Allow("https://a.example.com/other") {
		t.Error("second request to host a should be limited")
	}
	// A different host has its own budget
	if !limiter.Allow("https://b.example.com/page") {
		t.Error("first request to host b should be allowed")
	}
}

func TestLimiter_DefaultBurst(t *testing.T) {
	limiter := NewLimiter(1.0, 0)
	if limiter.defaultBurst != 3 {
		t.Errorf("expected default burst 3, got %d", limiter.defaultBurst)
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	limiter := NewLimiter(1.0, 1)
	limiter.SetHostRate("fast.example.com", 100, 10)

	allowed := 0
	for i := 0; i < 10; i++ {
		if limiter.Allow("https://fast.example.com/page") {
			allowed++
		}
	}
	if allowed != 10 {
		t.Errorf("expected custom burst of 10, got %d", allowed)
	}
}

func TestLimiter_WaitRespectsContext(t *testing.T) {
	limiter := NewLimiter(0.01, 1) // one request per 100s

	// Exhaust the budget
	if err := limiter.Wait(context.Background(), "https://example.com"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx, "https://example.com")
	if err == nil {
		t.Error("expected context deadline error while waiting")
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 10)

	start := time.Now()
	if err := limiter.WaitWithDelay(context.Background(), "https://example.com", 30*time.Millisecond); err != nil {
		t.Fatalf("WaitWithDelay failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("crawl delay not honored, elapsed %v", elapsed)
	}
}

func TestLimiter_InvalidURL(t *testing.T) {
	limiter := NewLimiter(1.0, 1)
	if limiter.Allow("://not a url") {
		t.Error("invalid URL must not be allowed")
	}
}
