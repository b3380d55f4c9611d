package crawler

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(100 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()

	// First request should be immediate
	if err := limiter.Wait(ctx, "http://example.com/page1"); err != nil {
		t.Errorf("First request failed: %v", err)
	}

	// Second request should wait
	if err := limiter.Wait(ctx, "http://example.com/page2"); err != nil {
		t.Errorf("Second request failed: %v", err)
	}

	elapsed := time.Since(start)
	if elapsed < 90*time.Millisecond {
		t.Errorf("Rate limiting not working, elapsed time: %v", elapsed)
	}

	// Different domain should not be rate limited
	start2 := time.Now()
	if err := limiter.Wait(ctx, "http://other.com/page1"); err != nil {
		t.Errorf("Different domain request failed: %v", err)
	}
	if elapsed2 := time.Since(start2); elapsed2 > 20*time.Millisecond {
		t.Errorf("Different domain was rate limited, elapsed time: %v", elapsed2)
	}

	if limiter.Domains() != 2 {
		t.Errorf("Expected 2 domains, got %d", limiter.Domains())
	}
}

func TestRateLimiterCustomDelay(t *testing.T) {
	limiter := NewRateLimiter(10 * time.Millisecond)
	ctx := context.Background()

	limiter.SetDomainDelay("Example.COM", 150*time.Millisecond)
	if limiter.Domains() != 1 {
		t.Errorf("Expected the configured domain to count, got %d", limiter.Domains())
	}

	start := time.Now()
	_ = limiter.Wait(ctx, "http://example.com/page1")
	_ = limiter.Wait(ctx, "http://example.com/page2")

	if elapsed := time.Since(start); elapsed < 140*time.Millisecond {
		t.Errorf("Custom delay not applied, elapsed time: %v", elapsed)
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	limiter := NewRateLimiter(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := limiter.Wait(ctx, "http://example.com/"); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Zero delay should not wait, elapsed time: %v", elapsed)
	}
}

func TestRateLimiterErrors(t *testing.T) {
	limiter := NewRateLimiter(time.Hour)

	if err := limiter.Wait(context.Background(), "not a url"); err == nil {
		t.Error("Expected error for link without host")
	}

	ctx, cancel := context.WithCancel(context.Background())
	_ = limiter.Wait(ctx, "http://example.com/")
	cancel()
	if err := limiter.Wait(ctx, "http://example.com/"); err == nil {
		t.Error("Expected error from cancelled context")
	}
}
