package crawler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/masahif/termspider/internal/linknorm"
)

// RateLimiter spaces requests to the same domain by a fixed delay.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	delay    time.Duration
}

// NewRateLimiter creates a limiter. A non-positive delay disables waiting.
func NewRateLimiter(defaultDelay time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		delay:    defaultDelay,
	}
}

// Wait blocks until a request to link's domain may proceed or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context, link string) error {
	domain, ok := linknorm.Host(link)
	if !ok {
		return fmt.Errorf("no host in %q", link)
	}
	return r.getLimiter(domain).Wait(ctx)
}

// SetDomainDelay overrides the delay for one domain (host[:port]).
func (r *RateLimiter) SetDomainDelay(domain string, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiters[strings.ToLower(domain)] = newLimiter(delay)
}

// Domains returns the number of domains with a limiter, configured or seen.
func (r *RateLimiter) Domains() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.limiters)
}

func (r *RateLimiter) getLimiter(domain string) *rate.Limiter {
	r.mu.RLock()
	limiter, exists := r.limiters[domain]
	r.mu.RUnlock()
	if exists {
		return limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if limiter, exists := r.limiters[domain]; exists {
		return limiter
	}
	limiter = newLimiter(r.delay)
	r.limiters[domain] = limiter
	return limiter
}

func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}
