// Package robots evaluates crawl permission from robots.txt files.
// Parsed rule sets are cached per domain for the lifetime of an Engine.
package robots

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/masahif/termspider/internal/linknorm"
)

// Fetcher retrieves the robots.txt body of a domain. ok is false when the
// file could not be retrieved for any reason.
type Fetcher interface {
	FetchRobotsText(ctx context.Context, domain string) (text string, ok bool)
}

// Engine answers robots.txt permission queries. It is safe for concurrent
// use; two workers missing the cache for the same domain at once may both
// fetch the file, but only the first stored rule set is kept.
type Engine struct {
	fetcher Fetcher
	rules   map[string]*RuleSet
	mu      sync.RWMutex
	logger  *slog.Logger
	onDelay func(domain string, delay time.Duration)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithCrawlDelay registers fn to receive the Crawl-delay of each domain
// whose robots.txt sets one. fn runs once per fetched file.
func WithCrawlDelay(fn func(domain string, delay time.Duration)) Option {
	return func(e *Engine) {
		e.onDelay = fn
	}
}

// NewEngine creates an engine with an empty cache.
func NewEngine(fetcher Fetcher, opts ...Option) *Engine {
	e := &Engine{
		fetcher: fetcher,
		rules:   make(map[string]*RuleSet),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsApproved reports whether link may be crawled. Links whose host cannot
// be determined are denied.
func (e *Engine) IsApproved(ctx context.Context, link string) bool {
	domain, ok := linknorm.Host(link)
	if !ok {
		return false
	}

	return e.Rules(ctx, domain).Allows(link)
}

// Rules returns the cached rule set of domain, fetching and parsing it on
// the first request.
func (e *Engine) Rules(ctx context.Context, domain string) *RuleSet {
	e.mu.RLock()
	rules, exists := e.rules[domain]
	e.mu.RUnlock()

	if exists {
		return rules
	}

	text, ok := e.fetcher.FetchRobotsText(ctx, domain)
	if ok {
		rules = Parse(domain, text)
		e.logger.Debug("Parsed robots.txt", "domain", domain,
			"disallow", len(rules.Disallow), "allow", len(rules.Allow))
		if e.onDelay != nil {
			if delay := CrawlDelay(text); delay > 0 {
				e.onDelay(domain, delay)
			}
		}
	} else {
		rules = unrestricted(domain)
		e.logger.Debug("No robots.txt, domain unrestricted", "domain", domain)
	}

	return e.store(domain, rules)
}

// store caches rules unless another goroutine got there first, and returns
// whichever rule set is cached.
func (e *Engine) store(domain string, rules *RuleSet) *RuleSet {
	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, exists := e.rules[domain]; exists {
		return existing
	}
	e.rules[domain] = rules
	return rules
}

// Cached returns the number of domains with a cached rule set.
func (e *Engine) Cached() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}
