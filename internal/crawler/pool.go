// Package crawler implements the crawl cycle of a single link, the shared
// link queue and the pool of workers that drains it, and the politeness
// aware HTTP downloader the cycle fetches pages with.
package crawler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/masahif/termspider/internal/linknorm"
)

// ErrNoSeeds is returned when no seed link survives normalization.
var ErrNoSeeds = errors.New("no valid seed URLs")

const (
	defaultPollInterval  = 100 * time.Millisecond
	defaultStatsInterval = 10 * time.Second
)

// Pool runs a bounded number of workers over a shared queue. Workers push
// discovered links back into the same queue, so the crawl feeds itself
// until the queue drains, the page limit is reached or ctx is cancelled.
type Pool struct {
	processor Processor
	queue     *Queue
	cfg       PoolConfig
	reporter  Reporter
	logger    *slog.Logger

	stats      Stats
	statsMutex sync.RWMutex
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolReporter sets the sink that receives store failures.
func WithPoolReporter(r Reporter) PoolOption {
	return func(p *Pool) {
		if r != nil {
			p.reporter = r
		}
	}
}

// WithPoolLogger sets the logger.
func WithPoolLogger(l *slog.Logger) PoolOption {
	return func(p *Pool) { p.logger = l }
}

// NewPool creates a pool dispatching links from queue to processor.
func NewPool(processor Processor, queue *Queue, cfg PoolConfig, opts ...PoolOption) *Pool {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	p := &Pool{
		processor: processor,
		queue:     queue,
		cfg:       cfg,
		reporter:  nopReporter{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run normalizes and enqueues seeds, then processes links until no work is
// left. It returns ErrNoSeeds when neither seeds nor queued links exist.
func (p *Pool) Run(ctx context.Context, seeds []string) error {
	var links []string
	for _, seed := range seeds {
		link, ok := linknorm.Normalize("", seed)
		if !ok || !linknorm.IsCanonical(link) {
			p.logger.Warn("Skipping invalid seed URL", "url", seed)
			continue
		}
		links = append(links, link)
	}
	p.queue.Push(links...)

	if p.queue.Len() == 0 {
		return ErrNoSeeds
	}
	p.logger.Info("Starting crawler", "seed_urls", len(links), "workers", p.cfg.Concurrency)

	p.statsMutex.Lock()
	p.stats.StartTime = time.Now()
	p.statsMutex.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(runCtx, id)
		}(i)
	}

	reporterDone := make(chan struct{})
	go func() {
		defer close(reporterDone)
		p.statsReporter(runCtx)
	}()

	wg.Wait()
	cancel()
	<-reporterDone

	stats := p.Stats()
	if ctx.Err() != nil {
		p.logger.Info("Crawling cancelled", "processed", stats.Processed, "queued", stats.Queued)
	} else {
		p.logger.Info("Crawling completed", "processed", stats.Processed, "inserted", stats.Inserted,
			"updated", stats.Updated, "errors", stats.Errors, "duration", stats.Duration)
	}
	return nil
}

// Stats returns a snapshot of pool progress.
func (p *Pool) Stats() Stats {
	p.statsMutex.RLock()
	defer p.statsMutex.RUnlock()

	stats := p.stats
	stats.Queued = p.queue.Len()
	if !stats.StartTime.IsZero() {
		stats.Duration = time.Since(stats.StartTime)
	}
	return stats
}

// worker acquires links until ctx is done, the limit is reached or the
// queue is idle.
func (p *Pool) worker(ctx context.Context, id int) {
	p.logger.Debug("Worker started", "worker_id", id)
	defer p.logger.Debug("Worker stopped", "worker_id", id)

	for {
		if ctx.Err() != nil {
			return
		}
		if p.limitReached() {
			p.logger.Info("Worker reached limit", "worker_id", id)
			return
		}

		link, ok := p.queue.Acquire()
		if !ok {
			if p.queue.Idle() {
				p.logger.Debug("Worker no more items in queue, exiting", "worker_id", id)
				return
			}
			p.workerSleep(ctx)
			continue
		}

		outcome, err := p.processor.Process(ctx, link)
		p.queue.Release()
		p.record(id, link, outcome, err)
	}
}

func (p *Pool) record(id int, link string, outcome Outcome, err error) {
	if err != nil {
		p.logger.Error("Worker failed to process URL", "worker_id", id, "url", link, "error", err)
		p.reporter.OnError(link, err)
	} else {
		p.logger.Debug("Worker processed URL", "worker_id", id, "url", link, "outcome", outcome.String())
	}

	if outcome == Cancelled {
		return
	}

	p.statsMutex.Lock()
	defer p.statsMutex.Unlock()

	p.stats.Processed++
	switch outcome {
	case Inserted:
		p.stats.Inserted++
	case Updated:
		p.stats.Updated++
	case Failed:
		p.stats.Errors++
	default:
		p.stats.Skipped++
	}
}

func (p *Pool) limitReached() bool {
	if p.cfg.Limit <= 0 {
		return false
	}
	p.statsMutex.RLock()
	defer p.statsMutex.RUnlock()
	return p.stats.Inserted+p.stats.Updated >= p.cfg.Limit
}

// workerSleep waits for the poll interval or until ctx is done.
func (p *Pool) workerSleep(ctx context.Context) {
	timer := time.NewTimer(p.cfg.PollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// statsReporter periodically logs crawling statistics.
func (p *Pool) statsReporter(ctx context.Context) {
	interval := p.cfg.StatsInterval
	if interval == 0 {
		interval = defaultStatsInterval
	}
	if interval < 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := p.Stats()
			p.logger.Info("Crawling stats", "processed", stats.Processed, "inserted", stats.Inserted,
				"updated", stats.Updated, "skipped", stats.Skipped, "errors", stats.Errors,
				"queued", stats.Queued, "duration", stats.Duration)
		}
	}
}
