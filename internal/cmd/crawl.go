package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/masahif/termspider/internal/config"
	"github.com/masahif/termspider/internal/crawler"
	"github.com/masahif/termspider/internal/imagetag"
	"github.com/masahif/termspider/internal/rank"
	"github.com/masahif/termspider/internal/report"
	"github.com/masahif/termspider/internal/robots"
	"github.com/masahif/termspider/internal/storage"
	"github.com/masahif/termspider/internal/textproc"
)

// Meta keys written to the store for every run.
const (
	metaRunID       = "last_run_id"
	metaRunStarted  = "last_run_started"
	metaRunFinished = "last_run_finished"
)

const (
	logTopTerms     = 5
	shutdownTimeout = 5 * time.Second
	maxCrawlDelay   = 30 * time.Second
)

// crawlSession owns every resource one crawl run opens.
type crawlSession struct {
	cfg     *config.CrawlConfig
	logger  *slog.Logger
	runID   string
	store   *storage.Store
	client  *crawler.HTTPClient
	limiter *crawler.RateLimiter
	metrics *report.MetricsServer
	pool    *crawler.Pool
}

func newCrawlSession(cfg *config.CrawlConfig, logger *slog.Logger, runID string) (*crawlSession, error) {
	s := &crawlSession{cfg: cfg, logger: logger, runID: runID}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	s.store = store

	if err := s.wire(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// wire builds the crawl graph around the opened store.
func (s *crawlSession) wire() error {
	cfg := s.cfg

	stopwords := textproc.DefaultStopwords()
	if cfg.StopwordsPath != "" {
		loaded, err := textproc.LoadStopwords(cfg.StopwordsPath)
		if err != nil {
			return err
		}
		stopwords = loaded
	}

	s.client = crawler.NewHTTPClient(cfg.UserAgent, cfg.RequestTimeout)
	s.client.SetLogger(s.logger)
	delays, err := cfg.DomainDelayMap()
	if err != nil {
		return err
	}
	s.limiter = crawler.NewRateLimiter(cfg.RequestDelay)
	for host, delay := range delays {
		s.limiter.SetDomainDelay(host, delay)
	}
	s.client.SetRateLimiter(s.limiter)
	if username, password := cfg.GetBasicAuthCredentials(); username != "" {
		s.client.SetBasicAuth(username, password)
	}
	if len(cfg.Headers) > 0 {
		s.client.SetCustomHeaders(crawler.ParseHeaders(cfg.Headers))
	}

	filter, err := crawler.NewLinkFilter(cfg.SeedURLs, cfg.IncludePatterns, cfg.ExcludePatterns, cfg.FollowExternalHosts)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	promSink, err := report.NewPrometheusSink(registry)
	if err != nil {
		return err
	}
	reporter := report.Multi{report.NewLogSink(s.logger, logTopTerms), promSink}

	if cfg.Metrics.Addr != "" {
		s.metrics = report.NewMetricsServer(cfg.Metrics.Addr, registry)
		s.metrics.Start()
	}

	queue := crawler.NewQueue()
	deps := crawler.Dependencies{
		Store:      s.store,
		Downloader: s.client,
		Ranker:     rank.NewBuilder(textproc.NewPorter2(), stopwords),
		Frontier:   crawler.NewFilteredFrontier(queue, filter),
		Reporter:   reporter,
	}
	if cfg.RespectRobots {
		deps.Robots = robots.NewEngine(s.client,
			robots.WithLogger(s.logger),
			robots.WithCrawlDelay(s.crawlDelayHook(delays)))
	}
	if tagger := imagetag.NewClient(cfg.ImageTagger.Endpoint, cfg.ImageTagger.APIKey, cfg.ImageTagger.Timeout); tagger != nil {
		deps.Tagger = tagger
	}

	worker := crawler.NewWorker(deps,
		crawler.WithRevisitAfter(cfg.RevisitAfter),
		crawler.WithWorkerLogger(s.logger))

	s.pool = crawler.NewPool(worker, queue, crawler.PoolConfig{
		Concurrency:  cfg.Concurrency,
		Limit:        cfg.Limit,
		PollInterval: cfg.QueuePollInterval,
	}, crawler.WithPoolReporter(reporter), crawler.WithPoolLogger(s.logger))

	return nil
}

// run drains the crawl and records the run in the store's meta table.
func (s *crawlSession) run(ctx context.Context) error {
	s.setMeta(ctx, metaRunID, s.runID)
	s.setMeta(ctx, metaRunStarted, time.Now().UTC().Format(time.RFC3339))

	err := s.pool.Run(ctx, s.cfg.SeedURLs)
	s.logger.Info("Crawl finished", "domains", s.limiter.Domains(), "driver", s.store.Driver())

	// ctx may already be cancelled here
	s.setMeta(context.WithoutCancel(ctx), metaRunFinished, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *crawlSession) setMeta(ctx context.Context, key, value string) {
	if err := s.store.SetMeta(ctx, key, value); err != nil {
		s.logger.Warn("Failed to write run metadata", "key", key, "error", err)
	}
}

// Close releases everything the session opened and reports every failure.
func (s *crawlSession) Close() error {
	var result *multierror.Error

	if s.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := s.metrics.Shutdown(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("metrics server: %w", err))
		}
		cancel()
	}
	if s.client != nil {
		s.client.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("store: %w", err))
		}
	}

	return result.ErrorOrNil()
}

// openStore opens the configured database, creating the SQLite directory.
func openStore(cfg *config.CrawlConfig) (*storage.Store, error) {
	if cfg.Database.Driver == config.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

// openExistingStore opens a store for read-only commands. A missing SQLite
// file is an error rather than a fresh empty database.
func openExistingStore(cfg *config.CrawlConfig) (*storage.Store, error) {
	if cfg.Database.Driver == config.DriverSQLite {
		if _, err := os.Stat(cfg.Database.DSN); os.IsNotExist(err) {
			return nil, fmt.Errorf("no database found at %s", cfg.Database.DSN)
		}
	}
	return openStore(cfg)
}

// crawlDelayHook slows a domain down to its robots.txt Crawl-delay, capped
// at maxCrawlDelay. Delays configured through domain_delays win.
func (s *crawlSession) crawlDelayHook(configured map[string]time.Duration) func(string, time.Duration) {
	return func(domain string, delay time.Duration) {
		if _, ok := configured[domain]; ok || delay <= s.cfg.RequestDelay {
			return
		}
		delay = min(delay, maxCrawlDelay)
		s.limiter.SetDomainDelay(domain, delay)
		s.logger.Info("Applying robots.txt crawl delay", "domain", domain, "delay", delay)
	}
}
