// Package report delivers crawl progress notifications to logs, Prometheus
// collectors and any combination of them.
package report

import (
	"log/slog"

	"github.com/masahif/termspider/internal/rank"
)

// Sink receives crawl progress notifications. Implementations must be safe
// for concurrent use and must not block.
type Sink interface {
	OnStart(link string)
	OnQueued(links []string)
	OnStats(link string, v rank.Vector)
	OnProcessed(link string)
	OnAbandoned(link, reason string)
	OnError(link string, err error)
}

// Nop discards every notification.
type Nop struct{}

func (Nop) OnStart(string)              {}
func (Nop) OnQueued([]string)           {}
func (Nop) OnStats(string, rank.Vector) {}
func (Nop) OnProcessed(string)          {}
func (Nop) OnAbandoned(string, string)  {}
func (Nop) OnError(string, error)       {}

// Multi fans notifications out to several sinks in order.
type Multi []Sink

func (m Multi) OnStart(link string) {
	for _, s := range m {
		s.OnStart(link)
	}
}

func (m Multi) OnQueued(links []string) {
	for _, s := range m {
		s.OnQueued(links)
	}
}

func (m Multi) OnStats(link string, v rank.Vector) {
	for _, s := range m {
		s.OnStats(link, v)
	}
}

func (m Multi) OnProcessed(link string) {
	for _, s := range m {
		s.OnProcessed(link)
	}
}

func (m Multi) OnAbandoned(link, reason string) {
	for _, s := range m {
		s.OnAbandoned(link, reason)
	}
}

func (m Multi) OnError(link string, err error) {
	for _, s := range m {
		s.OnError(link, err)
	}
}

// LogSink writes notifications to a slog logger. Per-link events are logged
// at debug level, ranking summaries and errors above it.
type LogSink struct {
	logger *slog.Logger
	topN   int
}

// NewLogSink creates a log sink that includes the topN terms of each vector.
func NewLogSink(logger *slog.Logger, topN int) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger, topN: topN}
}

func (s *LogSink) OnStart(link string) {
	s.logger.Debug("Fetching page", "url", link)
}

func (s *LogSink) OnQueued(links []string) {
	s.logger.Debug("Queued links", "count", len(links))
}

func (s *LogSink) OnStats(link string, v rank.Vector) {
	top := v.Top(s.topN)
	terms := make([]string, len(top))
	for i, t := range top {
		terms[i] = t.Term
	}
	s.logger.Info("Ranked page", "url", link, "terms", len(v), "top", terms)
}

func (s *LogSink) OnProcessed(link string) {
	s.logger.Debug("Processed page", "url", link)
}

func (s *LogSink) OnAbandoned(link, reason string) {
	s.logger.Debug("Abandoned page", "url", link, "reason", reason)
}

func (s *LogSink) OnError(link string, err error) {
	s.logger.Error("Crawl error", "url", link, "error", err)
}
