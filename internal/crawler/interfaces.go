package crawler

import (
	"context"
	"time"

	"github.com/masahif/termspider/internal/parser"
	"github.com/masahif/termspider/internal/rank"
)

// Store persists page records. Implementations must tolerate concurrent
// callers; Insert reports false when another caller already created the
// record.
type Store interface {
	Exists(ctx context.Context, link string) (bool, error)
	RecordHit(ctx context.Context, link string) error
	LastVisited(ctx context.Context, link string) (time.Time, bool, error)
	Insert(ctx context.Context, link, title string, outlinks int, seen time.Time) (bool, error)
	Update(ctx context.Context, link string, visited time.Time, title string) error
	SetVector(ctx context.Context, link string, v rank.Vector) error
	SetContent(ctx context.Context, link, text string) error
}

// Downloader retrieves page bodies. A failed fetch returns ("", false).
type Downloader interface {
	FetchPage(ctx context.Context, link string) (string, bool)
}

// PolicyChecker decides whether a link may be crawled.
type PolicyChecker interface {
	IsApproved(ctx context.Context, link string) bool
}

// Ranker turns a parsed page into a term vector.
type Ranker interface {
	Build(doc *parser.Document) (rank.Vector, error)
}

// Frontier receives newly discovered links and returns the ones it
// accepted.
type Frontier interface {
	Push(links ...string) []string
}

// Reporter receives progress notifications. Calls must return quickly.
// Every OnStart is followed by exactly one OnProcessed or OnAbandoned for
// the same link.
type Reporter interface {
	OnStart(link string)
	OnQueued(links []string)
	OnStats(link string, v rank.Vector)
	OnProcessed(link string)
	OnAbandoned(link, reason string)
	OnError(link string, err error)
}

// Processor runs the full crawl cycle for one link.
type Processor interface {
	Process(ctx context.Context, link string) (Outcome, error)
}

type nopReporter struct{}

func (nopReporter) OnStart(string)              {}
func (nopReporter) OnQueued([]string)           {}
func (nopReporter) OnStats(string, rank.Vector) {}
func (nopReporter) OnProcessed(string)          {}
func (nopReporter) OnAbandoned(string, string)  {}
func (nopReporter) OnError(string, error)       {}
