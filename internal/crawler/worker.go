package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/juju/clock"

	"github.com/masahif/termspider/internal/parser"
	"github.com/masahif/termspider/internal/rank"
)

// DefaultRevisitAfter is the age after which a stored page is crawled again.
const DefaultRevisitAfter = 7 * 24 * time.Hour

// Dependencies are the collaborators a Worker drives. Robots and Tagger
// are optional; a nil Reporter discards notifications.
type Dependencies struct {
	Store      Store
	Downloader Downloader
	Robots     PolicyChecker
	Ranker     Ranker
	Tagger     rank.Tagger
	Frontier   Frontier
	Reporter   Reporter
}

// Worker runs the crawl state machine for one link at a time. A single
// Worker is safe to share between goroutines: all per-link state lives in
// the cycle passed between states.
type Worker struct {
	deps         Dependencies
	processor    *pageProcessor
	clock        clock.Clock
	revisitAfter time.Duration
	logger       *slog.Logger
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithClock sets the time source used for revisit decisions and timestamps.
func WithClock(c clock.Clock) WorkerOption {
	return func(w *Worker) { w.clock = c }
}

// WithRevisitAfter sets the revisit threshold.
func WithRevisitAfter(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.revisitAfter = d
		}
	}
}

// WithWorkerLogger sets the logger.
func WithWorkerLogger(l *slog.Logger) WorkerOption {
	return func(w *Worker) { w.logger = l }
}

// NewWorker creates a worker.
func NewWorker(deps Dependencies, opts ...WorkerOption) *Worker {
	if deps.Reporter == nil {
		deps.Reporter = nopReporter{}
	}

	w := &Worker{
		deps: deps,
		processor: &pageProcessor{
			ranker: deps.Ranker,
			tagger: deps.Tagger,
		},
		clock:        clock.WallClock,
		revisitAfter: DefaultRevisitAfter,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type state int

const (
	stateStart state = iota
	stateDedupCheck
	stateRobotsCheck
	stateFetch
	stateExtract
	stateDiscover
	stateRank
	statePersistCheck
	statePersist
	stateReport
	stateDone
)

var stateNames = [...]string{
	"start", "dedup_check", "robots_check", "fetch", "extract", "discover",
	"rank", "persist_check", "persist", "report", "done",
}

func (s state) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// cycle carries the state of one link through the machine.
type cycle struct {
	link    string
	revisit bool
	body    string
	doc     *parser.Document
	links   []string
	vector  rank.Vector
	outcome Outcome
	err     error

	started  bool // OnStart sent
	reported bool // OnProcessed sent
}

// Process runs the crawl cycle for link. Expected outcomes such as a
// robots denial or a lost insert race are reported through the Outcome;
// the error is non-nil only when the store fails. Cancellation is checked
// before every transition and committed side effects are not undone.
func (w *Worker) Process(ctx context.Context, link string) (Outcome, error) {
	c := &cycle{link: link}

	for st := stateStart; st != stateDone; {
		if ctx.Err() != nil {
			w.logger.Debug("Cycle cancelled", "url", link, "state", st.String())
			c.outcome, c.err = Cancelled, nil
			break
		}
		st = w.step(ctx, st, c)
	}

	if c.started && !c.reported {
		w.deps.Reporter.OnAbandoned(c.link, c.outcome.String())
	}
	return c.outcome, c.err
}

func (w *Worker) step(ctx context.Context, st state, c *cycle) state {
	switch st {
	case stateStart:
		return stateDedupCheck
	case stateDedupCheck:
		return w.dedupCheck(ctx, c)
	case stateRobotsCheck:
		return w.robotsCheck(ctx, c)
	case stateFetch:
		return w.fetch(ctx, c)
	case stateExtract:
		c.doc = w.processor.extract(c.link, c.body)
		if c.revisit {
			return stateRank
		}
		return stateDiscover
	case stateDiscover:
		return w.discover(c)
	case stateRank:
		return w.rank(ctx, c)
	case statePersistCheck:
		return w.persistCheck(ctx, c)
	case statePersist:
		return w.persist(ctx, c)
	case stateReport:
		w.deps.Reporter.OnStats(c.link, c.vector)
		w.deps.Reporter.OnProcessed(c.link)
		c.reported = true
		return stateDone
	}
	return stateDone
}

func (w *Worker) dedupCheck(ctx context.Context, c *cycle) state {
	exists, err := w.deps.Store.Exists(ctx, c.link)
	if err != nil {
		return w.fail(c, "check page", err)
	}
	if !exists {
		return stateRobotsCheck
	}

	if err := w.deps.Store.RecordHit(ctx, c.link); err != nil {
		return w.fail(c, "record hit", err)
	}

	visited, ok, err := w.deps.Store.LastVisited(ctx, c.link)
	if err != nil {
		return w.fail(c, "read last visited", err)
	}
	if ok && w.clock.Now().Sub(visited) <= w.revisitAfter {
		c.outcome = AlreadyFresh
		return stateDone
	}

	c.revisit = true
	return stateRobotsCheck
}

func (w *Worker) robotsCheck(ctx context.Context, c *cycle) state {
	if w.deps.Robots != nil && !w.deps.Robots.IsApproved(ctx, c.link) {
		w.logger.Debug("Disallowed by robots.txt", "url", c.link)
		c.outcome = Denied
		return stateDone
	}
	return stateFetch
}

func (w *Worker) fetch(ctx context.Context, c *cycle) state {
	w.deps.Reporter.OnStart(c.link)
	c.started = true

	body, ok := w.deps.Downloader.FetchPage(ctx, c.link)
	if !ok {
		c.outcome = FetchFailed
		return stateDone
	}
	c.body = body
	return stateExtract
}

func (w *Worker) discover(c *cycle) state {
	c.links = w.processor.discover(c.doc)

	var queued []string
	if len(c.links) > 0 && w.deps.Frontier != nil {
		queued = w.deps.Frontier.Push(c.links...)
	}
	w.deps.Reporter.OnQueued(queued)
	return stateRank
}

func (w *Worker) rank(ctx context.Context, c *cycle) state {
	vector, err := w.processor.rank(ctx, c.doc)
	if errors.Is(err, rank.ErrEmptyContent) {
		c.outcome = NoContent
		return stateDone
	}
	if err != nil {
		return w.fail(c, "rank page", err)
	}
	c.vector = vector
	return statePersistCheck
}

func (w *Worker) persistCheck(ctx context.Context, c *cycle) state {
	if c.revisit {
		return statePersist
	}

	exists, err := w.deps.Store.Exists(ctx, c.link)
	if err != nil {
		return w.fail(c, "recheck page", err)
	}
	if exists {
		return w.raceLost(ctx, c)
	}
	return statePersist
}

func (w *Worker) persist(ctx context.Context, c *cycle) state {
	now := w.clock.Now()
	title, _ := c.doc.Title()

	if c.revisit {
		if err := w.deps.Store.Update(ctx, c.link, now, title); err != nil {
			return w.fail(c, "update page", err)
		}
		c.outcome = Updated
	} else {
		inserted, err := w.deps.Store.Insert(ctx, c.link, title, len(c.links), now)
		if err != nil {
			return w.fail(c, "insert page", err)
		}
		if !inserted {
			return w.raceLost(ctx, c)
		}
		c.outcome = Inserted
	}

	if err := w.deps.Store.SetVector(ctx, c.link, c.vector); err != nil {
		return w.fail(c, "store vector", err)
	}
	if err := w.deps.Store.SetContent(ctx, c.link, c.doc.PlainText()); err != nil {
		return w.fail(c, "store content", err)
	}

	return stateReport
}

func (w *Worker) raceLost(ctx context.Context, c *cycle) state {
	w.logger.Debug("Page persisted by another worker", "url", c.link)
	if err := w.deps.Store.RecordHit(ctx, c.link); err != nil {
		return w.fail(c, "record hit", err)
	}
	c.outcome = RaceLost
	return stateDone
}

func (w *Worker) fail(c *cycle, action string, err error) state {
	c.outcome = Failed
	c.err = fmt.Errorf("failed to %s %s: %w", action, c.link, err)
	return stateDone
}
