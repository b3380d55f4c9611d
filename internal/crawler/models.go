package crawler

import "time"

// Outcome is the terminal result of processing one link.
type Outcome int

const (
	// Cancelled means the context was done before the cycle finished.
	Cancelled Outcome = iota
	// AlreadyFresh means the page was visited within the revisit window.
	AlreadyFresh
	// Denied means robots rules forbid the link.
	Denied
	// FetchFailed means the downloader returned nothing usable.
	FetchFailed
	// NoContent means the page had no indexable terms.
	NoContent
	// RaceLost means another worker persisted the page first.
	RaceLost
	// Inserted means a new page record was created.
	Inserted
	// Updated means an existing page record was refreshed.
	Updated
	// Failed means the store returned an error.
	Failed
)

var outcomeNames = map[Outcome]string{
	Cancelled:    "cancelled",
	AlreadyFresh: "already_fresh",
	Denied:       "denied",
	FetchFailed:  "fetch_failed",
	NoContent:    "no_content",
	RaceLost:     "race_lost",
	Inserted:     "inserted",
	Updated:      "updated",
	Failed:       "failed",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// Persisted reports whether the outcome wrote a page record.
func (o Outcome) Persisted() bool {
	return o == Inserted || o == Updated
}

// Stats is a snapshot of pool progress.
type Stats struct {
	Processed int // links that ran a full cycle, any outcome
	Inserted  int
	Updated   int
	Skipped   int // fresh, denied, fetch failed, no content or race lost
	Errors    int
	Queued    int
	StartTime time.Time
	Duration  time.Duration
}

// PoolConfig controls a Pool.
type PoolConfig struct {
	Concurrency   int
	Limit         int           // stop after N persisted pages (0=unlimited)
	PollInterval  time.Duration // sleep while the queue is momentarily empty
	StatsInterval time.Duration // periodic stats log; 0 uses the default, negative disables
}
