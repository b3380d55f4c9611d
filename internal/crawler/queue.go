package crawler

import "sync"

// Queue is an unbounded multi-producer/multi-consumer link queue that
// tracks how many acquired links are still being processed.
type Queue struct {
	mu       sync.Mutex
	items    []string
	inFlight int
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends links to the queue. Every link is accepted.
func (q *Queue) Push(links ...string) []string {
	if len(links) == 0 {
		return links
	}
	q.mu.Lock()
	q.items = append(q.items, links...)
	q.mu.Unlock()
	return links
}

// Acquire removes the next link and marks it in flight. Callers must call
// Release once processing finishes.
func (q *Queue) Acquire() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return "", false
	}
	link := q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	q.inFlight++
	return link, true
}

// Release marks one acquired link as done.
func (q *Queue) Release() {
	q.mu.Lock()
	if q.inFlight > 0 {
		q.inFlight--
	}
	q.mu.Unlock()
}

// Idle reports whether the queue is empty and no link is in flight, so no
// more work can appear.
func (q *Queue) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0 && q.inFlight == 0
}

// Len returns the number of queued links.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
