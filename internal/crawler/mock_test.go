package crawler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/masahif/termspider/internal/rank"
)

func init() {
	// Set error level logging during tests to only show critical issues
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	slog.SetDefault(logger)
}

var errStoreDown = errors.New("store unreachable")

type pageRow struct {
	title    string
	outlinks int
	seen     time.Time
	visited  time.Time
	hits     int
	vector   rank.Vector
	content  string
}

// MockStore is an in-memory Store.
type MockStore struct {
	mu      sync.Mutex
	pages   map[string]*pageRow
	inserts int
	updates int
	failOn  string // operation name that returns errStoreDown
}

func NewMockStore() *MockStore {
	return &MockStore{pages: make(map[string]*pageRow)}
}

func (m *MockStore) seed(link string, visited time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[link] = &pageRow{seen: visited, visited: visited}
}

func (m *MockStore) page(link string) (pageRow, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.pages[link]
	if !ok {
		return pageRow{}, false
	}
	return *row, true
}

func (m *MockStore) counts() (inserts, updates int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserts, m.updates
}

func (m *MockStore) Exists(_ context.Context, link string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn == "exists" {
		return false, errStoreDown
	}
	_, ok := m.pages[link]
	return ok, nil
}

func (m *MockStore) RecordHit(_ context.Context, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.pages[link]; ok {
		row.hits++
	}
	return nil
}

func (m *MockStore) LastVisited(_ context.Context, link string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.pages[link]
	if !ok {
		return time.Time{}, false, nil
	}
	return row.visited, true, nil
}

func (m *MockStore) Insert(_ context.Context, link, title string, outlinks int, seen time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn == "insert" {
		return false, errStoreDown
	}
	if _, ok := m.pages[link]; ok {
		return false, nil
	}
	m.pages[link] = &pageRow{title: title, outlinks: outlinks, seen: seen, visited: seen}
	m.inserts++
	return true, nil
}

func (m *MockStore) Update(_ context.Context, link string, visited time.Time, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.pages[link]
	if !ok {
		return nil
	}
	if visited.After(row.visited) {
		row.visited = visited
	}
	row.title = title
	m.updates++
	return nil
}

func (m *MockStore) SetVector(_ context.Context, link string, v rank.Vector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.pages[link]; ok {
		row.vector = v
	}
	return nil
}

func (m *MockStore) SetContent(_ context.Context, link, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.pages[link]; ok {
		row.content = text
	}
	return nil
}

// mockDownloader serves fixed bodies; links without a body fail.
type mockDownloader struct {
	mu      sync.Mutex
	pages   map[string]string
	fetched []string
	before  func(link string)
}

func (d *mockDownloader) FetchPage(_ context.Context, link string) (string, bool) {
	if d.before != nil {
		d.before(link)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fetched = append(d.fetched, link)
	body, ok := d.pages[link]
	return body, ok
}

type mockRobots struct {
	denied map[string]bool
}

func (r mockRobots) IsApproved(_ context.Context, link string) bool {
	return !r.denied[link]
}

type mockFrontier struct {
	mu    sync.Mutex
	links []string
}

func (f *mockFrontier) Push(links ...string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links = append(f.links, links...)
	return links
}

// recordingReporter keeps every notification.
type recordingReporter struct {
	mu        sync.Mutex
	started   []string
	queued    [][]string
	stats     []string
	processed []string
	abandoned []string // "link reason"
	errors    []error
}

func (r *recordingReporter) OnStart(link string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, link)
}

func (r *recordingReporter) OnQueued(links []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queued = append(r.queued, links)
}

func (r *recordingReporter) OnStats(link string, _ rank.Vector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = append(r.stats, link)
}

func (r *recordingReporter) OnProcessed(link string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed = append(r.processed, link)
}

func (r *recordingReporter) OnAbandoned(link, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.abandoned = append(r.abandoned, link+" "+reason)
}

func (r *recordingReporter) OnError(_ string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
}

type stubTagger map[string][]string

func (s stubTagger) TagsFor(_ context.Context, imageURL string) []string {
	return s[imageURL]
}
