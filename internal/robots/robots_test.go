package robots

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeFetcher struct {
	files map[string]string
	calls atomic.Int32
}

func (f *fakeFetcher) FetchRobotsText(_ context.Context, domain string) (string, bool) {
	f.calls.Add(1)
	text, ok := f.files[domain]
	return text, ok
}

func TestParse(t *testing.T) {
	robotsTxt := `
# site wide rules
User-agent: Googlebot
Disallow: /no-google/

User-agent: *
Disallow: /admin/   # trailing comment
Disallow: /private/
Allow: /private/public/
disallow:
Crawl-delay: 2

User-agent: Bingbot
Disallow: /no-bing/
`

	rules := Parse("example.com", robotsTxt)

	wantDisallow := []string{"/admin/", "/private/"}
	if len(rules.Disallow) != len(wantDisallow) {
		t.Fatalf("Expected %d disallow rules, got %d", len(wantDisallow), len(rules.Disallow))
	}
	for i, want := range wantDisallow {
		if rules.Disallow[i].Pattern != want {
			t.Errorf("Disallow[%d] = %q, want %q", i, rules.Disallow[i].Pattern, want)
		}
	}

	if len(rules.Allow) != 1 || rules.Allow[0].Pattern != "/private/public/" {
		t.Errorf("Unexpected allow rules: %+v", rules.Allow)
	}
	if rules.Unrestricted {
		t.Error("Parsed rule set must not be unrestricted")
	}
}

func TestParseEmptyBlock(t *testing.T) {
	rules := Parse("example.com", "User-agent: *\nUser-agent: other\nDisallow: /x\n")
	if len(rules.Disallow) != 0 || len(rules.Allow) != 0 {
		t.Errorf("Expected no rules, got %+v", rules)
	}
}

func TestParseCaseInsensitive(t *testing.T) {
	rules := Parse("example.com", "USER-AGENT: *\r\nDISALLOW: /Secret\r\nALLOW: /Secret/ok\r\n")
	if len(rules.Disallow) != 1 || rules.Disallow[0].Pattern != "/Secret" {
		t.Errorf("Unexpected disallow rules: %+v", rules.Disallow)
	}
	if len(rules.Allow) != 1 || rules.Allow[0].Pattern != "/Secret/ok" {
		t.Errorf("Unexpected allow rules: %+v", rules.Allow)
	}
}

func TestRuleMatches(t *testing.T) {
	tests := []struct {
		pattern  string
		link     string
		expected bool
	}{
		{"/admin/", "http://x.com/admin/page", true},
		{"/admin/", "http://x.com/admin", false},
		{"*.pdf", "http://x.com/path/file.pdf", true},
		{"/path/*/file", "http://x.com/path/to/file", true},
		{"/path/*/file", "http://x.com/path/file", false},
		{"/a.b", "http://x.com/axb", false},
		{"/a.b", "http://x.com/a.b", true},
		{"/q?x=(1)", "http://x.com/q?x=(1)", true},
		{"/end$", "http://x.com/end$", true},
		{"/end$", "http://x.com/end", false},
		{"/docs", "http://x.com/en/docs/intro", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"_"+tt.link, func(t *testing.T) {
			if got := NewRule(tt.pattern).Matches(tt.link); got != tt.expected {
				t.Errorf("NewRule(%q).Matches(%q) = %v, expected %v", tt.pattern, tt.link, got, tt.expected)
			}
		})
	}
}

func TestRuleSetAllows(t *testing.T) {
	tests := []struct {
		name     string
		robots   string
		link     string
		expected bool
	}{
		{"longer allow overrides disallow", "User-agent: *\nDisallow: /a*\nAllow: /ab\n", "http://x.com/ab/c", true},
		{"wildcard ties lose to literal pattern", "User-agent: *\nDisallow: /a*\nAllow: /ab\n", "http://x.com/ab", true},
		{"disallow wildcard", "User-agent: *\nDisallow: /a*\nAllow: /ab\n", "http://x.com/axyz", false},
		{"allow only denies by default", "User-agent: *\nAllow: /public\n", "http://x.com/private", false},
		{"allow only permits match", "User-agent: *\nAllow: /public\n", "http://x.com/public/page", true},
		{"disallow only allows by default", "User-agent: *\nDisallow: /admin\n", "http://x.com/blog", true},
		{"equal length allow does not override", "User-agent: *\nDisallow: /abc\nAllow: /abc\n", "http://x.com/abc", false},
		{"shorter allow does not override", "User-agent: *\nDisallow: /private/\nAllow: /priv\n", "http://x.com/private/x", false},
		{"nested allow", "User-agent: *\nDisallow: /private/\nAllow: /private/public/\n", "http://x.com/private/public/page", true},
		{"no rules", "User-agent: *\n", "http://x.com/anything", true},
		{"other agents ignored", "User-agent: bot\nDisallow: /\n", "http://x.com/anything", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := Parse("x.com", tt.robots)
			got := rules.Allows(tt.link)
			if got != tt.expected {
				t.Errorf("Allows(%q) = %v, expected %v", tt.link, got, tt.expected)
			}
			if again := rules.Allows(tt.link); again != got {
				t.Errorf("Allows(%q) is not deterministic", tt.link)
			}
		})
	}
}

func TestEngineIsApproved(t *testing.T) {
	fetcher := &fakeFetcher{files: map[string]string{
		"x.com": "User-agent: *\nDisallow: /admin/\n",
	}}
	engine := NewEngine(fetcher)
	ctx := context.Background()

	if !engine.IsApproved(ctx, "http://x.com/blog") {
		t.Error("Expected /blog to be approved")
	}
	if engine.IsApproved(ctx, "http://x.com/admin/users") {
		t.Error("Expected /admin/users to be denied")
	}
	if calls := fetcher.calls.Load(); calls != 1 {
		t.Errorf("Expected robots.txt to be fetched once, got %d", calls)
	}
}

func TestEngineFetchFailureAllows(t *testing.T) {
	fetcher := &fakeFetcher{files: map[string]string{}}
	engine := NewEngine(fetcher)
	ctx := context.Background()

	if !engine.IsApproved(ctx, "http://missing.com/admin") {
		t.Error("Expected approval when robots.txt is unavailable")
	}

	rules := engine.Rules(ctx, "missing.com")
	if !rules.Unrestricted {
		t.Error("Expected unrestricted sentinel to be cached")
	}
	if calls := fetcher.calls.Load(); calls != 1 {
		t.Errorf("Expected one fetch, got %d", calls)
	}
}

func TestEngineDeniesWithoutHost(t *testing.T) {
	engine := NewEngine(&fakeFetcher{})
	ctx := context.Background()

	for _, link := range []string{"", "not a link", "http://[::1"} {
		if engine.IsApproved(ctx, link) {
			t.Errorf("Expected %q to be denied", link)
		}
	}
}

func TestEngineConcurrentAccess(t *testing.T) {
	fetcher := &fakeFetcher{files: map[string]string{
		"x.com": "User-agent: *\nDisallow: /private\n",
	}}
	engine := NewEngine(fetcher)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if engine.IsApproved(ctx, "http://x.com/private/1") {
				t.Error("Expected denial")
			}
		}()
	}
	wg.Wait()

	if engine.Cached() != 1 {
		t.Errorf("Expected one cached domain, got %d", engine.Cached())
	}
	first := engine.Rules(ctx, "x.com")
	if engine.Rules(ctx, "x.com") != first {
		t.Error("Cached rule set must not change once stored")
	}
}

func TestCrawlDelay(t *testing.T) {
	tests := []struct {
		name string
		text string
		want time.Duration
	}{
		{"wildcard group", "User-agent: *\nCrawl-delay: 2\nDisallow: /x\n", 2 * time.Second},
		{"fractional", "User-agent: *\nCrawl-delay: 0.5\n", 500 * time.Millisecond},
		{"other agent only", "User-agent: Googlebot\nCrawl-delay: 9\n", 0},
		{"absent", "User-agent: *\nDisallow: /x\n", 0},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CrawlDelay(tt.text); got != tt.want {
				t.Errorf("CrawlDelay() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEngineReportsCrawlDelay(t *testing.T) {
	fetcher := &fakeFetcher{files: map[string]string{
		"slow.com": "User-agent: *\nCrawl-delay: 3\nDisallow: /private\n",
		"fast.com": "User-agent: *\nDisallow: /private\n",
	}}

	got := make(map[string]time.Duration)
	engine := NewEngine(fetcher, WithCrawlDelay(func(domain string, delay time.Duration) {
		got[domain] = delay
	}))
	ctx := context.Background()

	if engine.IsApproved(ctx, "http://slow.com/private/a") {
		t.Error("Crawl-delay must not disable the Disallow rules")
	}
	engine.IsApproved(ctx, "http://slow.com/public")
	engine.IsApproved(ctx, "http://fast.com/public")
	engine.IsApproved(ctx, "http://missing.com/public")

	if len(got) != 1 || got["slow.com"] != 3*time.Second {
		t.Errorf("Unexpected crawl delays: %v", got)
	}
}
