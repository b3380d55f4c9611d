package report

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/masahif/termspider/internal/crawler"
	"github.com/masahif/termspider/internal/rank"
)

var (
	_ crawler.Reporter = Nop{}
	_ crawler.Reporter = Multi{}
	_ crawler.Reporter = (*LogSink)(nil)
	_ crawler.Reporter = (*PrometheusSink)(nil)
)

func TestPrometheusSinkRecordsMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	sink.OnStart("http://x.com")
	sink.OnQueued([]string{"http://x.com/a", "http://x.com/b"})
	sink.OnStats("http://x.com", rank.Vector{"cat": 1.0, "great": 0.1})
	sink.OnProcessed("http://x.com")
	sink.OnStart("http://x.com/a")
	sink.OnError("http://x.com/a", errors.New("boom"))

	require.Equal(t, 2.0, testutil.ToFloat64(sink.pagesStarted))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.pagesProcessed))
	require.Equal(t, 2.0, testutil.ToFloat64(sink.linksQueued))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.errors))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.inFlight))
	require.Equal(t, 1, testutil.CollectAndCount(sink.vectorTerms, "termspider_vector_terms"))
}

func TestPrometheusSinkInFlightReturnsToZero(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	for _, link := range []string{"http://x.com/a", "http://x.com/b", "http://x.com/c"} {
		sink.OnStart(link)
		sink.OnAbandoned(link, "fetch_failed")
	}
	sink.OnStart("http://x.com/d")
	sink.OnAbandoned("http://x.com/d", "race_lost")
	sink.OnStart("http://x.com/e")
	sink.OnProcessed("http://x.com/e")

	require.Equal(t, 0.0, testutil.ToFloat64(sink.inFlight))
	require.Equal(t, 3.0, testutil.ToFloat64(sink.pagesAbandoned.WithLabelValues("fetch_failed")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.pagesAbandoned.WithLabelValues("race_lost")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.pagesProcessed))
}

func TestPrometheusSinkDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}

type countingSink struct {
	Nop
	started, processed, abandoned int
}

func (c *countingSink) OnStart(string)             { c.started++ }
func (c *countingSink) OnProcessed(string)         { c.processed++ }
func (c *countingSink) OnAbandoned(string, string) { c.abandoned++ }

func TestMultiFansOut(t *testing.T) {
	t.Parallel()

	a, b := &countingSink{}, &countingSink{}
	m := Multi{a, b, Nop{}}

	m.OnStart("http://x.com")
	m.OnProcessed("http://x.com")
	m.OnAbandoned("http://x.com/b", "fetch_failed")
	m.OnQueued(nil)
	m.OnStats("http://x.com", nil)
	m.OnError("http://x.com", nil)

	require.Equal(t, 1, a.started)
	require.Equal(t, 1, b.started)
	require.Equal(t, 1, a.processed)
	require.Equal(t, 1, b.processed)
	require.Equal(t, 1, a.abandoned)
	require.Equal(t, 1, b.abandoned)
}

func TestLogSink(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	sink := NewLogSink(logger, 1)

	sink.OnStart("http://x.com")
	sink.OnStats("http://x.com", rank.Vector{"cat": 1.0, "great": 0.1})
	sink.OnError("http://x.com", errors.New("store unreachable"))

	out := buf.String()
	require.NotContains(t, out, "Fetching page")
	require.Contains(t, out, `"msg":"Ranked page"`)
	require.Contains(t, out, `"top":["cat"]`)
	require.Contains(t, out, "store unreachable")
}

func TestMetricsRouter(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	sink.OnStart("http://x.com")

	server := httptest.NewServer(NewRouter(reg))
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", string(body))

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.Contains(string(body), "termspider_pages_started_total 1"))
}
