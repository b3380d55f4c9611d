package report

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/masahif/termspider/internal/rank"
)

// PrometheusSink exports crawl progress as Prometheus collectors.
type PrometheusSink struct {
	pagesStarted   prometheus.Counter
	pagesProcessed prometheus.Counter
	pagesAbandoned *prometheus.CounterVec
	linksQueued    prometheus.Counter
	errors         prometheus.Counter
	vectorTerms    prometheus.Histogram
	inFlight       prometheus.Gauge
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		pagesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "termspider_pages_started_total",
			Help: "Pages whose fetch has started.",
		}),
		pagesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "termspider_pages_processed_total",
			Help: "Pages ranked and persisted.",
		}),
		pagesAbandoned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "termspider_pages_abandoned_total",
			Help: "Pages whose fetch started but that were not persisted, by outcome.",
		}, []string{"reason"}),
		linksQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "termspider_links_queued_total",
			Help: "Distinct outgoing links accepted into the queue after filtering.",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "termspider_errors_total",
			Help: "Store failures while processing links.",
		}),
		vectorTerms: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "termspider_vector_terms",
			Help:    "Number of terms per page vector.",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500},
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "termspider_pages_in_flight",
			Help: "Pages whose fetch started and whose cycle has not ended.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.pagesStarted,
		s.pagesProcessed,
		s.pagesAbandoned,
		s.linksQueued,
		s.errors,
		s.vectorTerms,
		s.inFlight,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register report collector: %w", err)
		}
	}
	return s, nil
}

func (s *PrometheusSink) OnStart(string) {
	s.pagesStarted.Inc()
	s.inFlight.Inc()
}

func (s *PrometheusSink) OnQueued(links []string) {
	s.linksQueued.Add(float64(len(links)))
}

func (s *PrometheusSink) OnStats(_ string, v rank.Vector) {
	s.vectorTerms.Observe(float64(len(v)))
}

func (s *PrometheusSink) OnProcessed(string) {
	s.pagesProcessed.Inc()
	s.inFlight.Dec()
}

func (s *PrometheusSink) OnAbandoned(_ string, reason string) {
	s.pagesAbandoned.WithLabelValues(reason).Inc()
	s.inFlight.Dec()
}

func (s *PrometheusSink) OnError(string, error) {
	s.errors.Inc()
}
