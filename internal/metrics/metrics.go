package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
	"sync"
)

var (
	ErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobscout_errors_total",
			Help: "Total number of occurred errors.",
		},
		[]string{"type"},
	)
	ScrapeRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobscout_scrape_run_duration_seconds",
			Help:    "Duration of each scrape run in seconds.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"state"},
	)
	AdapterDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "jobscout_source_fetch_duration_seconds",
			Help:       "Duration of a single source fetch.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"source"},
	)
	AdapterFailuresCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobscout_source_failures_total",
			Help: "Total number of failed source fetches.",
		},
		[]string{"source"},
	)
	ScrapedPostingsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobscout_postings_scraped_total",
			Help: "Total number of persisted postings.",
		},
	)
	ScoredPostingsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobscout_postings_scored_total",
			Help: "Total number of scoring attempts by result.",
		},
		[]string{"result"},
	)
	ScoringDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jobscout_posting_scoring_duration_seconds",
			Help:    "Duration of scoring a single posting including retries.",
			Buckets: []float64{1, 5, 15, 30, 60, 120},
		},
	)
)

var registerOnce sync.Once

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ErrorsCounter)
		prometheus.MustRegister(ScrapeRunDuration)
		prometheus.MustRegister(AdapterDuration)
		prometheus.MustRegister(AdapterFailuresCounter)
		prometheus.MustRegister(ScrapedPostingsCounter)
		prometheus.MustRegister(ScoredPostingsCounter)
		prometheus.MustRegister(ScoringDuration)
	})
}

// Handler exposes the registered metrics, it is mounted on the API server.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}
