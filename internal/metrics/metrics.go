// Package metrics exposes Prometheus collectors for the issue crawler.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels recorded for each candidate item that enters the pipeline.
const (
	OutcomeStored        = "stored"
	OutcomeDuplicate     = "duplicate"
	OutcomeFetchError    = "fetch_error"
	OutcomeClassifyError = "classify_error"
	OutcomeIrrelevant    = "irrelevant"
	OutcomeEmbedError    = "embed_error"
	OutcomeStoreError    = "store_error"
)

var (
	candidatesTotal      *prometheus.CounterVec
	issuesStoredTotal    *prometheus.CounterVec
	sourceErrorsTotal    *prometheus.CounterVec
	stageDurationSeconds *prometheus.HistogramVec
	crawlRunsTotal       prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		candidatesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "issueradar_candidates_total",
				Help: "Candidate items processed, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)

		issuesStoredTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "issueradar_issues_stored_total",
				Help: "New issues persisted, labeled by application name.",
			},
			[]string{"application"},
		)

		sourceErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "issueradar_source_errors_total",
				Help: "Whole-discovery failures, labeled by source.",
			},
			[]string{"source"},
		)

		stageDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "issueradar_stage_duration_seconds",
				Help:    "Latency of pipeline stages (fetch, classify, embed, store).",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"stage"},
		)

		crawlRunsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "issueradar_crawl_runs_total",
				Help: "Total crawl runs started.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCandidate increments the candidate counter for the given outcome.
func ObserveCandidate(source, outcome string) {
	Init()
	candidatesTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveIssueStored increments the stored-issue counter for an application.
func ObserveIssueStored(application string) {
	Init()
	issuesStoredTotal.WithLabelValues(application).Inc()
}

// ObserveSourceError increments the whole-discovery failure counter.
func ObserveSourceError(source string) {
	Init()
	sourceErrorsTotal.WithLabelValues(source).Inc()
}

// ObserveStage records the duration of one pipeline stage.
func ObserveStage(stage string, duration time.Duration) {
	Init()
	stageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveRun increments the crawl run counter.
func ObserveRun() {
	Init()
	crawlRunsTotal.Inc()
}
