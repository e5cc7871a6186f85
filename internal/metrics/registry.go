// Package metrics exposes Prometheus instrumentation for analysis runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rohankatakam/changerisk/internal/content"
)

const namespace = "changerisk"

// Content outcomes recorded per file
const (
	OutcomeTreeSitter  = "tree_sitter"
	OutcomeFallback    = "fallback"
	OutcomeRejected    = "rejected"
	OutcomeUnavailable = "unavailable"
	OutcomeTimeout     = "timed_out"
	OutcomeBudget      = "budget_exhausted"
)

// Change dispositions recorded per pass
const (
	ChangeProcessed = "processed"
	ChangeExcluded  = "excluded"
	ChangeAnomalous = "anomalous"
)

// Registry holds the collectors of one process. A nil *Registry records
// nothing, so callers never need to check.
type Registry struct {
	files          *prometheus.CounterVec
	timeouts       prometheus.Counter
	contentSeconds prometheus.Histogram
	cacheLookups   *prometheus.CounterVec
	changes        *prometheus.CounterVec
	commits        prometheus.Counter
	runSeconds     prometheus.Histogram
}

// NewRegistry registers the collectors on reg
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		files: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "content",
			Name:      "files_total",
			Help:      "Files considered for content analysis by outcome",
		}, []string{"outcome"}),
		timeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "content",
			Name:      "timeouts_total",
			Help:      "Files whose extraction hit a deadline",
		}),
		contentSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "content",
			Name:      "file_seconds",
			Help:      "Time spent fetching and analyzing one file",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Analysis cache lookups by table and result",
		}, []string{"table", "result"}),
		changes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "changes_total",
			Help:      "File changes seen by disposition",
		}, []string{"disposition"}),
		commits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "commits_total",
			Help:      "Commits folded into risk tables",
		}),
		runSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_seconds",
			Help:      "Wall time of a full analysis run",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 900, 1800},
		}),
	}
}

// ContentOutcome maps analyzer metrics to an outcome label
func ContentOutcome(m content.Metrics) string {
	switch m.Method {
	case content.MethodRejected:
		return OutcomeRejected
	case content.MethodTreeSitter:
		return OutcomeTreeSitter
	default:
		return OutcomeFallback
	}
}

// ObserveContent records one analyzed file
func (r *Registry) ObserveContent(m content.Metrics, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.files.WithLabelValues(ContentOutcome(m)).Inc()
	if m.TimedOut {
		r.timeouts.Inc()
	}
	r.contentSeconds.Observe(elapsed.Seconds())
}

// ObserveSkipped records a file that got no content metrics. A fetch that
// ran out of its per-file budget also counts as a timeout.
func (r *Registry) ObserveSkipped(outcome string) {
	if r == nil {
		return
	}
	r.files.WithLabelValues(outcome).Inc()
	if outcome == OutcomeTimeout {
		r.timeouts.Inc()
	}
}

// ObserveCache records a cache lookup for table
func (r *Registry) ObserveCache(table string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(table, result).Inc()
}

// ObserveChanges records the disposition counters of one pass
func (r *Registry) ObserveChanges(commits, processed, excluded, anomalous int) {
	if r == nil {
		return
	}
	r.commits.Add(float64(commits))
	r.changes.WithLabelValues(ChangeProcessed).Add(float64(processed))
	r.changes.WithLabelValues(ChangeExcluded).Add(float64(excluded))
	r.changes.WithLabelValues(ChangeAnomalous).Add(float64(anomalous))
}

// ObserveRun records the duration of a run
func (r *Registry) ObserveRun(elapsed time.Duration) {
	if r == nil {
		return
	}
	r.runSeconds.Observe(elapsed.Seconds())
}
