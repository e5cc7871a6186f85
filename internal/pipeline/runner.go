// Package pipeline runs one analysis: load history, consult the cache,
// analyze content under budgets, aggregate risk and persist the tables.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rohankatakam/changerisk/internal/cache"
	"github.com/rohankatakam/changerisk/internal/content"
	"github.com/rohankatakam/changerisk/internal/errors"
	"github.com/rohankatakam/changerisk/internal/history"
	"github.com/rohankatakam/changerisk/internal/metrics"
	"github.com/rohankatakam/changerisk/internal/output"
	"github.com/rohankatakam/changerisk/internal/risk"
	"github.com/rohankatakam/changerisk/internal/storage"
	"github.com/sirupsen/logrus"
)

// HistorySource produces the commit stream for a window
type HistorySource interface {
	LoadHistory(ctx context.Context, window history.Window) (*history.Snapshot, error)
}

// ContentSource returns file text at a ref. Failures are expected and
// degrade the file to estimate-only metrics.
type ContentSource interface {
	FetchContent(ctx context.Context, ref, path string) (string, error)
}

// Budgets bound content analysis. PerFile covers fetch plus analysis;
// once Total is spent the remaining files get no content metrics.
type Budgets struct {
	PerFile time.Duration
	Total   time.Duration
}

// Defaults for Budgets
const (
	DefaultPerFileBudget = 10 * time.Second
	DefaultTotalBudget   = 30 * time.Minute
)

// DefaultBudgets returns the standard content budgets
func DefaultBudgets() Budgets {
	return Budgets{PerFile: DefaultPerFileBudget, Total: DefaultTotalBudget}
}

// Options controls one run. It is a value; the runner never mutates it.
type Options struct {
	Window  history.Window
	Budgets Budgets
	Risk    risk.Options
	// Force skips the cache lookup; results are still marked cached
	Force bool
}

// ProgressFunc is called after each content candidate is handled
type ProgressFunc func(done, total int, path string)

// Dependencies wires a Runner. Only History is required.
type Dependencies struct {
	History  HistorySource
	Content  ContentSource
	Analyzer *content.Analyzer
	Cache    *cache.Cache
	Writer   *output.Writer
	Store    storage.Store
	Metrics  *metrics.Registry
	Logger   *logrus.Logger
	Progress ProgressFunc
}

// ContentStats counts what happened to content candidates
type ContentStats struct {
	Candidates  int
	Analyzed    int
	Rejected    int
	TimedOut    int
	Unavailable int
	Skipped     int // total budget exhausted
}

// Result is the outcome of a run
type Result struct {
	Report       *risk.Report
	Snapshot     *history.Snapshot
	SnapshotHash string
	SnapshotID   string
	// Cached is true when the report was loaded instead of computed
	Cached  bool
	Outputs map[string]string // table name -> output ref
	Content ContentStats
	// Warnings are non-fatal failures (cache or storage writes)
	Warnings []string
	Duration time.Duration
}

// Runner coordinates a single analysis pass
type Runner struct {
	deps Dependencies
	now  func() time.Time
}

// NewRunner creates a runner
func NewRunner(deps Dependencies) (*Runner, error) {
	if deps.History == nil {
		return nil, errors.ConfigError("pipeline requires a history source")
	}
	if deps.Content != nil && deps.Analyzer == nil {
		deps.Analyzer = content.NewAnalyzer(content.DefaultOptions())
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	return &Runner{deps: deps, now: time.Now}, nil
}

// Run performs one analysis
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	start := r.now()
	log := r.deps.Logger

	if opts.Budgets.PerFile <= 0 {
		opts.Budgets.PerFile = DefaultPerFileBudget
	}
	if opts.Budgets.Total <= 0 {
		opts.Budgets.Total = DefaultTotalBudget
	}
	if opts.Risk.Now.IsZero() {
		opts.Risk.Now = start
	}

	log.WithFields(logrus.Fields{
		"from": opts.Window.From.Format(time.RFC3339),
		"to":   opts.Window.To.Format(time.RFC3339),
	}).Info("Loading history")

	snap, err := r.deps.History.LoadHistory(ctx, opts.Window)
	if err != nil {
		return nil, errors.SourceError(err, "load history")
	}

	state := cache.StateFromSnapshot(snap)
	result := &Result{
		Snapshot:     snap,
		SnapshotHash: cache.SnapshotHash(state),
		Outputs:      map[string]string{},
	}
	log.WithFields(logrus.Fields{
		"source":  snap.Source.String(),
		"commits": len(snap.Commits),
		"changes": snap.ChangeCount(),
		"hash":    result.SnapshotHash,
	}).Info("History loaded")

	if !opts.Force {
		if report, refs, ok := r.loadCached(ctx, state); ok {
			result.Report = report
			result.Cached = true
			result.Outputs = refs
			result.Duration = r.now().Sub(start)
			log.Info("Analysis is up to date, using cached tables")
			return result, nil
		}
	}

	metricsByPath := r.analyzeContent(ctx, snap, opts.Budgets, &result.Content)

	report := risk.Aggregate(snap.Commits, opts.Risk, metricsByPath)
	result.Report = report
	s := report.Summary
	r.deps.Metrics.ObserveChanges(s.Commits, s.ProcessedChanges, s.ExcludedChanges, s.AnomalousChanges)

	if err := r.persist(ctx, snap, state, result); err != nil {
		return nil, err
	}

	result.Duration = r.now().Sub(start)
	r.deps.Metrics.ObserveRun(result.Duration)
	log.WithFields(logrus.Fields{
		"files":      len(report.Files),
		"developers": len(report.Developers),
		"duration":   result.Duration.String(),
	}).Info("Analysis complete")

	return result, nil
}

// persist writes tables, stores the run and marks the cache. Table write
// failures are fatal; storage and cache failures become warnings.
func (r *Runner) persist(ctx context.Context, snap *history.Snapshot, state cache.SnapshotState, result *Result) error {
	log := r.deps.Logger
	report := result.Report

	if r.deps.Writer != nil {
		written, err := r.deps.Writer.Write(report)
		if err != nil {
			return errors.OutputError(err, "write tables")
		}
		for table, path := range written {
			result.Outputs[table] = path
		}
	}

	if r.deps.Store != nil {
		id, err := r.deps.Store.SaveSnapshot(ctx, snap)
		if err != nil {
			result.warn(log, "save snapshot", err)
		} else {
			result.SnapshotID = id
		}

		ref, err := r.deps.Store.SaveRun(ctx, snap.Source, result.SnapshotHash, report)
		if err != nil {
			result.warn(log, "save run", err)
		} else {
			// a stored run carries both tables losslessly
			result.Outputs[output.TableFileHotspots] = ref
			result.Outputs[output.TableBusFactor] = ref
		}
	}

	if r.deps.Cache == nil {
		return nil
	}
	for _, table := range cachedTables {
		ref, ok := result.Outputs[table]
		if !ok {
			continue
		}
		if err := r.deps.Cache.MarkCached(ctx, table, ref, state); err != nil {
			result.warn(log, "mark "+table+" cached", err)
		}
	}
	return nil
}

func (res *Result) warn(log *logrus.Logger, what string, err error) {
	msg := fmt.Sprintf("%s: %v", what, err)
	res.Warnings = append(res.Warnings, msg)
	log.WithError(err).Warn("Failed to " + what)
}
