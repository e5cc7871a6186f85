package pipeline

import (
	"context"
	"time"

	"github.com/rohankatakam/changerisk/internal/classify"
	"github.com/rohankatakam/changerisk/internal/content"
	"github.com/rohankatakam/changerisk/internal/errors"
	"github.com/rohankatakam/changerisk/internal/history"
	"github.com/rohankatakam/changerisk/internal/metrics"
	"github.com/sirupsen/logrus"
)

// contentCandidates returns, in path order, the files worth fetching along
// with the ref to fetch each at
func contentCandidates(snap *history.Snapshot) ([]string, map[string]string) {
	refs := snap.LatestRefs()
	var paths []string
	for _, path := range history.SortedPaths(refs) {
		if !classify.ShouldFetchContent(path) {
			continue
		}
		if classify.IsExcludedFromRisk(classify.Classify(classify.BaseName(path))) {
			continue
		}
		paths = append(paths, path)
	}
	return paths, refs
}

// analyzeContent fetches and analyzes each candidate under the per-file and
// total budgets. Files that are skipped or unavailable are absent from the
// returned map and get estimate-only rows.
func (r *Runner) analyzeContent(ctx context.Context, snap *history.Snapshot, budgets Budgets, stats *ContentStats) map[string]content.Metrics {
	if r.deps.Content == nil {
		return nil
	}
	log := r.deps.Logger

	paths, refs := contentCandidates(snap)
	stats.Candidates = len(paths)
	out := make(map[string]content.Metrics, len(paths))

	deadline := r.now().Add(budgets.Total)
	log.WithFields(logrus.Fields{
		"candidates":   len(paths),
		"per_file":     budgets.PerFile.String(),
		"total_budget": budgets.Total.String(),
	}).Info("Analyzing file content")

	for i, path := range paths {
		if ctx.Err() != nil || !r.now().Before(deadline) {
			remaining := len(paths) - i
			stats.Skipped += remaining
			for j := 0; j < remaining; j++ {
				r.deps.Metrics.ObserveSkipped(metrics.OutcomeBudget)
			}
			log.WithFields(logrus.Fields{
				"skipped": remaining,
			}).Warn("Content budget exhausted, remaining files use estimates only")
			r.progress(len(paths), len(paths), "")
			break
		}

		budget := budgets.PerFile
		if left := deadline.Sub(r.now()); left < budget {
			budget = left
		}
		m, ok := r.analyzeOne(ctx, path, refs[path], budget, stats)
		if ok {
			out[path] = m
		}
		r.progress(i+1, len(paths), path)
	}

	log.WithFields(logrus.Fields{
		"analyzed":    stats.Analyzed,
		"rejected":    stats.Rejected,
		"timed_out":   stats.TimedOut,
		"unavailable": stats.Unavailable,
		"skipped":     stats.Skipped,
	}).Info("Content analysis finished")
	return out
}

// analyzeOne handles a single file within budget. The bool is false when no
// content metrics should be recorded for it.
func (r *Runner) analyzeOne(ctx context.Context, path, ref string, budget time.Duration, stats *ContentStats) (content.Metrics, bool) {
	fileCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	start := r.now()
	text, err := r.deps.Content.FetchContent(fileCtx, ref, path)
	if err != nil {
		err = errors.ContentError(err, "fetch content").WithContext("path", path).WithContext("ref", ref)
		log := r.deps.Logger.WithError(err).WithField("path", path)
		if fileCtx.Err() != nil && ctx.Err() == nil {
			stats.TimedOut++
			r.deps.Metrics.ObserveSkipped(metrics.OutcomeTimeout)
			log.Debug("Content fetch exceeded per-file budget")
			return content.Metrics{}, false
		}
		stats.Unavailable++
		r.deps.Metrics.ObserveSkipped(metrics.OutcomeUnavailable)
		log.Debug("Content unavailable")
		return content.Metrics{}, false
	}

	m := r.deps.Analyzer.Analyze(fileCtx, classify.BaseName(path), &text)
	r.deps.Metrics.ObserveContent(m, r.now().Sub(start))

	switch {
	case m.Rejected():
		stats.Rejected++
	case m.TimedOut:
		stats.TimedOut++
		stats.Analyzed++
	default:
		stats.Analyzed++
	}
	return m, true
}

func (r *Runner) progress(done, total int, path string) {
	if r.deps.Progress != nil {
		r.deps.Progress(done, total, path)
	}
}
