package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rohankatakam/changerisk/internal/cache"
	"github.com/rohankatakam/changerisk/internal/content"
	apperrors "github.com/rohankatakam/changerisk/internal/errors"
	"github.com/rohankatakam/changerisk/internal/history"
	"github.com/rohankatakam/changerisk/internal/metrics"
	"github.com/rohankatakam/changerisk/internal/output"
	"github.com/rohankatakam/changerisk/internal/risk"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	day0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	day1 = time.Date(2024, 3, 8, 10, 0, 0, 0, time.UTC)
	now  = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
)

const goSource = `package billing

func Total(items []int) int {
	sum := 0
	for _, v := range items {
		if v > 0 {
			sum += v
		}
	}
	return sum
}
`

type fakeHistory struct {
	snap  *history.Snapshot
	err   error
	calls int
}

func (f *fakeHistory) LoadHistory(_ context.Context, window history.Window) (*history.Snapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	s := *f.snap
	s.Window = window
	return &s, nil
}

type fakeContent struct {
	mu      sync.Mutex
	files   map[string]string
	fetched []string
	// onFetch runs before each fetch returns
	onFetch func()
	// hang lists paths whose fetch waits for the context to end
	hang map[string]bool
}

func (f *fakeContent) FetchContent(ctx context.Context, ref, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, ref+":"+path)
	if f.onFetch != nil {
		f.onFetch()
	}
	if f.hang[path] {
		<-ctx.Done()
		return "", ctx.Err()
	}
	text, ok := f.files[path]
	if !ok {
		return "", errors.New("not found")
	}
	return text, nil
}

func sampleSnapshot() *history.Snapshot {
	alice := history.Author{Name: "Alice", Email: "alice@example.com"}
	bob := history.Author{Name: "Bob", Email: "bob@example.com"}
	return &history.Snapshot{
		Source: history.SourceID{Platform: "git", Repository: "billing"},
		Commits: []history.CommitChanges{
			{
				Commit: history.Commit{ID: "c1", Author: alice, Timestamp: day0},
				Changes: []history.FileChange{
					{Path: "src/billing/total.go", Kind: history.KindAdd, CommitID: "c1"},
					{Path: "src/billing/tax.go", Kind: history.KindAdd, CommitID: "c1"},
					{Path: "src/billing/missing.go", Kind: history.KindAdd, CommitID: "c1"},
				},
			},
			{
				Commit: history.Commit{ID: "c2", Author: bob, Timestamp: day1},
				Changes: []history.FileChange{
					{Path: "src/billing/total.go", Kind: history.KindEdit, CommitID: "c2"},
				},
			},
		},
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testOptions() Options {
	return Options{
		Window:  history.Window{From: day0.AddDate(0, 0, -30), To: now},
		Budgets: DefaultBudgets(),
		Risk:    risk.DefaultOptions(now),
	}
}

func newTestRunner(t *testing.T, hist HistorySource, src ContentSource, dir string, reg *metrics.Registry) *Runner {
	t.Helper()
	logger := quietLogger()

	writer, err := output.NewWriter(dir, output.FormatJSON, false)
	require.NoError(t, err)

	r, err := NewRunner(Dependencies{
		History: hist,
		Content: src,
		Cache:   cache.New(cache.NewJSONIndex(dir), nil, logger),
		Writer:  writer,
		Metrics: reg,
		Logger:  logger,
	})
	require.NoError(t, err)
	r.now = func() time.Time { return now }
	return r
}

func fileRow(t *testing.T, report *risk.Report, path string) risk.FileRow {
	t.Helper()
	for _, f := range report.Files {
		if f.Path == path {
			return f
		}
	}
	t.Fatalf("no row for %s", path)
	return risk.FileRow{}
}

func TestNewRunner_RequiresHistory(t *testing.T) {
	_, err := NewRunner(Dependencies{})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeConfig, apperrors.GetType(err))
}

func TestRunner_AnalyzesAndWrites(t *testing.T) {
	dir := t.TempDir()
	src := &fakeContent{files: map[string]string{
		"src/billing/total.go": goSource,
		"src/billing/tax.go":   "package billing\n\nconst Rate = 0.2\n",
	}}
	var progressed []string
	r := newTestRunner(t, &fakeHistory{snap: sampleSnapshot()}, src, dir, nil)
	r.deps.Progress = func(done, total int, path string) {
		assert.Equal(t, 3, total)
		progressed = append(progressed, path)
	}

	res, err := r.Run(context.Background(), testOptions())
	require.NoError(t, err)

	assert.False(t, res.Cached)
	assert.NotEmpty(t, res.SnapshotHash)
	assert.Equal(t, ContentStats{Candidates: 3, Analyzed: 2, Unavailable: 1}, res.Content)
	assert.Equal(t, []string{"src/billing/missing.go", "src/billing/tax.go", "src/billing/total.go"}, progressed)

	// content is fetched at the latest ref of each file
	assert.ElementsMatch(t, []string{"c1:src/billing/missing.go", "c1:src/billing/tax.go", "c2:src/billing/total.go"}, src.fetched)

	total := fileRow(t, res.Report, "src/billing/total.go")
	assert.Equal(t, 2, total.DeveloperCount)
	assert.Greater(t, total.LOC, 0)
	assert.NotEqual(t, content.MethodNone, total.ContentMethod)

	missing := fileRow(t, res.Report, "src/billing/missing.go")
	assert.Equal(t, 0, missing.LOC)
	assert.Equal(t, content.MethodNone, missing.ContentMethod)

	assert.FileExists(t, res.Outputs[output.TableFileHotspots])
	assert.FileExists(t, res.Outputs[output.TableBusFactor])
	assert.Empty(t, res.Warnings)
}

func TestRunner_CachedSecondRunDoesNotRefetch(t *testing.T) {
	dir := t.TempDir()
	hist := &fakeHistory{snap: sampleSnapshot()}
	src := &fakeContent{files: map[string]string{"src/billing/total.go": goSource}}
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	r := newTestRunner(t, hist, src, dir, reg)

	first, err := r.Run(context.Background(), testOptions())
	require.NoError(t, err)
	require.False(t, first.Cached)
	fetches := len(src.fetched)
	require.Equal(t, 3, fetches)

	second, err := r.Run(context.Background(), testOptions())
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, fetches, len(src.fetched), "cached run must not fetch content")
	assert.Equal(t, 2, hist.calls)
	assert.Equal(t, first.SnapshotHash, second.SnapshotHash)
	assert.Equal(t, first.Report.Files, second.Report.Files)
	assert.Equal(t, first.Report.Developers, second.Report.Developers)
	assert.Equal(t, first.Report.Summary.CriticalFiles, second.Report.Summary.CriticalFiles)

	// a forced run recomputes
	opts := testOptions()
	opts.Force = true
	third, err := r.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, 2*fetches, len(src.fetched))
}

func TestRunner_ChangedHistoryMissesCache(t *testing.T) {
	dir := t.TempDir()
	hist := &fakeHistory{snap: sampleSnapshot()}
	src := &fakeContent{files: map[string]string{}}
	r := newTestRunner(t, hist, src, dir, nil)

	_, err := r.Run(context.Background(), testOptions())
	require.NoError(t, err)

	snap := sampleSnapshot()
	snap.Commits = snap.Commits[:1]
	hist.snap = snap

	res, err := r.Run(context.Background(), testOptions())
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 1, res.Report.Summary.Commits)
}

func TestRunner_TotalBudgetExhaustion(t *testing.T) {
	dir := t.TempDir()
	clock := now
	src := &fakeContent{
		files: map[string]string{
			"src/billing/total.go":   goSource,
			"src/billing/tax.go":     goSource,
			"src/billing/missing.go": goSource,
		},
		onFetch: func() { clock = clock.Add(time.Minute) },
	}
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	r := newTestRunner(t, &fakeHistory{snap: sampleSnapshot()}, src, dir, reg)
	r.now = func() time.Time { return clock }

	opts := testOptions()
	opts.Budgets = Budgets{PerFile: 10 * time.Second, Total: 90 * time.Second}

	res, err := r.Run(context.Background(), opts)
	require.NoError(t, err)

	// two fetches fit before the clock passes the 90s budget
	assert.Len(t, src.fetched, 2)
	assert.Equal(t, 3, res.Content.Candidates)
	assert.Equal(t, 2, res.Content.Analyzed)
	assert.Equal(t, 1, res.Content.Skipped)

	skipped := fileRow(t, res.Report, "src/billing/total.go")
	assert.Equal(t, content.MethodNone, skipped.ContentMethod)
	assert.Equal(t, 0, skipped.LOC)
	assert.Greater(t, skipped.SizeEstimate, 0, "estimate-only rows keep the size proxy")
}

func TestRunner_PerFileFetchTimeout(t *testing.T) {
	reg := prometheus.NewRegistry()
	src := &fakeContent{
		files: map[string]string{"src/billing/total.go": goSource},
		hang:  map[string]bool{"src/billing/tax.go": true},
	}
	r := newTestRunner(t, &fakeHistory{snap: sampleSnapshot()}, src, t.TempDir(), metrics.NewRegistry(reg))

	opts := testOptions()
	opts.Budgets = Budgets{PerFile: 250 * time.Millisecond, Total: time.Minute}

	res, err := r.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, ContentStats{Candidates: 3, Analyzed: 1, TimedOut: 1, Unavailable: 1}, res.Content)

	assert.Equal(t, 1.0, counterValue(t, reg, "changerisk_content_files_total", metrics.OutcomeTimeout))
	assert.Equal(t, 1.0, counterValue(t, reg, "changerisk_content_files_total", metrics.OutcomeUnavailable))
	assert.Equal(t, 1.0, counterValue(t, reg, "changerisk_content_timeouts_total", ""))

	tax := fileRow(t, res.Report, "src/billing/tax.go")
	assert.Equal(t, content.MethodNone, tax.ContentMethod)
}

// counterValue returns the counter named name whose outcome label is
// outcome, or the unlabeled counter when outcome is empty
func counterValue(t *testing.T, reg *prometheus.Registry, name, outcome string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			got := ""
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "outcome" {
					got = lp.GetValue()
				}
			}
			if got == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestRunner_SourceErrorPropagates(t *testing.T) {
	r := newTestRunner(t, &fakeHistory{err: errors.New("boom")}, nil, t.TempDir(), nil)

	_, err := r.Run(context.Background(), testOptions())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeSource, apperrors.GetType(err))
	assert.Contains(t, err.Error(), "boom")
}

func TestRunner_WithoutContentSource(t *testing.T) {
	r := newTestRunner(t, &fakeHistory{snap: sampleSnapshot()}, nil, t.TempDir(), nil)

	res, err := r.Run(context.Background(), testOptions())
	require.NoError(t, err)
	assert.Equal(t, ContentStats{}, res.Content)
	for _, f := range res.Report.Files {
		assert.Equal(t, content.MethodNone, f.ContentMethod, f.Path)
	}
}

func TestRunner_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewRegistry(reg)
	src := &fakeContent{files: map[string]string{"src/billing/total.go": goSource}}
	r := newTestRunner(t, &fakeHistory{snap: sampleSnapshot()}, src, t.TempDir(), m)

	_, err := r.Run(context.Background(), testOptions())
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "changerisk_history_commits_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
