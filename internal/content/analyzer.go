package content

import (
	"context"
	"log/slog"
	"time"
)

// Defaults for Options
const (
	DefaultMetricsBudget      = 5 * time.Second
	DefaultComplexityBudget   = 3 * time.Second
	DefaultMaxMetricsBytes    = 1_000_000
	DefaultMaxComplexityBytes = 500_000
)

// Options bounds the work done per file
type Options struct {
	MetricsBudget      time.Duration
	ComplexityBudget   time.Duration
	MaxMetricsBytes    int
	MaxComplexityBytes int
}

// DefaultOptions returns the standard budgets and size caps
func DefaultOptions() Options {
	return Options{
		MetricsBudget:      DefaultMetricsBudget,
		ComplexityBudget:   DefaultComplexityBudget,
		MaxMetricsBytes:    DefaultMaxMetricsBytes,
		MaxComplexityBytes: DefaultMaxComplexityBytes,
	}
}

type extractor interface {
	RawMetrics(ctx context.Context, src []byte, lang Language) (rawCounts, error)
	Complexity(ctx context.Context, src []byte, lang Language) (float64, error)
}

// Analyzer computes Metrics for file content. It is safe for concurrent use.
type Analyzer struct {
	opts      Options
	extractor extractor
	logger    *slog.Logger
}

// NewAnalyzer creates an analyzer; zero option fields take defaults
func NewAnalyzer(opts Options) *Analyzer {
	def := DefaultOptions()
	if opts.MetricsBudget <= 0 {
		opts.MetricsBudget = def.MetricsBudget
	}
	if opts.ComplexityBudget <= 0 {
		opts.ComplexityBudget = def.ComplexityBudget
	}
	if opts.MaxMetricsBytes <= 0 {
		opts.MaxMetricsBytes = def.MaxMetricsBytes
	}
	if opts.MaxComplexityBytes <= 0 {
		opts.MaxComplexityBytes = def.MaxComplexityBytes
	}

	return &Analyzer{
		opts:      opts,
		extractor: newExtractor(),
		logger:    slog.Default().With("component", "content"),
	}
}

// Options returns the analyzer's effective options
func (a *Analyzer) Options() Options {
	return a.opts
}

// Analyze returns metrics for text, which may be nil when content was not
// available. It never panics and returns within the configured budgets.
func (a *Analyzer) Analyze(ctx context.Context, filename string, text *string) Metrics {
	if rej := CheckAdmissible(text, a.opts.MaxMetricsBytes); rej != Admissible {
		return Metrics{Method: MethodRejected, ComplexityMethod: MethodRejected, Rejection: rej}
	}

	src := []byte(*text)
	fallback := Fallback(*text)
	m := fallback

	lang, supported := LanguageFromFilename(filename)
	if !supported {
		return m
	}

	raw, err := runWithDeadline(ctx, a.opts.MetricsBudget, func(ctx context.Context) (rawCounts, error) {
		return a.extractor.RawMetrics(ctx, src, lang)
	})
	if err == nil {
		raw.apply(&m)
		m.Method = MethodTreeSitter
	} else {
		a.absorb(err, filename, "raw metrics")
		m.TimedOut = m.TimedOut || err == ErrDeadlineExceeded
	}

	if len(src) > a.opts.MaxComplexityBytes {
		m.Complexity = fallback.Complexity
		m.ComplexityMethod = MethodFallback
		return m
	}

	cx, err := runWithDeadline(ctx, a.opts.ComplexityBudget, func(ctx context.Context) (float64, error) {
		return a.extractor.Complexity(ctx, src, lang)
	})
	if err == nil {
		m.Complexity = cx
		m.ComplexityMethod = MethodTreeSitter
	} else {
		a.absorb(err, filename, "complexity")
		m.TimedOut = m.TimedOut || err == ErrDeadlineExceeded
		m.Complexity = fallback.Complexity
		m.ComplexityMethod = MethodFallback
	}
	return m
}

// absorb logs unexpected extraction failures; expected ones are silent
func (a *Analyzer) absorb(err error, filename, stage string) {
	if isExpected(err) {
		a.logger.Debug("extraction fell back", "file", filename, "stage", stage, "error", err)
		return
	}
	a.logger.Warn("extraction failed, using fallback", "file", filename, "stage", stage, "error", err)
}
