package content

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	raw      rawCounts
	rawErr   error
	cx       float64
	cxErr    error
	delay    time.Duration
	panicMsg string
	calls    atomic.Int32
}

func (f *fakeExtractor) RawMetrics(ctx context.Context, src []byte, lang Language) (rawCounts, error) {
	f.calls.Add(1)
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.raw, f.rawErr
}

func (f *fakeExtractor) Complexity(ctx context.Context, src []byte, lang Language) (float64, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.cx, f.cxErr
}

func newTestAnalyzer(ext extractor, opts Options) *Analyzer {
	a := NewAnalyzer(opts)
	a.extractor = ext
	return a
}

const goSnippet = "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n"

func TestAnalyze_RejectedReturnsZeroMetrics(t *testing.T) {
	a := newTestAnalyzer(&fakeExtractor{}, Options{})

	m := a.Analyze(context.Background(), "blob.go", ptr("GIF89a\x00\x01\x02"))
	assert.True(t, m.Rejected())
	assert.Equal(t, RejectNulByte, m.Rejection)
	assert.Equal(t, 0, m.LOC)
	assert.Equal(t, 0.0, m.Complexity)

	m = a.Analyze(context.Background(), "missing.go", nil)
	assert.Equal(t, RejectEmpty, m.Rejection)
}

func TestAnalyze_UnsupportedLanguageUsesFallback(t *testing.T) {
	ext := &fakeExtractor{}
	a := newTestAnalyzer(ext, Options{})

	m := a.Analyze(context.Background(), "deploy.sql", ptr("-- create\nSELECT 1;\n"))
	assert.Equal(t, MethodFallback, m.Method)
	assert.Equal(t, 2, m.LOC)
	assert.Equal(t, 1, m.Comments)
	assert.Equal(t, 1.0, m.Complexity)
	assert.Equal(t, int32(0), ext.calls.Load(), "extractor should not run for unsupported languages")
}

func TestAnalyze_StructuredResult(t *testing.T) {
	ext := &fakeExtractor{raw: rawCounts{LOC: 5, SLOC: 4, LLOC: 3, Blank: 1}, cx: 2.5}
	a := newTestAnalyzer(ext, Options{})

	m := a.Analyze(context.Background(), "main.go", ptr(goSnippet))
	assert.Equal(t, MethodTreeSitter, m.Method)
	assert.Equal(t, MethodTreeSitter, m.ComplexityMethod)
	assert.Equal(t, 3, m.LLOC)
	assert.Equal(t, 2.5, m.Complexity)
	assert.False(t, m.TimedOut)
}

func TestAnalyze_TimeoutAbandonsWorker(t *testing.T) {
	ext := &fakeExtractor{delay: 500 * time.Millisecond}
	a := newTestAnalyzer(ext, Options{MetricsBudget: 20 * time.Millisecond, ComplexityBudget: 20 * time.Millisecond})

	start := time.Now()
	m := a.Analyze(context.Background(), "main.go", ptr(goSnippet))
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 400*time.Millisecond)
	assert.True(t, m.TimedOut)
	assert.Equal(t, MethodFallback, m.Method)
	assert.Equal(t, MethodFallback, m.ComplexityMethod)
	assert.Equal(t, 5, m.LOC)
	assert.Equal(t, 1.0, m.Complexity)
}

func TestAnalyze_ExtractorErrorsFallBack(t *testing.T) {
	ext := &fakeExtractor{rawErr: errors.New("boom"), cxErr: ErrSyntax}
	a := newTestAnalyzer(ext, Options{})

	m := a.Analyze(context.Background(), "main.go", ptr(goSnippet))
	assert.Equal(t, MethodFallback, m.Method)
	assert.Equal(t, 1.0, m.Complexity)
	assert.False(t, m.TimedOut)
}

func TestAnalyze_ExtractorPanicIsContained(t *testing.T) {
	ext := &fakeExtractor{panicMsg: "grammar exploded", cx: 4}
	a := newTestAnalyzer(ext, Options{})

	var m Metrics
	require.NotPanics(t, func() {
		m = a.Analyze(context.Background(), "main.go", ptr(goSnippet))
	})
	assert.Equal(t, MethodFallback, m.Method)
	assert.Equal(t, 4.0, m.Complexity)
}

func TestAnalyze_ComplexitySizeCap(t *testing.T) {
	ext := &fakeExtractor{raw: rawCounts{LOC: 5, SLOC: 4}, cx: 9}
	a := newTestAnalyzer(ext, Options{MaxComplexityBytes: 10})

	m := a.Analyze(context.Background(), "main.go", ptr(goSnippet))
	assert.Equal(t, MethodTreeSitter, m.Method)
	assert.Equal(t, MethodFallback, m.ComplexityMethod)
	assert.Equal(t, 1.0, m.Complexity)
}

func TestRunWithDeadline(t *testing.T) {
	v, err := runWithDeadline(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = runWithDeadline(context.Background(), 10*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, ErrDeadlineExceeded)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = runWithDeadline(ctx, time.Second, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, isExpected(err))
}

func TestLanguageFromFilename(t *testing.T) {
	lang, ok := LanguageFromFilename("src/Service.CS")
	assert.True(t, ok)
	assert.Equal(t, LangCSharp, lang)

	_, ok = LanguageFromFilename("query.sql")
	assert.False(t, ok)
}
