//go:build !cgo

package content

import "context"

// StructuredAvailable reports whether tree-sitter extraction is compiled in
func StructuredAvailable() bool {
	return false
}

// stubExtractor is used in non-CGO builds; every file takes the fallback path
type stubExtractor struct{}

func newExtractor() extractor {
	return stubExtractor{}
}

func (stubExtractor) RawMetrics(ctx context.Context, src []byte, lang Language) (rawCounts, error) {
	return rawCounts{}, ErrNoCGO
}

func (stubExtractor) Complexity(ctx context.Context, src []byte, lang Language) (float64, error) {
	return 0, ErrNoCGO
}
