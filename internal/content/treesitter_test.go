//go:build cgo

package content

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeSitter_GoComplexity(t *testing.T) {
	source := []byte(`package main

func simple() {
	fmt.Println("hello")
}

func withIf(x int) {
	if x > 0 {
		fmt.Println("positive")
	}
}

func withAndOr(a, b bool) {
	if a && b {
		fmt.Println("both true")
	}
	if a || b {
		fmt.Println("one true")
	}
}
`)

	cx, err := treeSitterExtractor{}.Complexity(context.Background(), source, LangGo)
	require.NoError(t, err)
	// (1 + 2 + 5) / 3
	assert.InDelta(t, 8.0/3.0, cx, 0.0001)
}

func TestTreeSitter_NoFunctions(t *testing.T) {
	cx, err := treeSitterExtractor{}.Complexity(context.Background(), []byte("x = 1\ny = 2\n"), LangPython)
	require.NoError(t, err)
	assert.Equal(t, 1.0, cx)
}

func TestTreeSitter_GoRawMetrics(t *testing.T) {
	source := []byte(`package main

// greet says hi
func greet(name string) string {
	return "hi " + name // inline
}
`)

	raw, err := treeSitterExtractor{}.RawMetrics(context.Background(), source, LangGo)
	require.NoError(t, err)
	assert.Equal(t, 6, raw.LOC)
	assert.Equal(t, 1, raw.Blank)
	assert.Equal(t, 5, raw.SLOC)
	assert.Equal(t, 1, raw.Comments, "only the full-line comment counts")
	assert.Greater(t, raw.LLOC, 0)
	assert.LessOrEqual(t, raw.LLOC, raw.SLOC)
}

func TestTreeSitter_SyntaxErrorIsExpected(t *testing.T) {
	_, err := treeSitterExtractor{}.RawMetrics(context.Background(), []byte("func (( {"), LangGo)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyntax)
	assert.True(t, isExpected(err))
}

func TestAnalyze_CSharpEndToEnd(t *testing.T) {
	source := `using System;

namespace Shop
{
    // Prices orders
    public class PriceService
    {
        public decimal Total(int qty, decimal price)
        {
            if (qty <= 0 || price <= 0)
            {
                return 0;
            }
            return qty * price;
        }
    }
}
`
	a := NewAnalyzer(Options{})
	m := a.Analyze(context.Background(), "PriceService.cs", &source)

	assert.Equal(t, MethodTreeSitter, m.Method)
	assert.Equal(t, MethodTreeSitter, m.ComplexityMethod)
	assert.Equal(t, 17, m.LOC)
	assert.Equal(t, 1, m.Comments)
	// if + ||
	assert.Equal(t, 3.0, m.Complexity)
}
