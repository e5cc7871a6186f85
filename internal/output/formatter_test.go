package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/rohankatakam/changerisk/internal/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestQuietFormatter(t *testing.T) {
	tests := []struct {
		name     string
		summary  risk.Summary
		expected string
	}{
		{
			name:     "no risk",
			summary:  risk.Summary{TotalFiles: 3, TotalDevelopers: 2},
			expected: "OK: 3 files, 2 developers, no critical files\n",
		},
		{
			name:     "critical files",
			summary:  risk.Summary{TotalFiles: 3, CriticalFiles: 2, SingleDeveloperFiles: 1, HighRiskDevelopers: 1},
			expected: "RISK: 3 files, 2 critical, 1 single-developer, 1 key persons\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, (&QuietFormatter{}).Format(&risk.Report{Summary: tt.summary}, &buf))
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestStandardFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintSummary(&buf, sampleReport(), 1))
	out := buf.String()

	assert.Contains(t, out, "Total files analyzed: 2")
	assert.Contains(t, out, "Top 1 Riskiest Files")
	assert.Contains(t, out, "InvoiceService.cs")
	assert.NotContains(t, out, "tool.py")
	assert.Contains(t, out, "Single-Developer Files (Highest Risk):")
	assert.Contains(t, out, "InvoiceService.cs - Developer: alice@example.com")
	assert.Contains(t, out, "Key Person Dependencies:")
	assert.Contains(t, out, "Alice: 2 files (100.0% of codebase)")
	// identity stands in for a missing display name
	assert.Contains(t, out, "bob@example.com: 1 files (50.0% of codebase)")
	assert.NotContains(t, out, "Language Complexity")
}

func TestExplainFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(VerbosityExplain).Format(sampleReport(), &buf))
	out := buf.String()

	assert.Contains(t, out, "Generated: 2024-06-01T12:00:00Z")
	assert.Contains(t, out, "Top 2 Riskiest Files")
	assert.Contains(t, out, "Language Complexity")
	assert.Contains(t, out, "csharp")
}

func TestStandardFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(VerbosityStandard).Format(&risk.Report{}, &buf))
	assert.Contains(t, buf.String(), "Total files analyzed: 0")
	assert.NotContains(t, buf.String(), "Riskiest")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	long := strings.Repeat("x", 50)
	assert.Len(t, truncate(long, 40), 40)
	assert.True(t, strings.HasSuffix(truncate(long, 40), "..."))
}

func TestGetDefaultVerbosity(t *testing.T) {
	t.Setenv("CHANGERISK_QUIET", "")
	assert.Equal(t, VerbosityStandard, GetDefaultVerbosity())
	t.Setenv("CHANGERISK_QUIET", "1")
	assert.Equal(t, VerbosityQuiet, GetDefaultVerbosity())
}
