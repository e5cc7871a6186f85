package output

import (
	"io"
	"os"

	"github.com/rohankatakam/changerisk/internal/risk"
)

// Formatter renders a report for a human reader
type Formatter interface {
	Format(report *risk.Report, w io.Writer) error
}

// VerbosityLevel determines output detail
type VerbosityLevel int

const (
	VerbosityQuiet    VerbosityLevel = iota // one-line summary
	VerbosityStandard                       // top tables and insights
	VerbosityExplain                        // everything, including language and pass counters
)

// DefaultTopN is how many rows the standard view lists
const DefaultTopN = 10

// NewFormatter creates the formatter for level
func NewFormatter(level VerbosityLevel) Formatter {
	switch level {
	case VerbosityQuiet:
		return &QuietFormatter{}
	case VerbosityExplain:
		return &ExplainFormatter{TopN: DefaultTopN}
	default:
		return &StandardFormatter{TopN: DefaultTopN}
	}
}

// GetDefaultVerbosity returns appropriate default based on environment
func GetDefaultVerbosity() VerbosityLevel {
	if os.Getenv("CHANGERISK_QUIET") == "1" {
		return VerbosityQuiet
	}
	return VerbosityStandard
}

// PrintSummary renders report at the standard level
func PrintSummary(w io.Writer, report *risk.Report, topN int) error {
	return (&StandardFormatter{TopN: topN}).Format(report, w)
}
