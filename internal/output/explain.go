package output

import (
	"fmt"
	"io"
	"time"

	"github.com/rohankatakam/changerisk/internal/risk"
)

// ExplainFormatter adds pass counters and the language table to the
// standard view, and lists every file
type ExplainFormatter struct {
	TopN int
}

func (f *ExplainFormatter) Format(report *risk.Report, w io.Writer) error {
	s := report.Summary
	headerColor.Fprintln(w, "ANALYSIS PASS")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Generated: %s\n", report.GeneratedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "Commits: %d (skipped %d without timestamp)\n", s.Commits, s.SkippedCommits)
	fmt.Fprintf(w, "Changes: %d processed, %d excluded, %d anomalous\n",
		s.ProcessedChanges, s.ExcludedChanges, s.AnomalousChanges)
	fmt.Fprintf(w, "Files with content metrics: %d of %d\n\n", s.FilesWithContent, s.TotalFiles)

	writeOverview(w, report)
	writeTopFiles(w, report.Files, len(report.Files))
	writeDevelopers(w, report.Developers, len(report.Developers))
	writeLanguages(w, report.Languages)
	writeInsights(w, report)
	return nil
}

func writeLanguages(w io.Writer, rows []risk.LanguageRow) {
	if len(rows) == 0 {
		return
	}

	headerColor.Fprintln(w, "Language Complexity")
	fmt.Fprintf(w, "%-16s %6s %8s %8s %8s %8s\n", "LANGUAGE", "FILES", "ANALYZED", "LOC", "AVG CC", "SCORE")
	for _, r := range rows {
		fmt.Fprintf(w, "%-16s %6d %8d %8d %8.2f %8.2f\n",
			truncate(string(r.Category), 16),
			r.UniqueFiles,
			r.AnalyzedFiles,
			r.TotalLOC,
			r.AvgComplexity,
			r.ComplexityRiskScore,
		)
	}
	fmt.Fprintln(w)
}
