package output

import (
	"fmt"
	"io"

	"github.com/rohankatakam/changerisk/internal/risk"
)

// QuietFormatter outputs a one-line summary (for hooks and CI logs)
type QuietFormatter struct{}

func (f *QuietFormatter) Format(report *risk.Report, w io.Writer) error {
	s := report.Summary
	if s.CriticalFiles == 0 && s.HighRiskDevelopers == 0 {
		_, err := fmt.Fprintf(w, "OK: %d files, %d developers, no critical files\n", s.TotalFiles, s.TotalDevelopers)
		return err
	}

	_, err := fmt.Fprintf(w, "RISK: %d files, %d critical, %d single-developer, %d key persons\n",
		s.TotalFiles, s.CriticalFiles, s.SingleDeveloperFiles, s.HighRiskDevelopers)
	return err
}
