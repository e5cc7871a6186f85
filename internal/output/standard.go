package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/rohankatakam/changerisk/internal/risk"
)

var (
	headerColor = color.New(color.Bold, color.FgCyan)
	labelColor  = color.New(color.FgWhite)
	warnColor   = color.New(color.FgYellow)
)

const rule = "------------------------------------------------------------"

// StandardFormatter lists the riskiest files and every developer (default)
type StandardFormatter struct {
	TopN int
}

func (f *StandardFormatter) Format(report *risk.Report, w io.Writer) error {
	topN := f.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	writeOverview(w, report)
	writeTopFiles(w, report.Files, topN)
	writeDevelopers(w, report.Developers, len(report.Developers))
	writeInsights(w, report)
	return nil
}

func writeOverview(w io.Writer, report *risk.Report) {
	s := report.Summary
	headerColor.Fprintln(w, "FILE HOTSPOTS")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%s %d\n", labelColor.Sprint("Total files analyzed:"), s.TotalFiles)
	fmt.Fprintf(w, "%s %d\n", labelColor.Sprint("Critical files:"), s.CriticalFiles)
	fmt.Fprintf(w, "%s %d\n", labelColor.Sprint("High risk files (bus factor >= 3.0):"), s.HighRiskFiles)
	fmt.Fprintf(w, "%s %d\n", labelColor.Sprint("Developers analyzed:"), s.TotalDevelopers)
	fmt.Fprintf(w, "%s %d\n", labelColor.Sprint("High risk developers (risk >= 3.0):"), s.HighRiskDevelopers)
	fmt.Fprintln(w)
}

func writeTopFiles(w io.Writer, files []risk.FileRow, topN int) {
	if len(files) == 0 {
		return
	}
	if len(files) < topN {
		topN = len(files)
	}

	headerColor.Fprintf(w, "Top %d Riskiest Files\n", topN)
	fmt.Fprintf(w, "%-40s %8s %8s %5s %-9s %s\n", "FILE", "BUS", "HOTSPOT", "DEVS", "CATEGORY", "CRITICAL")
	for _, r := range files[:topN] {
		critical := ""
		if r.IsCritical {
			critical = "yes"
		}
		fmt.Fprintf(w, "%-40s %8.2f %8.2f %5d %s %s\n",
			truncate(r.Name, 40),
			r.BusFactorRisk,
			r.HotspotScore,
			r.DeveloperCount,
			categoryColor(r.RiskCategory).Sprintf("%-9s", r.RiskCategory),
			critical,
		)
	}
	fmt.Fprintln(w)
}

func writeDevelopers(w io.Writer, devs []risk.DeveloperRow, limit int) {
	if len(devs) == 0 {
		return
	}
	if len(devs) < limit {
		limit = len(devs)
	}

	headerColor.Fprintln(w, "Developer Risk Summary")
	fmt.Fprintf(w, "%-32s %6s %9s %6s %s\n", "DEVELOPER", "FILES", "EXCLUSIVE", "RISK", "LEVEL")
	for _, d := range devs[:limit] {
		fmt.Fprintf(w, "%-32s %6d %9d %6.2f %s\n",
			truncate(displayName(d), 32),
			d.FilesOwned,
			d.ExclusiveFiles,
			d.BusFactorRisk,
			levelColor(d.RiskLevel).Sprint(d.RiskLevel),
		)
	}
	fmt.Fprintln(w)
}

func writeInsights(w io.Writer, report *risk.Report) {
	if len(report.Files) == 0 {
		return
	}

	headerColor.Fprintln(w, "BUS FACTOR & HOTSPOT INSIGHTS")
	fmt.Fprintln(w, rule)

	veryHigh := 0
	var singleDev []risk.FileRow
	for _, r := range report.Files {
		if r.BusFactorRisk >= 4 {
			veryHigh++
		}
		if r.DeveloperCount == 1 {
			singleDev = append(singleDev, r)
		}
	}
	fmt.Fprintf(w, "  - %d critical files identified\n", report.Summary.CriticalFiles)
	fmt.Fprintf(w, "  - %d files maintained by only one developer\n", len(singleDev))
	fmt.Fprintf(w, "  - %d files with very high bus factor risk\n", veryHigh)

	if len(singleDev) > 0 {
		fmt.Fprintln(w)
		warnColor.Fprintln(w, "Single-Developer Files (Highest Risk):")
		for i, r := range singleDev {
			if i == 5 {
				fmt.Fprintf(w, "    ... and %d more\n", len(singleDev)-5)
				break
			}
			fmt.Fprintf(w, "    %s - Developer: %s\n", r.Name, strings.Join(r.Developers, ", "))
		}
	}

	var keyPersons []risk.DeveloperRow
	for _, d := range report.Developers {
		if d.BusFactorRisk >= 3 {
			keyPersons = append(keyPersons, d)
		}
	}
	if len(keyPersons) > 0 {
		fmt.Fprintln(w)
		warnColor.Fprintln(w, "Key Person Dependencies:")
		for _, d := range keyPersons {
			fmt.Fprintf(w, "    %s: %d files (%.1f%% of codebase)\n", displayName(d), d.FilesOwned, d.OwnershipPercentage)
		}
	}
	fmt.Fprintln(w)
}

func displayName(d risk.DeveloperRow) string {
	if d.DisplayName != "" {
		return d.DisplayName
	}
	return d.Identity
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func categoryColor(category string) *color.Color {
	switch category {
	case risk.CategoryVeryHigh:
		return color.New(color.FgRed, color.Bold)
	case risk.CategoryHigh:
		return color.New(color.FgRed)
	case risk.CategoryVeryLow, risk.CategoryLow:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgYellow)
	}
}

func levelColor(level string) *color.Color {
	switch level {
	case risk.LevelCritical:
		return color.New(color.FgRed, color.Bold)
	case risk.LevelHigh:
		return color.New(color.FgRed)
	case risk.LevelMinimal, risk.LevelLow:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgYellow)
	}
}
