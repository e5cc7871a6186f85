package risk

import (
	"math"
	"sort"

	"github.com/rohankatakam/changerisk/internal/classify"
)

// Complexity bands for the language summary
const (
	lowComplexityCeiling    = 5
	mediumComplexityCeiling = 15
)

// LanguageRow summarizes content metrics for one category
type LanguageRow struct {
	Category              classify.Category `json:"category" yaml:"category"`
	UniqueFiles           int               `json:"unique_files" yaml:"unique_files"`
	AnalyzedFiles         int               `json:"analyzed_files" yaml:"analyzed_files"`
	TotalLOC              int               `json:"total_loc" yaml:"total_loc"`
	AvgFileSize           float64           `json:"avg_file_size" yaml:"avg_file_size"`
	MaxFileSize           int               `json:"max_file_size" yaml:"max_file_size"`
	Developers            int               `json:"developers" yaml:"developers"`
	Commits               int               `json:"commits" yaml:"commits"`
	AvgComplexity         float64           `json:"avg_complexity" yaml:"avg_complexity"`
	MinComplexity         float64           `json:"min_complexity" yaml:"min_complexity"`
	MaxComplexity         float64           `json:"max_complexity" yaml:"max_complexity"`
	LowComplexityFiles    int               `json:"low_complexity_files" yaml:"low_complexity_files"`
	MediumComplexityFiles int               `json:"medium_complexity_files" yaml:"medium_complexity_files"`
	HighComplexityFiles   int               `json:"high_complexity_files" yaml:"high_complexity_files"`
	HighComplexityPct     float64           `json:"high_complexity_pct" yaml:"high_complexity_pct"`
	SizeRisk              float64           `json:"size_risk" yaml:"size_risk"`
	DistributionRisk      float64           `json:"distribution_risk" yaml:"distribution_risk"`
	ComplexityRiskScore   float64           `json:"complexity_risk_score" yaml:"complexity_risk_score"`
}

type languageAcc struct {
	row        LanguageRow
	developers map[string]struct{}
	sizes      []int
	samples    []float64
}

// SummarizeLanguages groups file records by category. Only complexity
// measurements above the minimum of 1 count as samples.
func SummarizeLanguages(files []*FileRecord) []LanguageRow {
	var order []classify.Category
	accs := make(map[classify.Category]*languageAcc)

	for _, rec := range files {
		acc, ok := accs[rec.Category]
		if !ok {
			acc = &languageAcc{
				row:        LanguageRow{Category: rec.Category},
				developers: make(map[string]struct{}),
			}
			accs[rec.Category] = acc
			order = append(order, rec.Category)
		}

		acc.row.UniqueFiles++
		acc.row.Commits += rec.TotalCommits
		for d := range rec.Developers {
			acc.developers[d] = struct{}{}
		}

		if rec.Content == nil {
			continue
		}
		acc.row.AnalyzedFiles++
		acc.row.TotalLOC += rec.Content.LOC
		acc.sizes = append(acc.sizes, rec.Content.LOC)

		cx := rec.Content.Complexity
		if cx <= 1 {
			continue
		}
		acc.samples = append(acc.samples, cx)
		switch {
		case cx < lowComplexityCeiling:
			acc.row.LowComplexityFiles++
		case cx < mediumComplexityCeiling:
			acc.row.MediumComplexityFiles++
		default:
			acc.row.HighComplexityFiles++
		}
	}

	rows := make([]LanguageRow, 0, len(order))
	for _, cat := range order {
		acc := accs[cat]
		row := acc.row
		row.Developers = len(acc.developers)

		if len(acc.sizes) > 0 {
			total := 0
			for _, s := range acc.sizes {
				total += s
				if s > row.MaxFileSize {
					row.MaxFileSize = s
				}
			}
			row.AvgFileSize = float64(total) / float64(len(acc.sizes))
		}

		if len(acc.samples) > 0 {
			row.MinComplexity = math.Inf(1)
			sum := 0.0
			for _, c := range acc.samples {
				sum += c
				row.MinComplexity = math.Min(row.MinComplexity, c)
				row.MaxComplexity = math.Max(row.MaxComplexity, c)
			}
			row.AvgComplexity = sum / float64(len(acc.samples))
			row.HighComplexityPct = float64(row.HighComplexityFiles) / float64(len(acc.samples)) * 100
		}

		row.SizeRisk = math.Min(row.AvgFileSize/500, 2.0)
		row.DistributionRisk = row.HighComplexityPct / 100
		row.ComplexityRiskScore = (row.AvgComplexity/10 + row.SizeRisk + row.DistributionRisk) * 10

		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].ComplexityRiskScore > rows[j].ComplexityRiskScore
	})
	return rows
}
