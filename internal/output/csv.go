package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rohankatakam/changerisk/internal/classify"
	"github.com/rohankatakam/changerisk/internal/content"
	"github.com/rohankatakam/changerisk/internal/risk"
)

// maxExclusiveListed caps the exclusive file names printed per developer
const maxExclusiveListed = 5

var fileHeader = []string{
	"path", "name", "category", "area", "total_commits", "recent_commits",
	"developer_count", "developer_list", "size_estimate", "lines_added_estimate",
	"lines_deleted_estimate", "last_modified", "change_frequency_per_week", "loc",
	"complexity", "content_method", "bus_factor_risk", "hotspot_score",
	"is_critical", "critical_component", "risk_category",
}

var developerHeader = []string{
	"identity", "display_name", "files_owned", "exclusive_files",
	"exclusive_files_list", "total_commits", "total_file_changes",
	"ownership_percentage", "bus_factor_risk", "risk_level",
}

var languageHeader = []string{
	"category", "unique_files", "analyzed_files", "total_loc", "avg_file_size",
	"max_file_size", "developers", "commits", "avg_complexity", "min_complexity",
	"max_complexity", "low_complexity_files", "medium_complexity_files",
	"high_complexity_files", "high_complexity_pct", "size_risk",
	"distribution_risk", "complexity_risk_score",
}

func writeFileCSV(w io.Writer, rows []risk.FileRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(fileHeader); err != nil {
		return err
	}

	for _, r := range rows {
		lastModified := "Unknown"
		if !r.LastModified.IsZero() {
			lastModified = r.LastModified.UTC().Format("2006-01-02")
		}
		record := []string{
			r.Path,
			r.Name,
			string(r.Category),
			string(r.Area),
			strconv.Itoa(r.TotalCommits),
			strconv.Itoa(r.RecentCommits),
			strconv.Itoa(r.DeveloperCount),
			strings.Join(r.Developers, ", "),
			strconv.Itoa(r.SizeEstimate),
			strconv.Itoa(r.LinesAddedEstimate),
			strconv.Itoa(r.LinesDeletedEstimate),
			lastModified,
			formatFloat(r.ChangeFrequencyPerWeek),
			strconv.Itoa(r.LOC),
			formatFloat(r.Complexity),
			string(r.ContentMethod),
			formatFloat(r.BusFactorRisk),
			formatFloat(r.HotspotScore),
			strconv.FormatBool(r.IsCritical),
			strconv.FormatBool(r.CriticalComponent),
			r.RiskCategory,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func writeDeveloperCSV(w io.Writer, rows []risk.DeveloperRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(developerHeader); err != nil {
		return err
	}

	for _, r := range rows {
		record := []string{
			r.Identity,
			r.DisplayName,
			strconv.Itoa(r.FilesOwned),
			strconv.Itoa(r.ExclusiveFiles),
			ExclusiveList(r.ExclusiveFilesList),
			strconv.Itoa(r.TotalCommits),
			strconv.Itoa(r.TotalFileChanges),
			formatFloat(r.OwnershipPercentage),
			formatFloat(r.BusFactorRisk),
			r.RiskLevel,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func writeLanguageCSV(w io.Writer, rows []risk.LanguageRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(languageHeader); err != nil {
		return err
	}

	for _, r := range rows {
		record := []string{
			string(r.Category),
			strconv.Itoa(r.UniqueFiles),
			strconv.Itoa(r.AnalyzedFiles),
			strconv.Itoa(r.TotalLOC),
			formatFloat(r.AvgFileSize),
			strconv.Itoa(r.MaxFileSize),
			strconv.Itoa(r.Developers),
			strconv.Itoa(r.Commits),
			formatFloat(r.AvgComplexity),
			formatFloat(r.MinComplexity),
			formatFloat(r.MaxComplexity),
			strconv.Itoa(r.LowComplexityFiles),
			strconv.Itoa(r.MediumComplexityFiles),
			strconv.Itoa(r.HighComplexityFiles),
			formatFloat(r.HighComplexityPct),
			formatFloat(r.SizeRisk),
			formatFloat(r.DistributionRisk),
			formatFloat(r.ComplexityRiskScore),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExclusiveList renders at most five names, with "..." when more exist
func ExclusiveList(names []string) string {
	if len(names) <= maxExclusiveListed {
		return strings.Join(names, ", ")
	}
	return strings.Join(names[:maxExclusiveListed], ", ") + "..."
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// csvRecords reads a table into header-keyed maps
func csvRecords(r io.Reader, header []string) ([]map[string]string, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	got := records[0]
	for _, col := range header {
		if !slices.Contains(got, col) {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(got))
		for i, col := range got {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// csvParser accumulates the first conversion error of a row
type csvParser struct {
	row map[string]string
	err error
}

func (p *csvParser) str(col string) string {
	return p.row[col]
}

func (p *csvParser) asInt(col string) int {
	v, err := strconv.Atoi(p.row[col])
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %s: %w", col, err)
	}
	return v
}

func (p *csvParser) asFloat(col string) float64 {
	v, err := strconv.ParseFloat(p.row[col], 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %s: %w", col, err)
	}
	return v
}

func (p *csvParser) asBool(col string) bool {
	v, err := strconv.ParseBool(p.row[col])
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %s: %w", col, err)
	}
	return v
}

func (p *csvParser) asDate(col string) time.Time {
	s := p.row[col]
	if s == "" || s == "Unknown" {
		return time.Time{}
	}
	v, err := time.Parse("2006-01-02", s)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %s: %w", col, err)
	}
	return v
}

func (p *csvParser) asList(col string) []string {
	s := p.row[col]
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ", ")
}

func readFileCSV(r io.Reader) ([]risk.FileRow, error) {
	records, err := csvRecords(r, fileHeader)
	if err != nil {
		return nil, err
	}

	rows := make([]risk.FileRow, 0, len(records))
	for i, rec := range records {
		p := &csvParser{row: rec}
		row := risk.FileRow{
			Path:                   p.str("path"),
			Name:                   p.str("name"),
			Category:               classify.Category(p.str("category")),
			Area:                   classify.Area(p.str("area")),
			TotalCommits:           p.asInt("total_commits"),
			RecentCommits:          p.asInt("recent_commits"),
			DeveloperCount:         p.asInt("developer_count"),
			Developers:             p.asList("developer_list"),
			SizeEstimate:           p.asInt("size_estimate"),
			LinesAddedEstimate:     p.asInt("lines_added_estimate"),
			LinesDeletedEstimate:   p.asInt("lines_deleted_estimate"),
			LastModified:           p.asDate("last_modified"),
			ChangeFrequencyPerWeek: p.asFloat("change_frequency_per_week"),
			LOC:                    p.asInt("loc"),
			Complexity:             p.asFloat("complexity"),
			ContentMethod:          content.Method(p.str("content_method")),
			BusFactorRisk:          p.asFloat("bus_factor_risk"),
			HotspotScore:           p.asFloat("hotspot_score"),
			IsCritical:             p.asBool("is_critical"),
			CriticalComponent:      p.asBool("critical_component"),
			RiskCategory:           p.str("risk_category"),
		}
		if p.err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, p.err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readDeveloperCSV(r io.Reader) ([]risk.DeveloperRow, error) {
	records, err := csvRecords(r, developerHeader)
	if err != nil {
		return nil, err
	}

	rows := make([]risk.DeveloperRow, 0, len(records))
	for i, rec := range records {
		p := &csvParser{row: rec}
		row := risk.DeveloperRow{
			Identity:            p.str("identity"),
			DisplayName:         p.str("display_name"),
			FilesOwned:          p.asInt("files_owned"),
			ExclusiveFiles:      p.asInt("exclusive_files"),
			ExclusiveFilesList:  p.asList("exclusive_files_list"),
			TotalCommits:        p.asInt("total_commits"),
			TotalFileChanges:    p.asInt("total_file_changes"),
			OwnershipPercentage: p.asFloat("ownership_percentage"),
			BusFactorRisk:       p.asFloat("bus_factor_risk"),
			RiskLevel:           p.str("risk_level"),
		}
		if p.err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, p.err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
