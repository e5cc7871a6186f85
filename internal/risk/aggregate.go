package risk

import (
	"log/slog"
	"sort"
	"time"

	"github.com/rohankatakam/changerisk/internal/classify"
	"github.com/rohankatakam/changerisk/internal/content"
	"github.com/rohankatakam/changerisk/internal/history"
)

// accumulator holds records in first-appearance order
type accumulator struct {
	opts Options

	files     []*FileRecord
	fileIndex map[string]*FileRecord

	developers []*DeveloperRecord
	devIndex   map[string]*DeveloperRecord

	summary Summary
}

func newAccumulator(opts Options) *accumulator {
	return &accumulator{
		opts:      opts,
		fileIndex: make(map[string]*FileRecord),
		devIndex:  make(map[string]*DeveloperRecord),
	}
}

func (a *accumulator) file(path string) *FileRecord {
	if rec, ok := a.fileIndex[path]; ok {
		return rec
	}
	name := classify.BaseName(path)
	rec := &FileRecord{
		Path:       path,
		Name:       name,
		Category:   classify.Classify(name),
		Area:       classify.ClassifyArchitectureArea(path, name),
		Developers: make(map[string]struct{}),
	}
	a.fileIndex[path] = rec
	a.files = append(a.files, rec)
	return rec
}

func (a *accumulator) developer(author history.Author) *DeveloperRecord {
	id := author.Identity()
	if rec, ok := a.devIndex[id]; ok {
		if rec.DisplayName == "" {
			rec.DisplayName = author.Name
		}
		return rec
	}
	rec := &DeveloperRecord{
		Identity:    id,
		DisplayName: author.Name,
		FilesOwned:  make(map[string]struct{}),
	}
	a.devIndex[id] = rec
	a.developers = append(a.developers, rec)
	return rec
}

func (a *accumulator) addCommit(cc history.CommitChanges) {
	if cc.Commit.Timestamp.IsZero() {
		a.summary.SkippedCommits++
		return
	}
	a.summary.Commits++

	dev := a.developer(cc.Commit.Author)
	dev.TotalCommits++

	recentSince := a.opts.Now.Add(-a.opts.RecentWindow)
	ts := cc.Commit.Timestamp

	for _, ch := range cc.Changes {
		if ch.Path == "" || ch.IsFolder {
			a.summary.AnomalousChanges++
			continue
		}
		if classify.IsExcludedFromRisk(classify.Classify(classify.BaseName(ch.Path))) {
			a.summary.ExcludedChanges++
			continue
		}
		a.summary.ProcessedChanges++

		rec := a.file(ch.Path)
		rec.Developers[dev.Identity] = struct{}{}
		rec.TotalCommits++
		if !ts.Before(recentSince) {
			rec.RecentCommits++
		}
		if ts.After(rec.LastModified) {
			rec.LastModified = ts
		}

		switch ch.Kind {
		case history.KindDelete:
			rec.SizeEstimate += a.opts.DeleteSizeDelta
			rec.LinesDeletedEstimate += a.opts.DeleteSizeDelta
		default:
			rec.SizeEstimate += a.opts.AddEditSizeDelta
			rec.LinesAddedEstimate += a.opts.AddEditSizeDelta
		}

		dev.FilesOwned[ch.Path] = struct{}{}
		dev.TotalFileChanges++
	}
}

// Aggregate folds the history stream and any content metrics into a Report.
// metrics may be nil; paths without metrics get estimate-only rows.
func Aggregate(commits []history.CommitChanges, opts Options, metrics map[string]content.Metrics) *Report {
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = DefaultRecentWindow
	}

	acc := newAccumulator(opts)
	for _, cc := range commits {
		acc.addCommit(cc)
	}

	for _, rec := range acc.files {
		if m, ok := metrics[rec.Path]; ok && !m.Rejected() {
			rec.Content = &m
		}
	}

	report := &Report{
		GeneratedAt: opts.Now,
		Files:       acc.fileRows(),
		Developers:  acc.developerRows(),
		Summary:     acc.summary,
	}
	report.Languages = SummarizeLanguages(acc.files)
	report.finishSummary()

	slog.Default().With("component", "risk").Debug("aggregation complete",
		"files", len(report.Files),
		"developers", len(report.Developers),
		"skipped_commits", report.Summary.SkippedCommits,
		"anomalous_changes", report.Summary.AnomalousChanges)

	return report
}

func (a *accumulator) fileRows() []FileRow {
	rows := make([]FileRow, 0, len(a.files))
	for _, rec := range a.files {
		devs := sortedKeys(rec.Developers)
		bf := BusFactorRisk(len(devs))
		hs := HotspotScore(rec.TotalCommits, rec.RecentCommits, rec.SizeEstimate)

		days := int(a.opts.Now.Sub(rec.LastModified).Hours() / 24)

		row := FileRow{
			Path:                   rec.Path,
			Name:                   rec.Name,
			Category:               rec.Category,
			Area:                   rec.Area,
			TotalCommits:           rec.TotalCommits,
			RecentCommits:          rec.RecentCommits,
			DeveloperCount:         len(devs),
			Developers:             devs,
			SizeEstimate:           rec.SizeEstimate,
			LinesAddedEstimate:     rec.LinesAddedEstimate,
			LinesDeletedEstimate:   rec.LinesDeletedEstimate,
			LastModified:           rec.LastModified,
			ChangeFrequencyPerWeek: ChangeFrequencyPerWeek(rec.TotalCommits, days),
			BusFactorRisk:          bf,
			HotspotScore:           hs,
			IsCritical:             IsCritical(bf, hs, rec.Category, rec.Name),
			CriticalComponent:      classify.IsCritical(rec.Path, rec.Name, rec.Category),
			RiskCategory:           RiskCategory(bf),
		}
		if rec.Content != nil {
			row.LOC = rec.Content.LOC
			row.Complexity = rec.Content.Complexity
			row.ContentMethod = rec.Content.Method
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].BusFactorRisk > rows[j].BusFactorRisk
	})
	return rows
}

func (a *accumulator) developerRows() []DeveloperRow {
	totalFiles := len(a.files)
	rows := make([]DeveloperRow, 0, len(a.developers))

	for _, dev := range a.developers {
		owned := len(dev.FilesOwned)
		if owned == 0 {
			continue
		}

		var exclusive []string
		for _, rec := range a.files {
			if _, ok := dev.FilesOwned[rec.Path]; !ok {
				continue
			}
			if len(rec.Developers) == 1 {
				exclusive = append(exclusive, rec.Name)
			}
		}

		pct := OwnershipPercentage(owned, totalFiles)
		r := DeveloperRisk(pct)
		rows = append(rows, DeveloperRow{
			Identity:            dev.Identity,
			DisplayName:         dev.DisplayName,
			FilesOwned:          owned,
			ExclusiveFiles:      len(exclusive),
			ExclusiveFilesList:  exclusive,
			TotalCommits:        dev.TotalCommits,
			TotalFileChanges:    dev.TotalFileChanges,
			OwnershipPercentage: pct,
			BusFactorRisk:       r,
			RiskLevel:           DeveloperRiskLevel(r),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].BusFactorRisk > rows[j].BusFactorRisk
	})
	return rows
}

// FromRows rebuilds a report from stored tables. Pass counters and the
// language table are not part of the tables and stay zero.
func FromRows(generatedAt time.Time, files []FileRow, developers []DeveloperRow) *Report {
	report := &Report{
		GeneratedAt: generatedAt,
		Files:       files,
		Developers:  developers,
	}
	report.finishSummary()
	return report
}

func (r *Report) finishSummary() {
	s := &r.Summary
	s.TotalFiles = len(r.Files)
	s.TotalDevelopers = len(r.Developers)
	for _, f := range r.Files {
		if f.IsCritical {
			s.CriticalFiles++
		}
		if f.BusFactorRisk >= CriticalBusFactor {
			s.HighRiskFiles++
		}
		if f.DeveloperCount == 1 {
			s.SingleDeveloperFiles++
		}
		if f.ContentMethod != content.MethodNone {
			s.FilesWithContent++
		}
	}
	for _, d := range r.Developers {
		if d.BusFactorRisk >= 3.0 {
			s.HighRiskDevelopers++
		}
	}
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
