// Package risk folds commit history and content metrics into per-file and
// per-developer bus-factor and hotspot tables.
package risk

import (
	"time"

	"github.com/rohankatakam/changerisk/internal/classify"
	"github.com/rohankatakam/changerisk/internal/content"
)

// Defaults for Options
const (
	DefaultRecentWindow     = 90 * 24 * time.Hour
	DefaultAddEditSizeDelta = 25
	DefaultDeleteSizeDelta  = 10
)

// Options controls one aggregation pass. It is a value; copies are independent.
type Options struct {
	// Now is the reference time for recency and change frequency
	Now          time.Time
	RecentWindow time.Duration
	// SizeEstimate is a coarse proxy: a flat delta per change, not a line count
	AddEditSizeDelta int
	DeleteSizeDelta  int
}

// DefaultOptions returns the standard options relative to now
func DefaultOptions(now time.Time) Options {
	return Options{
		Now:              now,
		RecentWindow:     DefaultRecentWindow,
		AddEditSizeDelta: DefaultAddEditSizeDelta,
		DeleteSizeDelta:  DefaultDeleteSizeDelta,
	}
}

// FileRecord accumulates history for one path during a pass
type FileRecord struct {
	Path     string
	Name     string
	Category classify.Category
	Area     classify.Area

	Developers    map[string]struct{}
	TotalCommits  int
	RecentCommits int

	SizeEstimate         int
	LinesAddedEstimate   int
	LinesDeletedEstimate int

	LastModified time.Time
	Content      *content.Metrics
}

// DeveloperRecord accumulates history for one developer identity
type DeveloperRecord struct {
	Identity         string
	DisplayName      string
	FilesOwned       map[string]struct{}
	TotalCommits     int
	TotalFileChanges int
}

// FileRow is one row of the file-risk table
type FileRow struct {
	Path                   string            `json:"path" yaml:"path"`
	Name                   string            `json:"name" yaml:"name"`
	Category               classify.Category `json:"category" yaml:"category"`
	Area                   classify.Area     `json:"area" yaml:"area"`
	TotalCommits           int               `json:"total_commits" yaml:"total_commits"`
	RecentCommits          int               `json:"recent_commits" yaml:"recent_commits"`
	DeveloperCount         int               `json:"developer_count" yaml:"developer_count"`
	Developers             []string          `json:"developer_list" yaml:"developer_list"`
	SizeEstimate           int               `json:"size_estimate" yaml:"size_estimate"`
	LinesAddedEstimate     int               `json:"lines_added_estimate" yaml:"lines_added_estimate"`
	LinesDeletedEstimate   int               `json:"lines_deleted_estimate" yaml:"lines_deleted_estimate"`
	LastModified           time.Time         `json:"last_modified" yaml:"last_modified"`
	ChangeFrequencyPerWeek float64           `json:"change_frequency_per_week" yaml:"change_frequency_per_week"`
	LOC                    int               `json:"loc" yaml:"loc"`
	Complexity             float64           `json:"complexity" yaml:"complexity"`
	ContentMethod          content.Method    `json:"content_method,omitempty" yaml:"content_method,omitempty"`
	BusFactorRisk          float64           `json:"bus_factor_risk" yaml:"bus_factor_risk"`
	HotspotScore           float64           `json:"hotspot_score" yaml:"hotspot_score"`
	IsCritical             bool              `json:"is_critical" yaml:"is_critical"`
	CriticalComponent      bool              `json:"critical_component" yaml:"critical_component"`
	RiskCategory           string            `json:"risk_category" yaml:"risk_category"`
}

// DeveloperRow is one row of the developer-risk table
type DeveloperRow struct {
	Identity            string   `json:"identity" yaml:"identity"`
	DisplayName         string   `json:"display_name" yaml:"display_name"`
	FilesOwned          int      `json:"files_owned" yaml:"files_owned"`
	ExclusiveFiles      int      `json:"exclusive_files" yaml:"exclusive_files"`
	ExclusiveFilesList  []string `json:"exclusive_files_list" yaml:"exclusive_files_list"`
	TotalCommits        int      `json:"total_commits" yaml:"total_commits"`
	TotalFileChanges    int      `json:"total_file_changes" yaml:"total_file_changes"`
	OwnershipPercentage float64  `json:"ownership_percentage" yaml:"ownership_percentage"`
	BusFactorRisk       float64  `json:"bus_factor_risk" yaml:"bus_factor_risk"`
	RiskLevel           string   `json:"risk_level" yaml:"risk_level"`
}

// Summary counts what a pass saw and produced
type Summary struct {
	Commits              int `json:"commits" yaml:"commits"`
	ProcessedChanges     int `json:"processed_changes" yaml:"processed_changes"`
	ExcludedChanges      int `json:"excluded_changes" yaml:"excluded_changes"`
	AnomalousChanges     int `json:"anomalous_changes" yaml:"anomalous_changes"`
	SkippedCommits       int `json:"skipped_commits" yaml:"skipped_commits"`
	TotalFiles           int `json:"total_files" yaml:"total_files"`
	CriticalFiles        int `json:"critical_files" yaml:"critical_files"`
	HighRiskFiles        int `json:"high_risk_files" yaml:"high_risk_files"`
	SingleDeveloperFiles int `json:"single_developer_files" yaml:"single_developer_files"`
	FilesWithContent     int `json:"files_with_content" yaml:"files_with_content"`
	TotalDevelopers      int `json:"total_developers" yaml:"total_developers"`
	HighRiskDevelopers   int `json:"high_risk_developers" yaml:"high_risk_developers"`
}

// Report is the output of one aggregation pass
type Report struct {
	GeneratedAt time.Time      `json:"generated_at" yaml:"generated_at"`
	Files       []FileRow      `json:"files" yaml:"files"`
	Developers  []DeveloperRow `json:"developers" yaml:"developers"`
	Languages   []LanguageRow  `json:"languages" yaml:"languages"`
	Summary     Summary        `json:"summary" yaml:"summary"`
}
