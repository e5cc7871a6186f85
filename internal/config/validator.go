package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rohankatakam/changerisk/internal/errors"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range vr.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err)
	}
	if len(vr.Warnings) > 0 {
		sb.WriteString("warnings:\n")
		for _, warn := range vr.Warnings {
			fmt.Fprintf(&sb, "  - %s\n", warn)
		}
	}
	return sb.String()
}

// Err returns a typed validation error, or nil when the result is clean
func (vr *ValidationResult) Err() error {
	if !vr.HasErrors() {
		return nil
	}
	return errors.ValidationError(vr.Error())
}

// Validate validates configuration with auto-detected mode
func (c Config) Validate() *ValidationResult {
	return c.ValidateWithMode(DetectMode())
}

// ValidateWithMode validates configuration for the given execution mode
func (c Config) ValidateWithMode(mode DeploymentMode) *ValidationResult {
	result := &ValidationResult{}
	c.validateSource(result, mode)
	c.validateWindow(result)
	c.validateBudgets(result)
	c.validateRisk(result)
	c.validateCache(result)
	c.validateStorage(result)
	c.validateOutput(result)
	c.validateLogging(result)
	return result
}

func (c Config) validateSource(result *ValidationResult, mode DeploymentMode) {
	s := c.Source
	switch s.Type {
	case SourceGit:
		if s.Path == "" {
			result.AddError("source.path is required for git sources")
		}
	case SourceGitHub:
		if s.Owner == "" || s.Repo == "" {
			result.AddError("source.owner and source.repo are required for github sources")
		}
		if s.RequestsPerSecond <= 0 {
			result.AddError("source.requests_per_second must be positive (got %v)", s.RequestsPerSecond)
		}
		if s.MaxWorkers <= 0 {
			result.AddError("source.max_workers must be positive (got %d)", s.MaxWorkers)
		}
		if s.BaseURL != "" {
			if u, err := url.Parse(s.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
				result.AddError("source.base_url is not a valid URL: %s", s.BaseURL)
			}
		}
		if s.Token == "" && mode == ModeCI {
			result.AddWarning("no GitHub token in CI; requests are limited to 60/hour")
		}
	default:
		result.AddError("source.type must be %q or %q (got %q)", SourceGit, SourceGitHub, s.Type)
	}
}

func (c Config) validateWindow(result *ValidationResult) {
	if c.Window.From == "" && c.Window.Days <= 0 {
		result.AddError("window.days must be positive when window.from is empty (got %d)", c.Window.Days)
		return
	}
	if _, err := c.ResolveWindow(time.Now()); err != nil {
		result.AddError("%v", err)
	}
}

func (c Config) validateBudgets(result *ValidationResult) {
	b := c.Budgets
	if b.PerFile <= 0 {
		result.AddError("budgets.per_file must be positive (got %s)", b.PerFile)
	}
	if b.Total <= 0 {
		result.AddError("budgets.total must be positive (got %s)", b.Total)
	}
	if b.PerFile > 0 && b.Total > 0 && b.PerFile > b.Total {
		result.AddWarning("budgets.per_file (%s) exceeds budgets.total (%s)", b.PerFile, b.Total)
	}
	if b.MetricsTimeout <= 0 || b.ComplexityTimeout <= 0 {
		result.AddError("budgets.metrics_timeout and budgets.complexity_timeout must be positive")
	}
	if b.MaxMetricsBytes <= 0 || b.MaxComplexityBytes <= 0 {
		result.AddError("budgets.max_metrics_bytes and budgets.max_complexity_bytes must be positive")
	}
}

func (c Config) validateRisk(result *ValidationResult) {
	r := c.Risk
	if r.RecentDays <= 0 {
		result.AddError("risk.recent_days must be positive (got %d)", r.RecentDays)
	}
	if r.AddEditSizeDelta < 0 || r.DeleteSizeDelta < 0 {
		result.AddError("risk size deltas must not be negative")
	}
}

func (c Config) validateCache(result *ValidationResult) {
	if !c.Cache.Enabled {
		return
	}
	if c.Cache.Directory == "" {
		result.AddError("cache.directory is required when the cache is enabled")
	}
	switch c.Cache.Backend {
	case "json", "bolt":
	default:
		result.AddError("cache.backend must be json or bolt (got %q)", c.Cache.Backend)
	}
}

func (c Config) validateStorage(result *ValidationResult) {
	if !c.Storage.Enabled {
		return
	}
	if c.Storage.DSN == "" {
		result.AddError("storage.dsn is required when storage is enabled")
	}
	switch c.Storage.Driver {
	case "sqlite":
	case "postgres":
		if u, err := url.Parse(c.Storage.DSN); err == nil && u.Scheme != "" &&
			u.Scheme != "postgres" && u.Scheme != "postgresql" {
			result.AddWarning("storage.dsn scheme %q is not postgres", u.Scheme)
		}
	default:
		result.AddError("storage.driver must be sqlite or postgres (got %q)", c.Storage.Driver)
	}
}

func (c Config) validateOutput(result *ValidationResult) {
	switch strings.ToLower(c.Output.Format) {
	case "csv", "json", "yaml", "yml":
	default:
		result.AddError("output.format must be csv, json or yaml (got %q)", c.Output.Format)
	}
	if c.Output.Directory == "" {
		result.AddError("output.directory is required")
	}
	if c.Output.TopN < 0 {
		result.AddError("output.top_n must not be negative")
	}
}

func (c Config) validateLogging(result *ValidationResult) {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		result.AddError("logging.level must be debug, info, warn or error (got %q)", c.Logging.Level)
	}
}
