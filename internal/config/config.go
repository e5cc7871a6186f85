// Package config loads changerisk settings from defaults, a yaml file, .env
// files and the environment. A loaded Config is a value and is never mutated
// after Load returns.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rohankatakam/changerisk/internal/content"
	"github.com/rohankatakam/changerisk/internal/errors"
	"github.com/rohankatakam/changerisk/internal/history"
	"github.com/rohankatakam/changerisk/internal/risk"
	"github.com/spf13/viper"
)

// Source types
const (
	SourceGit    = "git"
	SourceGitHub = "github"
)

// DirName is the per-project configuration directory
const DirName = ".changerisk"

// Config holds all configuration settings
type Config struct {
	Source  SourceConfig  `mapstructure:"source" yaml:"source"`
	Window  WindowConfig  `mapstructure:"window" yaml:"window"`
	Budgets BudgetConfig  `mapstructure:"budgets" yaml:"budgets"`
	Risk    RiskConfig    `mapstructure:"risk" yaml:"risk"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// SourceConfig selects where history comes from
type SourceConfig struct {
	Type string `mapstructure:"type" yaml:"type"` // "git" or "github"

	// git
	Path string `mapstructure:"path" yaml:"path"`

	// github
	Owner             string  `mapstructure:"owner" yaml:"owner"`
	Repo              string  `mapstructure:"repo" yaml:"repo"`
	Token             string  `mapstructure:"token" yaml:"token,omitempty"`
	BaseURL           string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	MaxWorkers        int     `mapstructure:"max_workers" yaml:"max_workers"`
	CountPullRequests bool    `mapstructure:"count_pull_requests" yaml:"count_pull_requests"`
}

// WindowConfig bounds the analyzed history. From and To are YYYY-MM-DD or
// RFC3339; an empty From means Days before To.
type WindowConfig struct {
	Days int    `mapstructure:"days" yaml:"days"`
	From string `mapstructure:"from" yaml:"from,omitempty"`
	To   string `mapstructure:"to" yaml:"to,omitempty"`
}

// BudgetConfig bounds content analysis time and size
type BudgetConfig struct {
	PerFile            time.Duration `mapstructure:"per_file" yaml:"per_file"`
	Total              time.Duration `mapstructure:"total" yaml:"total"`
	MetricsTimeout     time.Duration `mapstructure:"metrics_timeout" yaml:"metrics_timeout"`
	ComplexityTimeout  time.Duration `mapstructure:"complexity_timeout" yaml:"complexity_timeout"`
	MaxMetricsBytes    int           `mapstructure:"max_metrics_bytes" yaml:"max_metrics_bytes"`
	MaxComplexityBytes int           `mapstructure:"max_complexity_bytes" yaml:"max_complexity_bytes"`
}

// RiskConfig tunes the aggregation pass
type RiskConfig struct {
	RecentDays       int `mapstructure:"recent_days" yaml:"recent_days"`
	AddEditSizeDelta int `mapstructure:"add_edit_size_delta" yaml:"add_edit_size_delta"`
	DeleteSizeDelta  int `mapstructure:"delete_size_delta" yaml:"delete_size_delta"`
}

// CacheConfig controls the analysis cache
type CacheConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Directory string `mapstructure:"directory" yaml:"directory"`
	Backend   string `mapstructure:"backend" yaml:"backend"` // "json" or "bolt"
}

// StorageConfig controls run persistence
type StorageConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Driver  string `mapstructure:"driver" yaml:"driver"` // "sqlite" or "postgres"
	DSN     string `mapstructure:"dsn" yaml:"dsn"`
}

// OutputConfig controls where and how tables are written
type OutputConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
	Format    string `mapstructure:"format" yaml:"format"`
	Compress  bool   `mapstructure:"compress" yaml:"compress"`
	TopN      int    `mapstructure:"top_n" yaml:"top_n"`
}

// LoggingConfig controls log level and sinks
type LoggingConfig struct {
	Level     string `mapstructure:"level" yaml:"level"`
	JSON      bool   `mapstructure:"json" yaml:"json"`
	Directory string `mapstructure:"directory" yaml:"directory,omitempty"`
}

// Default returns default configuration
func Default() Config {
	def := content.DefaultOptions()
	return Config{
		Source: SourceConfig{
			Type:              SourceGit,
			Path:              ".",
			RequestsPerSecond: 1.0,
			MaxWorkers:        8,
		},
		Window: WindowConfig{Days: 180},
		Budgets: BudgetConfig{
			PerFile:            10 * time.Second,
			Total:              30 * time.Minute,
			MetricsTimeout:     def.MetricsBudget,
			ComplexityTimeout:  def.ComplexityBudget,
			MaxMetricsBytes:    def.MaxMetricsBytes,
			MaxComplexityBytes: def.MaxComplexityBytes,
		},
		Risk: RiskConfig{
			RecentDays:       int(risk.DefaultRecentWindow / (24 * time.Hour)),
			AddEditSizeDelta: risk.DefaultAddEditSizeDelta,
			DeleteSizeDelta:  risk.DefaultDeleteSizeDelta,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Directory: filepath.Join(DirName, "cache"),
			Backend:   "json",
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(DirName, "changerisk.db"),
		},
		Output: OutputConfig{
			Directory: filepath.Join(DirName, "output"),
			Format:    "csv",
			TopN:      10,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load builds a Config from defaults, the config file, .env files and the
// environment, in increasing order of precedence. An empty path searches
// ./.changerisk/config.yaml, ./config.yaml and ~/.changerisk/config.yaml.
func Load(path string) (Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, Default())

	v.SetEnvPrefix("CHANGERISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(DirName)
		v.AddConfigPath(".")
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, DirName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityCritical, "failed to read config")
		}
		// Config file not found is OK, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityCritical, "failed to unmarshal config")
	}

	return applyEnvOverrides(cfg), nil
}

// setDefaults registers every leaf key so AutomaticEnv can override it
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("source.type", cfg.Source.Type)
	v.SetDefault("source.path", cfg.Source.Path)
	v.SetDefault("source.owner", cfg.Source.Owner)
	v.SetDefault("source.repo", cfg.Source.Repo)
	v.SetDefault("source.token", cfg.Source.Token)
	v.SetDefault("source.base_url", cfg.Source.BaseURL)
	v.SetDefault("source.requests_per_second", cfg.Source.RequestsPerSecond)
	v.SetDefault("source.max_workers", cfg.Source.MaxWorkers)
	v.SetDefault("source.count_pull_requests", cfg.Source.CountPullRequests)

	v.SetDefault("window.days", cfg.Window.Days)
	v.SetDefault("window.from", cfg.Window.From)
	v.SetDefault("window.to", cfg.Window.To)

	v.SetDefault("budgets.per_file", cfg.Budgets.PerFile)
	v.SetDefault("budgets.total", cfg.Budgets.Total)
	v.SetDefault("budgets.metrics_timeout", cfg.Budgets.MetricsTimeout)
	v.SetDefault("budgets.complexity_timeout", cfg.Budgets.ComplexityTimeout)
	v.SetDefault("budgets.max_metrics_bytes", cfg.Budgets.MaxMetricsBytes)
	v.SetDefault("budgets.max_complexity_bytes", cfg.Budgets.MaxComplexityBytes)

	v.SetDefault("risk.recent_days", cfg.Risk.RecentDays)
	v.SetDefault("risk.add_edit_size_delta", cfg.Risk.AddEditSizeDelta)
	v.SetDefault("risk.delete_size_delta", cfg.Risk.DeleteSizeDelta)

	v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	v.SetDefault("cache.directory", cfg.Cache.Directory)
	v.SetDefault("cache.backend", cfg.Cache.Backend)

	v.SetDefault("storage.enabled", cfg.Storage.Enabled)
	v.SetDefault("storage.driver", cfg.Storage.Driver)
	v.SetDefault("storage.dsn", cfg.Storage.DSN)

	v.SetDefault("output.directory", cfg.Output.Directory)
	v.SetDefault("output.format", cfg.Output.Format)
	v.SetDefault("output.compress", cfg.Output.Compress)
	v.SetDefault("output.top_n", cfg.Output.TopN)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.json", cfg.Logging.JSON)
	v.SetDefault("logging.directory", cfg.Logging.Directory)
}

// Save writes the configuration as yaml. The token is never written; it
// belongs in the keychain or the environment.
func (c Config) Save(path string) error {
	c.Source.Token = ""

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("source", c.Source)
	v.Set("window", c.Window)
	v.Set("budgets", c.Budgets)
	v.Set("risk", c.Risk)
	v.Set("cache", c.Cache)
	v.Set("storage", c.Storage)
	v.Set("output", c.Output)
	v.Set("logging", c.Logging)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ResolveWindow turns the window settings into absolute bounds relative to
// now. Bounds derived from dates snap to day boundaries in UTC: the start
// to 00:00:00 and the end to 23:59:59. A resolved window therefore stays
// the same for a whole day and so does the snapshot hash.
func (c Config) ResolveWindow(now time.Time) (history.Window, error) {
	to := endOfDay(now.UTC())
	if c.Window.To != "" {
		t, dateOnly, err := parseDate(c.Window.To)
		if err != nil {
			return history.Window{}, errors.Wrap(err, errors.ErrorTypeValidation, errors.SeverityHigh, "window.to")
		}
		to = t
		if dateOnly {
			to = endOfDay(t)
		}
	}

	from := startOfDay(to.AddDate(0, 0, -c.Window.Days))
	if c.Window.From != "" {
		t, _, err := parseDate(c.Window.From)
		if err != nil {
			return history.Window{}, errors.Wrap(err, errors.ErrorTypeValidation, errors.SeverityHigh, "window.from")
		}
		from = t
	}

	if !from.Before(to) {
		return history.Window{}, errors.ValidationErrorf("window from %s is not before to %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return history.Window{From: from, To: to}, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 23, 59, 59, 0, time.UTC)
}

// RiskOptions returns aggregation options relative to now
func (c Config) RiskOptions(now time.Time) risk.Options {
	opts := risk.DefaultOptions(now)
	opts.RecentWindow = time.Duration(c.Risk.RecentDays) * 24 * time.Hour
	opts.AddEditSizeDelta = c.Risk.AddEditSizeDelta
	opts.DeleteSizeDelta = c.Risk.DeleteSizeDelta
	return opts
}

// ContentOptions returns the analyzer budgets and size caps
func (c Config) ContentOptions() content.Options {
	return content.Options{
		MetricsBudget:      c.Budgets.MetricsTimeout,
		ComplexityBudget:   c.Budgets.ComplexityTimeout,
		MaxMetricsBytes:    c.Budgets.MaxMetricsBytes,
		MaxComplexityBytes: c.Budgets.MaxComplexityBytes,
	}
}

// parseDate accepts YYYY-MM-DD or RFC3339; dateOnly reports the former
func parseDate(s string) (t time.Time, dateOnly bool, err error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), true, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid date %q (want YYYY-MM-DD or RFC3339)", s)
	}
	return t.UTC(), false, nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
