package config

import (
	"testing"
	"time"

	"github.com/rohankatakam/changerisk/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown source", func(c *Config) { c.Source.Type = "svn" }, "source.type"},
		{"git without path", func(c *Config) { c.Source.Path = "" }, "source.path"},
		{"github without repo", func(c *Config) { c.Source.Type = SourceGitHub; c.Source.Owner = "acme" }, "source.owner and source.repo"},
		{"github bad base url", func(c *Config) {
			c.Source.Type = SourceGitHub
			c.Source.Owner, c.Source.Repo = "acme", "api"
			c.Source.BaseURL = "not a url"
		}, "source.base_url"},
		{"zero window", func(c *Config) { c.Window.Days = 0 }, "window.days"},
		{"bad window date", func(c *Config) { c.Window.From = "2024-13-01" }, "window.from"},
		{"zero per-file budget", func(c *Config) { c.Budgets.PerFile = 0 }, "budgets.per_file"},
		{"zero total budget", func(c *Config) { c.Budgets.Total = 0 }, "budgets.total"},
		{"negative delta", func(c *Config) { c.Risk.DeleteSizeDelta = -1 }, "size deltas"},
		{"bad cache backend", func(c *Config) { c.Cache.Backend = "redis" }, "cache.backend"},
		{"storage without dsn", func(c *Config) { c.Storage.Enabled = true; c.Storage.DSN = "" }, "storage.dsn"},
		{"bad storage driver", func(c *Config) { c.Storage.Enabled = true; c.Storage.Driver = "mysql" }, "storage.driver"},
		{"bad output format", func(c *Config) { c.Output.Format = "xml" }, "output.format"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			result := cfg.ValidateWithMode(ModeInteractive)
			assert.True(t, result.HasErrors())
			assert.Contains(t, result.Error(), tt.wantErr)

			err := result.Err()
			assert.Error(t, err)
			assert.Equal(t, errors.ErrorTypeValidation, errors.GetType(err))
		})
	}
}

func TestValidate_DisabledSectionsAreSkipped(t *testing.T) {
	cfg := Default()
	cfg.Cache.Enabled = false
	cfg.Cache.Backend = "anything"
	cfg.Storage.Enabled = false
	cfg.Storage.Driver = "anything"

	assert.False(t, cfg.ValidateWithMode(ModeInteractive).HasErrors())
}

func TestValidate_Warnings(t *testing.T) {
	cfg := Default()
	cfg.Source.Type = SourceGitHub
	cfg.Source.Owner, cfg.Source.Repo = "acme", "api"
	cfg.Budgets.PerFile = time.Hour
	cfg.Budgets.Total = time.Minute

	result := cfg.ValidateWithMode(ModeCI)
	assert.False(t, result.HasErrors())
	assert.Len(t, result.Warnings, 2)
	assert.Empty(t, result.Error())
}
