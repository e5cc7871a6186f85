package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DEBUG},
		{"DEBUG", DEBUG},
		{" warn ", WARN},
		{"warning", WARN},
		{"error", ERROR},
		{"info", INFO},
		{"", INFO},
		{"verbose", INFO},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "input %q", tt.in)
	}
}

func TestNewLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: WARN}, &buf)
	require.NoError(t, err)

	logger.Slog().Info("hidden")
	logger.Slog().Warn("shown", "path", "a.cs")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "path=a.cs")
}

func TestNewLogger_FileAndRotation(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "logs", "run.log")

	require.NoError(t, os.MkdirAll(filepath.Dir(logFile), 0755))
	require.NoError(t, os.WriteFile(logFile, bytes.Repeat([]byte("x"), 64), 0644))

	logger, err := NewLogger(Config{Level: INFO, OutputFile: logFile, MaxSize: 32, JSONFormat: true}, nil)
	require.NoError(t, err)
	logger.Slog().Info("after rotation")
	require.NoError(t, logger.Close())

	_, err = os.Stat(logFile + ".1")
	assert.NoError(t, err, "oversized log should be rotated to .1")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"after rotation"`)
}
