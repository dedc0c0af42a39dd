package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabhi256/gcmodel/internal/config"
	"github.com/mabhi256/gcmodel/internal/gc"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gcmodel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Parse.DecimalSeparator)
	assert.True(t, cfg.Parse.JoinContinuationLines)
	assert.Equal(t, config.DefaultPatterns, cfg.Input.Patterns)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, config.DefaultLogMaxSizeMB, cfg.Logging.MaxSizeMB)
	assert.Equal(t, gc.DefaultFailureLogRate, cfg.Logging.FailureRate)
	assert.Equal(t, gc.DefaultPercentiles, cfg.Report.Percentiles)
	assert.Equal(t, config.DefaultProgressInterval, cfg.Report.ProgressInterval)
	assert.Empty(t, cfg.Metrics.Addr)

	assert.Equal(t, gc.DefaultParseConfig(), cfg.GCParseConfig())
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
}

func TestLoad_ValidFile(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(writeConfig(t, `parse:
  decimal_separator: ","
  join_continuation_lines: false
input:
  patterns: ["gc-*.txt"]
logging:
  level: debug
  format: json
  file: /tmp/gcmodel.log
report:
  percentiles: [90, 99.9]
  progress_interval: 2s
metrics:
  addr: 127.0.0.1:9464
`))
	require.NoError(t, err)

	parse := cfg.GCParseConfig()
	assert.Equal(t, byte(','), parse.DecimalSeparator)
	assert.False(t, parse.JoinContinuationLines)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, []float64{90, 99.9}, cfg.Report.Percentiles)
	assert.Equal(t, 2*time.Second, cfg.Report.ProgressInterval)
	assert.Equal(t, "127.0.0.1:9464", cfg.Metrics.Addr)

	assert.True(t, cfg.Matcher().Match("logs/gc-2024.txt"))
	assert.False(t, cfg.Matcher().Match("gc.log"))
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv("GCMODEL_LOGGING_LEVEL", "warn")
	t.Setenv("GCMODEL_PARSE_DECIMAL_SEPARATOR", ",")

	cfg, err := config.Load(writeConfig(t, "logging:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, slog.LevelWarn, cfg.LogLevel())
	assert.Equal(t, byte(','), cfg.GCParseConfig().DecimalSeparator)
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"separator", "parse:\n  decimal_separator: ';'\n", config.ErrInvalidDecimalSeparator},
		{"level", "logging:\n  level: loud\n", config.ErrInvalidLogLevel},
		{"format", "logging:\n  format: xml\n", config.ErrInvalidLogFormat},
		{"rotation", "logging:\n  max_backups: -1\n", config.ErrInvalidRotation},
		{"failure rate", "logging:\n  failure_rate: -1\n", config.ErrInvalidFailureRate},
		{"percentile", "report:\n  percentiles: [0]\n", config.ErrInvalidPercentile},
		{"interval", "report:\n  progress_interval: 0s\n", config.ErrInvalidInterval},
		{"pattern", "input:\n  patterns: ['[gc']\n", config.ErrInvalidPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.Load(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestMatcher_DefaultPatterns(t *testing.T) {
	t.Parallel()

	m, err := config.NewMatcher(config.DefaultPatterns)
	require.NoError(t, err)

	for _, name := range []string{"gc.log", "gc.log.0", "gc.log.3.gz", "/var/log/app/gc.lz4", "gc.zst", "gc.sz"} {
		assert.True(t, m.Match(name), name)
	}
	for _, name := range []string{"gc.txt", "notes.md"} {
		assert.False(t, m.Match(name), name)
	}

	assert.Equal(t, config.DefaultPatterns, config.Default().Matcher().Patterns())

	_, err = config.NewMatcher(nil)
	require.ErrorIs(t, err, config.ErrNoPatterns)
}
