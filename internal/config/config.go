// Package config loads gcmodel settings from defaults, an optional YAML file
// and GCMODEL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/spf13/viper"

	"github.com/mabhi256/gcmodel/internal/gc"
)

// Sentinel validation errors.
var (
	ErrInvalidDecimalSeparator = errors.New("decimal separator must be '.' or ','")
	ErrInvalidLogLevel         = errors.New("invalid log level")
	ErrInvalidLogFormat        = errors.New("log format must be text or json")
	ErrInvalidPattern          = errors.New("invalid input pattern")
	ErrNoPatterns              = errors.New("at least one input pattern is required")
	ErrInvalidPercentile       = errors.New("percentiles must be in (0, 100]")
	ErrInvalidInterval         = errors.New("progress interval must be positive")
	ErrInvalidRotation         = errors.New("log rotation limits must not be negative")
	ErrInvalidFailureRate      = errors.New("failure log rate must not be negative")
)

const envPrefix = "GCMODEL"

type Config struct {
	Parse   ParseConfig   `mapstructure:"parse"`
	Input   InputConfig   `mapstructure:"input"`
	Logging LoggingConfig `mapstructure:"logging"`
	Report  ReportConfig  `mapstructure:"report"`
	Metrics MetricsConfig `mapstructure:"metrics"`

	matcher *Matcher
}

type ParseConfig struct {
	DecimalSeparator      string `mapstructure:"decimal_separator"`
	JoinContinuationLines bool   `mapstructure:"join_continuation_lines"`
}

type InputConfig struct {
	Patterns []string `mapstructure:"patterns"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	// FailureRate caps per-line parse failure logs per second, 0 for no cap.
	FailureRate int `mapstructure:"failure_rate"`
}

type ReportConfig struct {
	Percentiles      []float64     `mapstructure:"percentiles"`
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
}

// MetricsConfig controls the optional Prometheus endpoint. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads configuration from configPath, or from gcmodel.yaml in the
// working directory or ~/.config/gcmodel when configPath is empty. A missing
// default file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("gcmodel")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join("$HOME", ".config", "gcmodel"))
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults do not decode: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config defaults are invalid: %v", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("parse.decimal_separator", ".")
	v.SetDefault("parse.join_continuation_lines", true)

	v.SetDefault("input.patterns", DefaultPatterns)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", DefaultLogMaxSizeMB)
	v.SetDefault("logging.max_backups", DefaultLogMaxBackups)
	v.SetDefault("logging.failure_rate", gc.DefaultFailureLogRate)

	v.SetDefault("report.percentiles", gc.DefaultPercentiles)
	v.SetDefault("report.progress_interval", DefaultProgressInterval)

	v.SetDefault("metrics.addr", "")
}

// Validate checks every section and compiles the input patterns.
func (c *Config) Validate() error {
	if c.Parse.DecimalSeparator != "." && c.Parse.DecimalSeparator != "," {
		return fmt.Errorf("%w: %q", ErrInvalidDecimalSeparator, c.Parse.DecimalSeparator)
	}

	if err := c.validateLogging(); err != nil {
		return err
	}

	for _, p := range c.Report.Percentiles {
		if p <= 0 || p > 100 {
			return fmt.Errorf("%w: %v", ErrInvalidPercentile, p)
		}
	}
	if c.Report.ProgressInterval <= 0 {
		return ErrInvalidInterval
	}

	matcher, err := NewMatcher(c.Input.Patterns)
	if err != nil {
		return err
	}
	c.matcher = matcher

	return nil
}

func (c *Config) validateLogging() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 {
		return ErrInvalidRotation
	}
	if c.Logging.FailureRate < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidFailureRate, c.Logging.FailureRate)
	}

	return nil
}

// GCParseConfig resolves the tokenizer settings for one load.
func (c *Config) GCParseConfig() gc.ParseConfig {
	cfg := gc.DefaultParseConfig()
	cfg.DecimalSeparator = c.Parse.DecimalSeparator[0]
	cfg.JoinContinuationLines = c.Parse.JoinContinuationLines
	return cfg
}

// LogLevel returns the validated logging level.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	_ = level.UnmarshalText([]byte(c.Logging.Level))
	return level
}

// Matcher returns the compiled input patterns. Validate must have succeeded.
func (c *Config) Matcher() *Matcher {
	return c.matcher
}

// Matcher matches GC log file names against glob patterns.
type Matcher struct {
	patterns []string
	globs    []glob.Glob
}

func NewMatcher(patterns []string) (*Matcher, error) {
	if len(patterns) == 0 {
		return nil, ErrNoPatterns
	}

	m := &Matcher{patterns: patterns}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidPattern, p, err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Match reports whether the base name of path matches any pattern.
func (m *Matcher) Match(path string) bool {
	name := filepath.Base(path)
	for _, g := range m.globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func (m *Matcher) Patterns() []string {
	return m.patterns
}
