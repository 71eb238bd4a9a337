package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	toml "github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes every environment override, e.g. T1_ADDR.
const EnvPrefix = "T1"

const (
	SamplerGopsutil = "gopsutil"
	SamplerPS       = "ps"
)

// Duration accepts Go duration strings ("1s", "250ms") in both TOML and
// environment variables.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config holds the host configuration. Values are layered: Default, then the
// TOML file, then T1_* environment variables named after the fields
// (LogLevel is T1_LOG_LEVEL).
type Config struct {
	Addr string `toml:"addr" split_words:"true"`

	LogLevel       string `toml:"log_level" split_words:"true"`
	LogDevelopment bool   `toml:"log_development" split_words:"true"`

	Shell               string `toml:"shell" split_words:"true"`
	ShellIntegrationDir string `toml:"shell_integration_dir" split_words:"true"`
	AppVersion          string `toml:"app_version" split_words:"true"`

	Sampler      string   `toml:"sampler" split_words:"true"`
	StatsTimeout Duration `toml:"stats_timeout" split_words:"true"`
	FSDebounce   Duration `toml:"fs_debounce" split_words:"true"`

	UseSystemProxy bool `toml:"use_system_proxy" split_words:"true"`

	ScrollbackChunks     int `toml:"scrollback_chunks" split_words:"true"`
	InputRateBytesPerSec int `toml:"input_rate_bytes_per_sec" split_words:"true"`
	InputBurstBytes      int `toml:"input_burst_bytes" split_words:"true"`
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Addr:                 "127.0.0.1:7681",
		LogLevel:             "info",
		AppVersion:           "0.0.0",
		Sampler:              SamplerGopsutil,
		StatsTimeout:         Duration(2 * time.Second),
		FSDebounce:           Duration(time.Second),
		ScrollbackChunks:     1024,
		InputRateBytesPerSec: 256 * 1024,
		InputBurstBytes:      512 * 1024,
	}
}

// Load builds the configuration. An empty path skips the file layer; a
// non-empty path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.Sampler != SamplerGopsutil && c.Sampler != SamplerPS {
		errs = append(errs, fmt.Errorf("unknown sampler %q", c.Sampler))
	}
	if c.FSDebounce <= 0 {
		errs = append(errs, errors.New("fs_debounce must be positive"))
	}
	if c.StatsTimeout <= 0 {
		errs = append(errs, errors.New("stats_timeout must be positive"))
	}
	if c.InputRateBytesPerSec < 0 || c.InputBurstBytes < 0 {
		errs = append(errs, errors.New("input rate limits must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
