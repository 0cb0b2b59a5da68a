package gotlist

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// ConfigEnv names the environment variable holding an optional config file path.
const ConfigEnv = "GOTLIST_CONFIG"

// Config of a batch.
type Config struct {

	// Destination dir.
	Dir string `yaml:"dir"`

	// Number of concurrent downloads.
	Workers int `yaml:"workers"`

	// Progress refresh interval.
	Interval time.Duration `yaml:"interval"`

	// Read buffer size in bytes.
	BufferSize int `yaml:"buffer_size"`

	// HTTP client timeout, 0 means none.
	Timeout time.Duration `yaml:"timeout"`

	// Disable the progress display.
	Quiet bool `yaml:"quiet"`

	// Log skipped manifest entries.
	Verbose bool `yaml:"verbose"`
}

// yamlConfig is used for YAML unmarshaling of human readable sizes and durations.
type yamlConfig struct {
	Dir        string `yaml:"dir"`
	Workers    int    `yaml:"workers"`
	Interval   string `yaml:"interval"`
	BufferSize string `yaml:"buffer_size"`
	Timeout    string `yaml:"timeout"`
	Quiet      bool   `yaml:"quiet"`
	Verbose    bool   `yaml:"verbose"`
}

// DefaultConfig returns a Config with the default values.
func DefaultConfig() Config {
	return Config{
		Dir:        ".",
		Workers:    DefaultWorkers(),
		Interval:   DefaultInterval,
		BufferSize: DefaultBufferSize,
	}
}

// LoadConfigFile loads a YAML config file on top of DefaultConfig.
func LoadConfigFile(path string) (Config, error) {

	data, err := os.ReadFile(path)

	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig

	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := DefaultConfig()

	if yc.Dir != "" {
		cfg.Dir = yc.Dir
	}

	if yc.Workers != 0 {
		cfg.Workers = yc.Workers
	}

	if yc.Interval != "" {
		if cfg.Interval, err = time.ParseDuration(yc.Interval); err != nil {
			return Config{}, fmt.Errorf("parse interval: %w", err)
		}
	}

	if yc.BufferSize != "" {
		if cfg.BufferSize, err = parseSize(yc.BufferSize); err != nil {
			return Config{}, fmt.Errorf("parse buffer_size: %w", err)
		}
	}

	if yc.Timeout != "" {
		if cfg.Timeout, err = time.ParseDuration(yc.Timeout); err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
	}

	cfg.Quiet = yc.Quiet
	cfg.Verbose = yc.Verbose

	return cfg, nil
}

// LoadFromEnv overrides c with GOTLIST_ environment variables.
func (c *Config) LoadFromEnv() (err error) {

	if v := os.Getenv("GOTLIST_DIR"); v != "" {
		c.Dir = v
	}

	if v := os.Getenv("GOTLIST_WORKERS"); v != "" {
		if c.Workers, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("parse GOTLIST_WORKERS: %w", err)
		}
	}

	if v := os.Getenv("GOTLIST_INTERVAL"); v != "" {
		if c.Interval, err = time.ParseDuration(v); err != nil {
			return fmt.Errorf("parse GOTLIST_INTERVAL: %w", err)
		}
	}

	if v := os.Getenv("GOTLIST_BUFFER_SIZE"); v != "" {
		if c.BufferSize, err = parseSize(v); err != nil {
			return fmt.Errorf("parse GOTLIST_BUFFER_SIZE: %w", err)
		}
	}

	if v := os.Getenv("GOTLIST_TIMEOUT"); v != "" {
		if c.Timeout, err = time.ParseDuration(v); err != nil {
			return fmt.Errorf("parse GOTLIST_TIMEOUT: %w", err)
		}
	}

	if v := os.Getenv("GOTLIST_QUIET"); v != "" {
		c.Quiet = v == "true" || v == "1"
	}

	if v := os.Getenv("GOTLIST_VERBOSE"); v != "" {
		c.Verbose = v == "true" || v == "1"
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {

	if c.Workers <= 0 {
		return errors.New("config: workers must be positive")
	}

	if c.Interval <= 0 {
		return errors.New("config: interval must be positive")
	}

	if c.BufferSize <= 0 {
		return errors.New("config: buffer_size must be positive")
	}

	if c.Timeout < 0 {
		return errors.New("config: timeout must not be negative")
	}

	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {

	if override.Dir != "" {
		c.Dir = override.Dir
	}

	if override.Workers != 0 {
		c.Workers = override.Workers
	}

	if override.Interval != 0 {
		c.Interval = override.Interval
	}

	if override.BufferSize != 0 {
		c.BufferSize = override.BufferSize
	}

	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}

	if override.Quiet {
		c.Quiet = true
	}

	if override.Verbose {
		c.Verbose = true
	}

	return c
}

// LoadConfig resolves the config from GOTLIST_CONFIG and the environment.
func LoadConfig() (Config, error) {

	var (
		err error
		cfg = DefaultConfig()
	)

	if path := os.Getenv(ConfigEnv); path != "" {
		if cfg, err = LoadConfigFile(path); err != nil {
			return Config{}, err
		}
	}

	if err = cfg.LoadFromEnv(); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

func parseSize(s string) (int, error) {

	n, err := humanize.ParseBytes(s)

	if err != nil {
		return 0, err
	}

	return int(n), nil
}
