// Package config provides unified configuration loading for intersim.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/intersim/internal/simulation"
)

// Config contains all intersim configuration settings.
type Config struct {
	// Simulation holds the timings of a single trial.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Suite configures the randomized suite.
	Suite SuiteConfig `json:"suite" yaml:"suite"`

	// Logging contains settings for the transcript and event log.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// History controls run recording.
	History HistoryConfig `json:"history" yaml:"history"`
}

// SimulationConfig mirrors simulation.Settings.
type SimulationConfig struct {
	CheckInterval time.Duration `json:"check_interval" yaml:"check_interval"`
	BaseDelay     time.Duration `json:"base_delay" yaml:"base_delay"`
	CrossingFloor time.Duration `json:"crossing_floor" yaml:"crossing_floor"`
	Timeout       time.Duration `json:"timeout" yaml:"timeout"`
	PollInterval  time.Duration `json:"poll_interval" yaml:"poll_interval"`
	ShutdownGrace time.Duration `json:"shutdown_grace" yaml:"shutdown_grace"`
}

// SuiteConfig configures the randomized suite.
type SuiteConfig struct {
	Iterations  int `json:"iterations" yaml:"iterations"`
	MinVehicles int `json:"min_vehicles" yaml:"min_vehicles"`
	MaxVehicles int `json:"max_vehicles" yaml:"max_vehicles"`

	// Seed fixes the random stream. Zero picks a time-based seed.
	Seed uint64 `json:"seed" yaml:"seed"`

	// SharedIntersection puts every vehicle of an iteration on one
	// intersection instead of giving each its own.
	SharedIntersection bool `json:"shared_intersection" yaml:"shared_intersection"`
}

// LoggingConfig configures intersim's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables the event log at .intersim/events.jsonl.
	Level string `json:"level" yaml:"level"`
}

// HistoryConfig controls run recording.
type HistoryConfig struct {
	// Enabled records every run to .intersim/intersim.db.
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// Default returns a Config with the standard timings.
func Default() *Config {
	s := simulation.DefaultSettings()
	suite := simulation.DefaultSuiteOptions()
	return &Config{
		Simulation: SimulationConfig{
			CheckInterval: s.CheckInterval,
			BaseDelay:     s.BaseDelay,
			CrossingFloor: s.CrossingFloor,
			Timeout:       s.Timeout,
			PollInterval:  s.PollInterval,
			ShutdownGrace: s.ShutdownGrace,
		},
		Suite: SuiteConfig{
			Iterations:  suite.Iterations,
			MinVehicles: suite.MinVehicles,
			MaxVehicles: suite.MaxVehicles,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Path returns ~/.intersim/config.yaml.
func Path() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".intersim", "config.yaml"), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.intersim/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	if configPath, err := Path(); err == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
// Keys missing from the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return config, nil
}

// Save writes the configuration to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	s := c.Simulation
	if s.CheckInterval <= 0 {
		return fmt.Errorf("check_interval must be positive, got %v", s.CheckInterval)
	}
	if s.BaseDelay < 0 || s.CrossingFloor < 0 {
		return fmt.Errorf("base_delay and crossing_floor must be non-negative, got %v and %v", s.BaseDelay, s.CrossingFloor)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", s.Timeout)
	}
	if s.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", s.PollInterval)
	}
	if s.ShutdownGrace < 0 {
		return fmt.Errorf("shutdown_grace must be non-negative, got %v", s.ShutdownGrace)
	}

	if err := c.SuiteOptions().Validate(); err != nil {
		return err
	}

	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// Settings converts the simulation section.
func (c *Config) Settings() simulation.Settings {
	s := c.Simulation
	return simulation.Settings{
		CheckInterval: s.CheckInterval,
		BaseDelay:     s.BaseDelay,
		CrossingFloor: s.CrossingFloor,
		Timeout:       s.Timeout,
		PollInterval:  s.PollInterval,
		ShutdownGrace: s.ShutdownGrace,
	}
}

// SuiteOptions converts the suite section.
func (c *Config) SuiteOptions() simulation.SuiteOptions {
	return simulation.SuiteOptions{
		Iterations:  c.Suite.Iterations,
		MinVehicles: c.Suite.MinVehicles,
		MaxVehicles: c.Suite.MaxVehicles,
		Seed:        c.Suite.Seed,
		Shared:      c.Suite.SharedIntersection,
	}
}

var validLevels = map[string]bool{"info": true, "debug": true, "trace": true}

// setting binds a dotted key to a field.
type setting struct {
	get func(c *Config) any
	set func(c *Config, v string) error
}

func durationSetting(field func(c *Config) *time.Duration) setting {
	return setting{
		get: func(c *Config) any { return field(c).String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid duration: %s", v)
			}
			if d < 0 {
				return fmt.Errorf("duration must be non-negative, got %s", v)
			}
			*field(c) = d
			return nil
		},
	}
}

func intSetting(field func(c *Config) *int) setting {
	return setting{
		get: func(c *Config) any { return *field(c) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid integer: %s", v)
			}
			*field(c) = n
			return nil
		},
	}
}

func boolSetting(field func(c *Config) *bool) setting {
	return setting{
		get: func(c *Config) any { return *field(c) },
		set: func(c *Config, v string) error {
			*field(c) = v == "true" || v == "1"
			return nil
		},
	}
}

var settings = map[string]setting{
	"simulation.check_interval": durationSetting(func(c *Config) *time.Duration { return &c.Simulation.CheckInterval }),
	"simulation.base_delay":     durationSetting(func(c *Config) *time.Duration { return &c.Simulation.BaseDelay }),
	"simulation.crossing_floor": durationSetting(func(c *Config) *time.Duration { return &c.Simulation.CrossingFloor }),
	"simulation.timeout":        durationSetting(func(c *Config) *time.Duration { return &c.Simulation.Timeout }),
	"simulation.poll_interval":  durationSetting(func(c *Config) *time.Duration { return &c.Simulation.PollInterval }),
	"simulation.shutdown_grace": durationSetting(func(c *Config) *time.Duration { return &c.Simulation.ShutdownGrace }),
	"suite.iterations":          intSetting(func(c *Config) *int { return &c.Suite.Iterations }),
	"suite.min_vehicles":        intSetting(func(c *Config) *int { return &c.Suite.MinVehicles }),
	"suite.max_vehicles":        intSetting(func(c *Config) *int { return &c.Suite.MaxVehicles }),
	"suite.seed": {
		get: func(c *Config) any { return c.Suite.Seed },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid seed: %s", v)
			}
			c.Suite.Seed = n
			return nil
		},
	},
	"suite.shared_intersection": boolSetting(func(c *Config) *bool { return &c.Suite.SharedIntersection }),
	"logging.level": {
		get: func(c *Config) any { return c.Logging.Level },
		set: func(c *Config, v string) error {
			v = strings.ToLower(v)
			if !validLevels[v] {
				return fmt.Errorf("invalid log level: %s (valid: info, debug, trace)", v)
			}
			c.Logging.Level = v
			return nil
		},
	},
	"history.enabled": boolSetting(func(c *Config) *bool { return &c.History.Enabled }),
}

// Keys returns every dotted configuration key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get retrieves a configuration value by dot-notation key.
func (c *Config) Get(key string) (any, bool) {
	s, ok := settings[key]
	if !ok {
		return nil, false
	}
	return s.get(c), true
}

// Set sets a configuration value by dot-notation key.
func (c *Config) Set(key, value string) error {
	s, ok := settings[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return s.set(c, value)
}

// applyEnvOverrides applies INTERSIM_* environment variable overrides.
// Malformed values are ignored.
func applyEnvOverrides(config *Config) {
	envKeys := map[string]string{
		"INTERSIM_CHECK_INTERVAL":  "simulation.check_interval",
		"INTERSIM_BASE_DELAY":      "simulation.base_delay",
		"INTERSIM_CROSSING_FLOOR":  "simulation.crossing_floor",
		"INTERSIM_TIMEOUT":         "simulation.timeout",
		"INTERSIM_POLL_INTERVAL":   "simulation.poll_interval",
		"INTERSIM_SHUTDOWN_GRACE":  "simulation.shutdown_grace",
		"INTERSIM_ITERATIONS":      "suite.iterations",
		"INTERSIM_SEED":            "suite.seed",
		"INTERSIM_SHARED":          "suite.shared_intersection",
		"INTERSIM_LOG_LEVEL":       "logging.level",
		"INTERSIM_HISTORY_ENABLED": "history.enabled",
	}
	for env, key := range envKeys {
		if v := os.Getenv(env); v != "" {
			_ = config.Set(key, v)
		}
	}
}
