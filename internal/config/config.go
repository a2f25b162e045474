// Package config provides configuration management for the mapdone application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration settings for the mapdone application.
// Configuration precedence: CLI flags > Environment variables > Config file > Defaults
type Config struct {
	// SongsDir is the root directory scanned for map files
	SongsDir string

	// StateFile is the path of the library file or database
	StateFile string

	// StateBackend selects the library storage: json or sqlite
	StateBackend string

	// LogLevel controls logging verbosity (debug, info, warn, error)
	LogLevel string

	// LogFormat is console or json
	LogFormat string

	// MapperFilter keeps only maps whose creator or difficulty name contains it
	MapperFilter string

	// Workers is the number of scan workers (0 = min(NumCPU, 4))
	Workers int

	// IgnoreStartAndBreaks counts breaks as covered and ignores the lead-in
	// when computing progress
	IgnoreStartAndBreaks bool

	// PruneMissing removes items whose map file disappeared
	PruneMissing bool

	// ScanInterval is the time between scans in daemon mode
	ScanInterval time.Duration

	// HealthAddr is the listen address for the daemon HTTP endpoints (empty = disabled)
	HealthAddr string

	// PIDFile is written by the daemon when set
	PIDFile string
}

// Supported values for enumerated settings.
var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"console", "json"}
	validBackends   = []string{"json", "sqlite"}
)

// maxWorkers bounds the workers setting.
const maxWorkers = 64

// Load reads configuration from multiple sources and returns a Config instance.
// Sources are checked in this order: CLI flags > env vars > config file > defaults.
// flags may be nil; only flags named after config keys are bound.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Set up config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		// Look for config in home directory
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
			v.SetConfigName(".mapdone")
			v.SetConfigType("yaml")
		}
	}

	// Read config file if it exists (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Enable environment variable support
	v.SetEnvPrefix("MAPDONE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	config := &Config{
		SongsDir:             v.GetString("songs-dir"),
		StateFile:            v.GetString("state-file"),
		StateBackend:         v.GetString("state-backend"),
		LogLevel:             v.GetString("log-level"),
		LogFormat:            v.GetString("log-format"),
		MapperFilter:         v.GetString("mapper-filter"),
		Workers:              v.GetInt("workers"),
		IgnoreStartAndBreaks: v.GetBool("ignore-start-and-breaks"),
		PruneMissing:         v.GetBool("prune-missing"),
		ScanInterval:         v.GetDuration("scan-interval"),
		HealthAddr:           v.GetString("health-addr"),
		PIDFile:              v.GetString("pid-file"),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Keys lists every configuration key. Flags with these names are bound.
func Keys() []string {
	return []string{
		"songs-dir", "state-file", "state-backend", "log-level", "log-format",
		"mapper-filter", "workers", "ignore-start-and-breaks", "prune-missing",
		"scan-interval", "health-addr", "pid-file",
	}
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for _, key := range Keys() {
		f := flags.Lookup(key)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", key, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("songs-dir", DefaultSongsDir())
	v.SetDefault("state-file", "")
	v.SetDefault("state-backend", "json")
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "console")
	v.SetDefault("mapper-filter", "")
	v.SetDefault("workers", 0)
	v.SetDefault("ignore-start-and-breaks", false)
	v.SetDefault("prune-missing", false)
	v.SetDefault("scan-interval", 10*time.Minute)
	v.SetDefault("health-addr", "")
	v.SetDefault("pid-file", "")
}

// DefaultSongsDir is where the game keeps beatmaps on this platform
func DefaultSongsDir() string {
	if runtime.GOOS == "windows" {
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "osu!", "Songs")
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, "osu!", "Songs")
}

// DefaultStateFile returns the library location for a backend
func DefaultStateFile(backend string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	name := "library.json"
	if backend == "sqlite" {
		name = "library.db"
	}
	return filepath.Join(home, ".mapdone", name)
}

// Validate checks that the configuration is valid and internally consistent
func (c *Config) Validate() error {
	var err error

	// Validate songs directory
	if strings.TrimSpace(c.SongsDir) == "" {
		return fmt.Errorf("songs-dir cannot be empty")
	}
	if c.SongsDir, err = expandHome(c.SongsDir); err != nil {
		return fmt.Errorf("failed to expand home directory in songs-dir: %w", err)
	}

	// Validate state backend
	c.StateBackend = strings.ToLower(strings.TrimSpace(c.StateBackend))
	if !contains(validBackends, c.StateBackend) {
		return fmt.Errorf("invalid state-backend %q, must be one of: %s", c.StateBackend, strings.Join(validBackends, ", "))
	}

	// Default and expand the state file path
	if c.StateFile == "" {
		c.StateFile = DefaultStateFile(c.StateBackend)
	}
	if c.StateFile, err = expandHome(c.StateFile); err != nil {
		return fmt.Errorf("failed to expand home directory in state-file: %w", err)
	}

	// Create state file directory if it doesn't exist
	stateDir := filepath.Dir(c.StateFile)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state file directory %s: %w", stateDir, err)
	}

	// Validate log level
	c.LogLevel = strings.ToLower(c.LogLevel)
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log-level %q, must be one of: %s", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	// Validate log format
	c.LogFormat = strings.ToLower(c.LogFormat)
	if !contains(validLogFormats, c.LogFormat) {
		return fmt.Errorf("invalid log-format %q, must be one of: %s", c.LogFormat, strings.Join(validLogFormats, ", "))
	}

	c.MapperFilter = strings.TrimSpace(c.MapperFilter)

	if c.Workers < 0 || c.Workers > maxWorkers {
		return fmt.Errorf("workers must be between 0 and %d, got %d", maxWorkers, c.Workers)
	}

	if c.ScanInterval < 0 {
		return fmt.Errorf("scan-interval must not be negative, got %s", c.ScanInterval)
	}

	if c.PIDFile != "" {
		if c.PIDFile, err = expandHome(c.PIDFile); err != nil {
			return fmt.Errorf("failed to expand home directory in pid-file: %w", err)
		}
	}

	return nil
}

// ValidateDaemon adds the checks that only apply to daemon mode
func (c *Config) ValidateDaemon() error {
	if c.ScanInterval <= 0 {
		return fmt.Errorf("scan-interval must be positive in daemon mode")
	}
	return nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[2:]), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	filter := c.MapperFilter
	if filter == "" {
		filter = "none"
	}
	health := c.HealthAddr
	if health == "" {
		health = "disabled"
	}

	return fmt.Sprintf(`Configuration:
  SongsDir: %s
  StateFile: %s
  StateBackend: %s
  LogLevel: %s
  LogFormat: %s
  MapperFilter: %s
  Workers: %d
  IgnoreStartAndBreaks: %t
  PruneMissing: %t
  ScanInterval: %s
  HealthAddr: %s
  PIDFile: %s`,
		c.SongsDir,
		c.StateFile,
		c.StateBackend,
		c.LogLevel,
		c.LogFormat,
		filter,
		c.Workers,
		c.IgnoreStartAndBreaks,
		c.PruneMissing,
		c.ScanInterval,
		health,
		c.PIDFile,
	)
}
