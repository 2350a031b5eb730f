// Package config holds the ambient process configuration for paramsearch:
// logging, checkpoint location, and bus timing. The scenario-space JSON
// described by the external interface (parameters, conditionals, callstring,
// executable) is a separate concern handled by internal/scenario.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// LogLevel specifies the logging verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat specifies the log output format.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  LogLevel  `toml:"level"`
	Format LogFormat `toml:"format"`
	Dir    string    `toml:"dir"` // base directory under which log/<timestamp>/<component>.log is created
}

// CheckpointConfig holds checkpoint placement and compression.
type CheckpointConfig struct {
	Dir      string `toml:"dir"`      // directory under which state files are written, default "save"
	Compress bool   `toml:"compress"` // gzip new checkpoints
}

// BusConfig holds message-bus timing knobs.
type BusConfig struct {
	SocketDir   string        `toml:"socket_dir"` // base dir for rank socket files
	DialTimeout time.Duration `toml:"dial_timeout"`
	ResultPoll  time.Duration `toml:"result_poll"` // result-queue timed poll
}

// MasterConfig holds master scheduling knobs not already covered by CLI flags.
type MasterConfig struct {
	Penalty float64 `toml:"penalty"` // multiplied by timeout for interrupted results
}

// Config is the ambient process configuration for paramsearch.
type Config struct {
	Logging    LoggingConfig    `toml:"logging"`
	Checkpoint CheckpointConfig `toml:"checkpoint"`
	Bus        BusConfig        `toml:"bus"`
	Master     MasterConfig     `toml:"master"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatJSON,
			Dir:    "log",
		},
		Checkpoint: CheckpointConfig{
			Dir:      "save",
			Compress: false,
		},
		Bus: BusConfig{
			SocketDir:   "bus",
			DialTimeout: 5 * time.Second,
			ResultPoll:  5 * time.Second,
		},
		Master: MasterConfig{
			Penalty: 3,
		},
	}
}

// Load loads configuration from a TOML file, merging onto defaults. A
// missing file is not an error: the defaults are used as-is.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Checkpoint.Dir == "" {
		return fmt.Errorf("checkpoint.dir is required")
	}
	if c.Bus.SocketDir == "" {
		return fmt.Errorf("bus.socket_dir is required")
	}
	if c.Bus.ResultPoll <= 0 {
		return fmt.Errorf("bus.result_poll must be positive")
	}
	if c.Master.Penalty <= 0 {
		return fmt.Errorf("master.penalty must be positive")
	}
	return nil
}

// CheckpointDir returns the checkpoint directory: Checkpoint.Dir itself
// when absolute, otherwise joined onto baseDir.
func (c *Config) CheckpointDir(baseDir string) string {
	if filepath.IsAbs(c.Checkpoint.Dir) {
		return c.Checkpoint.Dir
	}
	return filepath.Join(baseDir, c.Checkpoint.Dir)
}

// LogDir returns the base logging directory: Logging.Dir itself when
// absolute, otherwise joined onto baseDir.
func (c *Config) LogDir(baseDir string) string {
	if filepath.IsAbs(c.Logging.Dir) {
		return c.Logging.Dir
	}
	return filepath.Join(baseDir, c.Logging.Dir)
}

// SocketDir returns the bus socket directory for a run: <socket_dir>/<runID>,
// with a relative socket_dir joined onto baseDir.
func (c *Config) SocketDir(baseDir, runID string) string {
	base := c.Bus.SocketDir
	if !filepath.IsAbs(base) {
		base = filepath.Join(baseDir, base)
	}
	return filepath.Join(base, runID)
}
