// Package config loads leadboard settings from YAML, .env and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full leadboard configuration.
type Config struct {
	Daemon DaemonConfig `yaml:"daemon"`
	Client ClientConfig `yaml:"client"`
	Log    LogConfig    `yaml:"log"`
	Board  BoardConfig  `yaml:"board"`
}

// DaemonConfig configures the lead store daemon.
type DaemonConfig struct {
	// Listen is the address the HTTP API binds to.
	Listen string `yaml:"listen"`
	// DBPath is the SQLite database file.
	DBPath string `yaml:"db"`
	// Redis enables the list cache when Addr is set.
	Redis RedisConfig `yaml:"redis"`
	// CacheTTL bounds how long a cached list snapshot lives.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ClientConfig configures API clients (board and CLI).
type ClientConfig struct {
	API     string        `yaml:"api"`
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File receives board logs while the alternate screen is active.
	File string `yaml:"file"`
}

// BoardConfig tunes the drag sensors.
type BoardConfig struct {
	TouchPrimary bool         `yaml:"touch_primary"`
	Pointer      SensorConfig `yaml:"pointer"`
	Touch        SensorConfig `yaml:"touch"`
	Keyboard     SensorConfig `yaml:"keyboard"`
}

// SensorConfig is an activation constraint for one input device.
type SensorConfig struct {
	// Distance a pointer must travel before a drag starts.
	Distance float64 `yaml:"distance"`
	// Delay a touch must be held before a drag starts.
	Delay time.Duration `yaml:"delay"`
	// Tolerance is how far a touch may wander during Delay.
	Tolerance float64 `yaml:"tolerance"`
}

// Dir returns ~/.leadboard, falling back to the working directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".leadboard"
	}
	return filepath.Join(home, ".leadboard")
}

// DefaultPath is the config file read when --config is not given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	dir := Dir()
	return &Config{
		Daemon: DaemonConfig{
			Listen:   "127.0.0.1:7466",
			DBPath:   filepath.Join(dir, "leads.db"),
			CacheTTL: 30 * time.Second,
		},
		Client: ClientConfig{
			API:     "http://127.0.0.1:7466",
			Timeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			File:   filepath.Join(dir, "board.log"),
		},
		Board: BoardConfig{
			// Terminal cells are coarse; one cell of travel is a deliberate move.
			Pointer:  SensorConfig{Distance: 1},
			Touch:    SensorConfig{Delay: 250 * time.Millisecond, Tolerance: 5},
			Keyboard: SensorConfig{},
		},
	}
}

// Load reads path over the defaults, then .env, then LEADBOARD_* variables.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
	}
	cfg.LoadFromEnv("LEADBOARD")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromEnv overrides fields from prefix_* environment variables.
func (c *Config) LoadFromEnv(prefix string) {
	if v := os.Getenv(prefix + "_LISTEN"); v != "" {
		c.Daemon.Listen = v
	}
	if v := os.Getenv(prefix + "_DB"); v != "" {
		c.Daemon.DBPath = v
	}
	if v := os.Getenv(prefix + "_REDIS_ADDR"); v != "" {
		c.Daemon.Redis.Addr = v
	}
	if v := os.Getenv(prefix + "_REDIS_PASSWORD"); v != "" {
		c.Daemon.Redis.Password = v
	}
	if v := os.Getenv(prefix + "_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Daemon.Redis.DB = n
		}
	}
	if v := os.Getenv(prefix + "_API"); v != "" {
		c.Client.API = v
	}
	if v := os.Getenv(prefix + "_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Client.Timeout = d
		}
	}
	if v := os.Getenv(prefix + "_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(prefix + "_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv(prefix + "_TOUCH_PRIMARY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Board.TouchPrimary = b
		}
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Daemon.Listen == "" {
		return fmt.Errorf("daemon.listen must be set")
	}
	if c.Daemon.DBPath == "" {
		return fmt.Errorf("daemon.db must be set")
	}
	if c.Client.API == "" {
		return fmt.Errorf("client.api must be set")
	}
	if c.Client.Timeout <= 0 {
		return fmt.Errorf("client.timeout must be positive")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log.format %q, must be: json or console", c.Log.Format)
	}
	for name, s := range map[string]SensorConfig{"pointer": c.Board.Pointer, "touch": c.Board.Touch, "keyboard": c.Board.Keyboard} {
		if s.Distance < 0 || s.Tolerance < 0 || s.Delay < 0 {
			return fmt.Errorf("board.%s thresholds must not be negative", name)
		}
	}
	return nil
}

// Save writes cfg to path, creating parent directories if needed.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
