// ABOUTME: healthlog configuration management with backend selection.
// ABOUTME: Handles settings, env overrides, the logger and the storage backend factory.

package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/harperreed/healthlog/internal/aggregate"
	"github.com/harperreed/healthlog/internal/charm"
	"github.com/harperreed/healthlog/internal/storage"
)

// Backend names.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendCharm  = "charm"
)

// DefaultListenAddr is where `healthlog serve` listens unless configured.
const DefaultListenAddr = "127.0.0.1:8080"

// Config stores healthlog configuration.
type Config struct {
	// Backend selects the storage backend: "sqlite" (default), "badger" or "charm".
	Backend string `json:"backend,omitempty"`

	// DataDir is the root directory for data storage.
	// SQLite puts healthlog.db here. Badger uses a badger/ folder.
	// Supports ~ expansion for home directory. Defaults to ~/.local/share/healthlog.
	DataDir string `json:"data_dir,omitempty"`

	LogLevel   string `json:"log_level,omitempty"`
	ListenAddr string `json:"listen_addr,omitempty"`

	// WindowDays is the default size of the recent-trend window.
	WindowDays int `json:"window_days,omitempty"`

	// WeightPick chooses the daily weight when a day has several weigh-ins: "first", "latest" or "inserted".
	WeightPick string `json:"weight_pick,omitempty"`
}

// GetBackend returns the configured backend, defaulting to "sqlite".
func (c *Config) GetBackend() string {
	if c.Backend == "" {
		return BackendSQLite
	}
	return strings.ToLower(c.Backend)
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return storage.DataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetListenAddr returns the HTTP listen address.
func (c *Config) GetListenAddr() string {
	if c.ListenAddr == "" {
		return DefaultListenAddr
	}
	return c.ListenAddr
}

// GetWindowDays returns the recent window size, defaulting to 3.
func (c *Config) GetWindowDays() int {
	if c.WindowDays <= 0 {
		return aggregate.DefaultWindowDays
	}
	return c.WindowDays
}

// RollupOptions returns the aggregation policy described by the config.
func (c *Config) RollupOptions() (aggregate.RollupOptions, error) {
	pick, err := aggregate.ParseWeightPick(c.WeightPick)
	if err != nil {
		return aggregate.RollupOptions{}, err
	}
	return aggregate.RollupOptions{WeightPick: pick}, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// OpenStorage creates a Repository implementation based on the configured backend.
func (c *Config) OpenStorage(logger *log.Logger) (storage.Repository, error) {
	return c.OpenBackend(c.GetBackend(), logger)
}

// OpenBackend opens the named backend under the configured data directory,
// regardless of which backend is selected. Used by migrate.
func (c *Config) OpenBackend(backend string, logger *log.Logger) (storage.Repository, error) {
	dataDir := c.GetDataDir()

	switch strings.ToLower(backend) {
	case BackendSQLite:
		dbPath := filepath.Join(dataDir, "healthlog.db")
		return storage.Open(dbPath)
	case BackendBadger:
		return storage.OpenBadgerStore(filepath.Join(dataDir, "badger"), logger)
	case BackendCharm:
		return charm.OpenStore()
	default:
		return nil, fmt.Errorf("unknown backend: %q", backend)
	}
}

// NewLogger builds the diagnostics logger writing to w at the configured
// level. fallback is used when no level is configured.
func (c *Config) NewLogger(w io.Writer, fallback string) (*log.Logger, error) {
	name := c.LogLevel
	if name == "" {
		name = fallback
	}
	level, err := ParseLevel(name)
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          "healthlog",
		ReportTimestamp: true,
	}), nil
}

// ParseLevel maps a level name to a log.Level.
func ParseLevel(name string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return log.DebugLevel, nil
	case "", "info":
		return log.InfoLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("invalid log level %q (use debug, info, warn or error)", name)
	}
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "healthlog", "config.json")
}

// Load reads config from disk, then applies environment overrides. A .env
// file in the working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := loadFile(GetConfigPath())
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("HEALTHLOG_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("HEALTHLOG_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("HEALTHLOG_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("HEALTHLOG_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("HEALTHLOG_WINDOW_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HEALTHLOG_WINDOW_DAYS: %w", err)
		}
		c.WindowDays = n
	}
	if v := os.Getenv("HEALTHLOG_WEIGHT_PICK"); v != "" {
		c.WeightPick = v
	}
	return nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
