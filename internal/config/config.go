// Package config resolves ccmem runtime settings.
//
// Settings are layered: built-in defaults, then an optional YAML file,
// then environment variables. The CLI loads .env files before calling
// Load so they surface through the environment layer.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables recognised by Load.
const (
	EnvConfigFile    = "CCMEM_CONFIG"
	EnvDataDir       = "CCMEM_DATA_DIR"
	EnvDBFile        = "CCMEM_DB"
	EnvDashboardAddr = "CCMEM_DASHBOARD_ADDR"
	EnvBasePath      = "CCMEM_BASE_PATH"
	EnvBusyTimeout   = "CCMEM_BUSY_TIMEOUT"
	EnvLogLevel      = "LOG_LEVEL"
)

// Config holds everything the store, transports and logger need.
type Config struct {
	DataDir       string        `yaml:"data_dir"`
	DBFile        string        `yaml:"db_file"`
	DashboardAddr string        `yaml:"dashboard_addr"`
	BasePath      string        `yaml:"base_path"`
	LogLevel      string        `yaml:"log_level"`
	BusyTimeout   time.Duration `yaml:"busy_timeout"`
	MaxOpenConns  int           `yaml:"max_open_conns"`
}

// DefaultConfig returns the settings used when nothing overrides them.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:       filepath.Join(home, ".ccmem"),
		DBFile:        "ccmem.db",
		DashboardAddr: "127.0.0.1:3001",
		LogLevel:      "info",
		BusyTimeout:   5 * time.Second,
		MaxOpenConns:  4,
	}
}

// DBPath returns the database file location. An absolute DBFile is used
// as is; a relative one lives under DataDir.
func (c Config) DBPath() string {
	if filepath.IsAbs(c.DBFile) {
		return c.DBFile
	}
	return filepath.Join(c.DataDir, c.DBFile)
}

// DashboardURL is the address a browser uses to reach the dashboard. A
// wildcard host is shown as localhost.
func (c Config) DashboardURL() string {
	addr := c.DashboardAddr
	if strings.HasPrefix(addr, ":") || strings.HasPrefix(addr, "0.0.0.0:") {
		addr = "localhost:" + addr[strings.LastIndex(addr, ":")+1:]
	}
	return "http://" + addr + c.BasePath + "/"
}

// Merge overlays the non-zero fields of override onto c.
func (c Config) Merge(override Config) Config {
	result := c
	if v := strings.TrimSpace(override.DataDir); v != "" {
		result.DataDir = v
	}
	if v := strings.TrimSpace(override.DBFile); v != "" {
		result.DBFile = v
	}
	if v := strings.TrimSpace(override.DashboardAddr); v != "" {
		result.DashboardAddr = v
	}
	if v := strings.TrimSpace(override.BasePath); v != "" {
		result.BasePath = normalizeBasePath(v)
	}
	if v := strings.TrimSpace(override.LogLevel); v != "" {
		result.LogLevel = strings.ToLower(v)
	}
	if override.BusyTimeout > 0 {
		result.BusyTimeout = override.BusyTimeout
	}
	if override.MaxOpenConns > 0 {
		result.MaxOpenConns = override.MaxOpenConns
	}
	return result
}

// Load builds a Config from defaults, the YAML file at path (or the file
// named by CCMEM_CONFIG when path is empty) and the environment.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if strings.TrimSpace(path) == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if strings.TrimSpace(path) != "" {
		fileCfg, err := loadFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = cfg.Merge(fileCfg)
	}

	envCfg, err := loadEnv()
	if err != nil {
		return Config{}, err
	}
	return cfg.Merge(envCfg), nil
}

func loadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func loadEnv() (Config, error) {
	cfg := Config{
		DataDir:       os.Getenv(EnvDataDir),
		DBFile:        os.Getenv(EnvDBFile),
		DashboardAddr: os.Getenv(EnvDashboardAddr),
		BasePath:      os.Getenv(EnvBasePath),
		LogLevel:      os.Getenv(EnvLogLevel),
	}
	if raw := strings.TrimSpace(os.Getenv(EnvBusyTimeout)); raw != "" {
		d, err := parseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", EnvBusyTimeout, err)
		}
		cfg.BusyTimeout = d
	}
	return cfg, nil
}

// parseDuration accepts Go duration syntax or a bare millisecond count.
func parseDuration(raw string) (time.Duration, error) {
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(raw)
}

func normalizeBasePath(p string) string {
	p = "/" + strings.Trim(p, "/")
	if p == "/" {
		return ""
	}
	return p
}
