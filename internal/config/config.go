package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "configs/logviewer.yaml"

// Config holds all configuration for the application
type Config struct {
	// Storage
	DataDir string `yaml:"data_dir"`
	DBPath  string `yaml:"db_path"` // defaults to <data_dir>/logviewer.db

	// Transport
	HTTPPort  int    `yaml:"http_port"`
	Transport string `yaml:"transport"` // "http" or "stdio"

	// File access
	MmapDisabled     bool     `yaml:"mmap_disabled"`
	AllowedPaths     []string `yaml:"allowed_paths"` // doublestar globs; empty allows everything
	MaxReadLines     int      `yaml:"max_read_lines"`
	SearchMaxResults int      `yaml:"search_max_results"` // 0 = unlimited

	// ClickHouse mirror of the index store
	IndexMirror    bool   `yaml:"index_mirror"`
	ClickHouseHost string `yaml:"clickhouse_host"`
	ClickHousePort int    `yaml:"clickhouse_port"`
	ClickHouseDB   string `yaml:"clickhouse_db"`

	// Observability
	LogLevel        string `yaml:"log_level"`
	LogFile         string `yaml:"log_file"`
	TracingEnabled  bool   `yaml:"tracing_enabled"`
	TracingEndpoint string `yaml:"tracing_endpoint"`
	TracingProtocol string `yaml:"tracing_protocol"`
}

// Default returns the configuration used when neither file nor env set a value
func Default() *Config {
	return &Config{
		DataDir:          defaultDataDir(),
		HTTPPort:         8080,
		Transport:        "http",
		MaxReadLines:     10000,
		ClickHousePort:   9000,
		ClickHouseHost:   "localhost",
		ClickHouseDB:     "logs",
		LogLevel:         "info",
		TracingProtocol:  "grpc",
		SearchMaxResults: 0,
	}
}

// Load reads the optional YAML file named by CONFIG_PATH, then applies
// environment overrides and validates the result
func Load() (*Config, error) {
	path := getEnv("CONFIG_PATH", defaultConfigPath)

	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "logviewer.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFile loads path over the defaults. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.DBPath = getEnv("DB_PATH", c.DBPath)

	c.HTTPPort = getEnvInt("HTTP_PORT", c.HTTPPort)
	c.Transport = getEnv("TRANSPORT", c.Transport)

	c.MmapDisabled = getEnvBool("MMAP_DISABLED", c.MmapDisabled)
	if paths := parsePathList(os.Getenv("ALLOWED_PATHS")); paths != nil {
		c.AllowedPaths = paths
	}
	c.MaxReadLines = getEnvInt("MAX_READ_LINES", c.MaxReadLines)
	c.SearchMaxResults = getEnvInt("SEARCH_MAX_RESULTS", c.SearchMaxResults)

	c.IndexMirror = getEnvBool("INDEX_MIRROR", c.IndexMirror)
	c.ClickHouseHost = getEnv("CLICKHOUSE_HOST", c.ClickHouseHost)
	c.ClickHousePort = getEnvInt("CLICKHOUSE_PORT", c.ClickHousePort)
	c.ClickHouseDB = getEnv("CLICKHOUSE_DB", c.ClickHouseDB)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
	c.TracingEnabled = getEnvBool("TRACING_ENABLED", c.TracingEnabled)
	c.TracingEndpoint = getEnv("TRACING_ENDPOINT", c.TracingEndpoint)
	c.TracingProtocol = getEnv("TRACING_PROTOCOL", c.TracingProtocol)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DataDir == "" && c.DBPath == "" {
		return fmt.Errorf("DATA_DIR or DB_PATH is required")
	}
	if c.Transport != "http" && c.Transport != "stdio" {
		return fmt.Errorf("TRANSPORT must be 'http' or 'stdio', got %q", c.Transport)
	}
	if c.Transport == "http" && (c.HTTPPort <= 0 || c.HTTPPort > 65535) {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.MaxReadLines < 0 {
		return fmt.Errorf("MAX_READ_LINES must not be negative")
	}
	if c.SearchMaxResults < 0 {
		return fmt.Errorf("SEARCH_MAX_RESULTS must not be negative")
	}
	for _, pattern := range c.AllowedPaths {
		if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
			return fmt.Errorf("ALLOWED_PATHS contains invalid pattern %q", pattern)
		}
	}
	if c.IndexMirror {
		if c.ClickHouseHost == "" {
			return fmt.Errorf("CLICKHOUSE_HOST is required when INDEX_MIRROR is enabled")
		}
		if c.ClickHousePort <= 0 || c.ClickHousePort > 65535 {
			return fmt.Errorf("CLICKHOUSE_PORT must be between 1 and 65535")
		}
		if c.ClickHouseDB == "" {
			return fmt.Errorf("CLICKHOUSE_DB is required when INDEX_MIRROR is enabled")
		}
	}
	if c.TracingEnabled && c.TracingProtocol != "grpc" && c.TracingProtocol != "http" {
		return fmt.Errorf("TRACING_PROTOCOL must be 'grpc' or 'http'")
	}

	return nil
}

func defaultDataDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "log-viewer")
	}
	return ".log-viewer"
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// parsePathList parses a semicolon-separated list of paths
func parsePathList(pathsStr string) []string {
	if pathsStr == "" {
		return nil
	}

	paths := strings.Split(pathsStr, ";")
	result := make([]string, 0, len(paths))

	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
