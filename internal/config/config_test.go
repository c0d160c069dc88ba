package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("DATA_DIR", "/tmp/lv")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/lv", cfg.DataDir)
	assert.Equal(t, filepath.Join("/tmp/lv", "logviewer.db"), cfg.DBPath)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "http", cfg.Transport)
	assert.Equal(t, 10000, cfg.MaxReadLines)
	assert.False(t, cfg.IndexMirror)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logviewer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /srv/lv
http_port: 9100
allowed_paths:
  - /var/log/**
search_max_results: 500
`), 0o644))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("HTTP_PORT", "9200")
	t.Setenv("ALLOWED_PATHS", "/var/log/**; /opt/app/*.log")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/lv", cfg.DataDir)
	assert.Equal(t, 9200, cfg.HTTPPort)
	assert.Equal(t, 500, cfg.SearchMaxResults)
	assert.Equal(t, []string{"/var/log/**", "/opt/app/*.log"}, cfg.AllowedPaths)
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_port: [oops"), 0o644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"bad transport", func(c *Config) { c.Transport = "grpc" }, true},
		{"bad port", func(c *Config) { c.HTTPPort = 70000 }, true},
		{"stdio ignores port", func(c *Config) { c.Transport = "stdio"; c.HTTPPort = 0 }, false},
		{"negative read limit", func(c *Config) { c.MaxReadLines = -1 }, true},
		{"bad glob", func(c *Config) { c.AllowedPaths = []string{"/var/log/[a"} }, true},
		{"mirror without db", func(c *Config) { c.IndexMirror = true; c.ClickHouseDB = "" }, true},
		{"bad tracing protocol", func(c *Config) { c.TracingEnabled = true; c.TracingProtocol = "udp" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParsePathList(t *testing.T) {
	assert.Nil(t, parsePathList(""))
	assert.Equal(t, []string{"a", "b"}, parsePathList(" a ;; b ;"))
}
