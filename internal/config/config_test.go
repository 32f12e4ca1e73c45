package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DefaultQueueDepth, cfg.Processing.QueueDepth)
	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "prometheus", cfg.Telemetry.MetricExporter)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		env         map[string]string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults without file or env",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 4, cfg.Processing.QueueDepth)
				assert.Equal(t, "console", cfg.Logging.Output)
			},
		},
		{
			name: "file overrides defaults and keeps absent keys",
			file: "server:\n  port: 9090\nprocessing:\n  queue_depth: 8\n  schema_file: schema.yaml\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 8, cfg.Processing.QueueDepth)
				assert.Equal(t, "schema.yaml", cfg.Processing.SchemaFile)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
			},
		},
		{
			name: "env overrides file",
			file: "server:\n  port: 9090\n",
			env: map[string]string{
				"STOCKPULSE_SERVER_PORT":           "7070",
				"STOCKPULSE_LOGGING_LEVEL":         "debug",
				"STOCKPULSE_PROCESSING_QUEUE_DEPTH": "2",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, 2, cfg.Processing.QueueDepth)
			},
		},
		{
			name: "postgres without dsn is rejected",
			env: map[string]string{
				"STOCKPULSE_STORAGE_DRIVER": "postgres",
			},
			wantErr: true,
		},
		{
			name: "postgres with dsn",
			env: map[string]string{
				"STOCKPULSE_STORAGE_DRIVER": "postgres",
				"STOCKPULSE_STORAGE_DSN":    "postgres://localhost/stockpulse",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, StorageDriverPostgres, cfg.Storage.Driver)
				assert.Equal(t, "postgres://localhost/stockpulse", cfg.Storage.DSN)
			},
		},
		{
			name:    "invalid port",
			env:     map[string]string{"STOCKPULSE_SERVER_PORT": "70000"},
			wantErr: true,
		},
		{
			name:    "malformed file",
			file:    "server: [\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.file != "" {
				t.Setenv(EnvConfigFile, writeConfigFile(t, tt.file))
			} else {
				t.Setenv(EnvConfigFile, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfigFile(t, "storage:\n  driver: memory\ntelemetry:\n  trace_exporter: stdout\n")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "stdout", cfg.Telemetry.TraceExporter)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero queue depth", func(c *Config) { c.Processing.QueueDepth = 0 }},
		{"unknown log output", func(c *Config) { c.Logging.Output = "syslog" }},
		{"no allowed origins", func(c *Config) { c.Security.AllowedOrigins = nil }},
		{"ping after pong", func(c *Config) { c.WebSocket.PingPeriod = 2 * c.WebSocket.PongWait }},
		{"min conns above max", func(c *Config) { c.Storage.MinConns = c.Storage.MaxConns + 1 }},
		{"sample ratio above one", func(c *Config) { c.Telemetry.SampleRatio = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
