package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp runs the test from an empty directory so no stray .env or
// config.yaml is picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	original, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(original) })
	return dir
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		dotenv      string
		wantErr     string
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
				assert.Equal(t, []string{"http://localhost:8080"}, cfg.Security.AllowedOrigins)
				assert.True(t, cfg.Security.EnableCORS)
				assert.False(t, cfg.Security.Access.Enabled)
				assert.Equal(t, 100.0, cfg.Security.RateLimit.RPS)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "data/finalapi.csv", cfg.Data.Path)
				assert.Equal(t, 0.8, cfg.Data.RetentionHigh)
				assert.Equal(t, 0.5, cfg.Data.RetentionMedium)
				assert.Equal(t, 4, cfg.Data.MaxPanelWorkers)
				assert.Equal(t, "agency-pulse", cfg.Telemetry.ServiceName)
				assert.Equal(t, "prometheus", cfg.Telemetry.MetricExporter)
				assert.Equal(t, 1024, cfg.WebSocket.ReadBufferSize)
			},
		},
		{
			name: "environment variables",
			env: map[string]string{
				"AGENCY_SERVER_PORT":              "9090",
				"AGENCY_SERVER_READ_TIMEOUT":      "30s",
				"AGENCY_SECURITY_ALLOWED_ORIGINS": "http://example.com,https://example.com",
				"AGENCY_SECURITY_ENABLE_CORS":     "false",
				"AGENCY_LOGGING_LEVEL":            "DEBUG",
				"AGENCY_LOGGING_FORMAT":           "text",
				"AGENCY_DATA_RETENTION_HIGH":      "0.9",
				"AGENCY_DATA_RETENTION_MEDIUM":    "0.6",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, []string{"http://example.com", "https://example.com"}, cfg.Security.AllowedOrigins)
				assert.False(t, cfg.Security.EnableCORS)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format, "format is always json")
				assert.Equal(t, 0.9, cfg.Data.RetentionHigh)
				assert.Equal(t, 0.6, cfg.Data.RetentionMedium)
			},
		},
		{
			name: "file overrides defaults and env overrides file",
			env:  map[string]string{"AGENCY_SERVER_PORT": "7070"},
			file: `
server:
  port: 6060
  read_timeout: 20s
security:
  enable_cors: false
  allowed_origins: ["http://file.example.com"]
logging:
  level: warn
data:
  max_panel_workers: 8
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, 20*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
				assert.False(t, cfg.Security.EnableCORS)
				assert.Equal(t, []string{"http://file.example.com"}, cfg.Security.AllowedOrigins)
				assert.Equal(t, "warn", cfg.Logging.Level)
				assert.Equal(t, 8, cfg.Data.MaxPanelWorkers)
			},
		},
		{
			name:   "dotenv file",
			dotenv: "AGENCY_DATA_MAX_PANEL_WORKERS=2\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 2, cfg.Data.MaxPanelWorkers)
			},
		},
		{
			name:    "invalid port number",
			env:     map[string]string{"AGENCY_SERVER_PORT": "99999"},
			wantErr: "port",
		},
		{
			name:    "negative timeout",
			env:     map[string]string{"AGENCY_SERVER_READ_TIMEOUT": "-5s"},
			wantErr: "read_timeout",
		},
		{
			name:    "empty allowed origins",
			env:     map[string]string{"AGENCY_SECURITY_ALLOWED_ORIGINS": ""},
			wantErr: "allowed_origins",
		},
		{
			name: "retention thresholds out of order",
			env: map[string]string{
				"AGENCY_DATA_RETENTION_HIGH":   "0.4",
				"AGENCY_DATA_RETENTION_MEDIUM": "0.5",
			},
			wantErr: "retention_high",
		},
		{
			name:    "access gate without token hash",
			env:     map[string]string{"AGENCY_SECURITY_ACCESS_ENABLED": "true"},
			wantErr: "token_hash",
		},
		{
			name:    "unknown log output",
			env:     map[string]string{"AGENCY_LOGGING_OUTPUT": "syslog"},
			wantErr: "output",
		},
		{
			name:    "malformed env value",
			env:     map[string]string{"AGENCY_SERVER_PORT": "eighty"},
			wantErr: "env",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := chdirTemp(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.dotenv != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(tt.dotenv), 0o644))
				t.Cleanup(func() { os.Unsetenv("AGENCY_DATA_MAX_PANEL_WORKERS") })
			}
			configFile := ""
			if tt.file != "" {
				configFile = filepath.Join(dir, "config.yaml")
				require.NoError(t, os.WriteFile(configFile, []byte(tt.file), 0o644))
			}

			cfg, err := LoadFrom(configFile)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoad_FindsConfigFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "config.yaml"),
		[]byte("server:\n  port: 5050\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5050, cfg.Server.Port)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	configFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("server: [unterminated"), 0o644))

	_, err := LoadFrom(configFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config from file")
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.validate())
}

func TestResolvePath(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "present.csv"), []byte("x"), 0o644))

	assert.Equal(t, "", ResolvePath(""))
	assert.Equal(t, "present.csv", ResolvePath("present.csv"))
	abs := filepath.Join(dir, "elsewhere.csv")
	assert.Equal(t, abs, ResolvePath(abs))
	assert.Equal(t, "missing/file.csv", ResolvePath("missing/file.csv"))
}

func TestPaths_EnsureDirectories(t *testing.T) {
	root := t.TempDir()
	p := &Paths{
		ExecutableDir: root,
		DataDir:       filepath.Join(root, "data"),
		ExportsDir:    filepath.Join(root, "data", "exports"),
		LogsDir:       filepath.Join(root, "logs"),
	}

	require.NoError(t, p.EnsureDirectories())
	assert.True(t, FileExists(p.ExportsDir))
	assert.True(t, FileExists(p.LogsDir))
}
