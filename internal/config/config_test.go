package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "5000", cfg.Server.Port)
	assert.True(t, cfg.Database.AutoMigrate)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "8080"
  read_timeout: 3s
  rate_limit: 2.5
  rate_burst: 5
database:
  driver: postgres
  url: postgres://user:pass@db:5432/incidents
  connect_attempts: 2
log:
  level: debug
  format: text
cors:
  allowed_origins:
    - https://status.example.com
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.InDelta(t, 2.5, cfg.Server.RateLimit, 0.0001)
	assert.Equal(t, 5, cfg.Server.RateBurst)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://user:pass@db:5432/incidents", cfg.Database.URL)
	assert.Equal(t, 2, cfg.Database.ConnectAttempts)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, []string{"https://status.example.com"}, cfg.CORS.AllowedOrigins)

	// untouched keys keep their defaults
	assert.Equal(t, "9090", cfg.Server.MetricsPort)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "8080"
database:
  driver: sqlite
  path: /tmp/from-file.db
`)
	t.Setenv("APP_SERVER_PORT", "7070")
	t.Setenv("APP_SERVER_METRICS_PORT", "7071")
	t.Setenv("APP_DATABASE_DRIVER", "postgres")
	t.Setenv("APP_DATABASE_URL", "postgres://env@db/incidents")
	t.Setenv("APP_DATABASE_AUTO_MIGRATE", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "7071", cfg.Server.MetricsPort)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://env@db/incidents", cfg.Database.URL)
	assert.Equal(t, "/tmp/from-file.db", cfg.Database.Path)
	assert.False(t, cfg.Database.AutoMigrate)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidConfig(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.url is required")
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"APP_DATABASE_URL", "database.url"},
		{"APP_SERVER_METRICS_PORT", "server.metrics_port"},
		{"APP_CORS_ALLOWED_ORIGINS", "cors.allowed_origins"},
		{"APP_LOG_LEVEL", "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, envKey(tt.in))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			modify: func(*Config) {},
		},
		{
			name:    "unknown driver",
			modify:  func(c *Config) { c.Database.Driver = "mysql" },
			wantErr: `unsupported database.driver "mysql"`,
		},
		{
			name:    "sqlite without path",
			modify:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path is required",
		},
		{
			name: "postgres without url",
			modify: func(c *Config) {
				c.Database.Driver = DriverPostgres
				c.Database.URL = ""
			},
			wantErr: "database.url is required",
		},
		{
			name:    "empty port",
			modify:  func(c *Config) { c.Server.Port = "" },
			wantErr: "server.port is required",
		},
		{
			name:    "negative rate limit",
			modify:  func(c *Config) { c.Server.RateLimit = -1 },
			wantErr: "server.rate_limit must not be negative",
		},
		{
			name: "rate limit without burst",
			modify: func(c *Config) {
				c.Server.RateLimit = 10
				c.Server.RateBurst = 0
			},
			wantErr: "server.rate_burst must be positive",
		},
		{
			name:    "unknown log format",
			modify:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: `unsupported log.format "xml"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	cfg, err := Load("../../configs/config.example.yaml")
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
}
