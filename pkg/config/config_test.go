package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, "lumen-bridge", cfg.DeviceName)
	assert.Equal(t, 10*time.Second, cfg.ReconnectInterval)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 30, cfg.CaptureFPS)
	assert.False(t, cfg.EnableTelemetry)
	assert.False(t, cfg.EnableJournal)
	assert.Equal(t, "localhost:6379", cfg.RedisAddress())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LUMEN_SETTINGS_PATH", "/etc/lumen/settings.yaml")
	t.Setenv("LUMEN_DEVICE_NAME", "living-room")
	t.Setenv("LUMEN_RECONNECT_INTERVAL", "2s")
	t.Setenv("LUMEN_CAPTURE_FPS", "60")
	t.Setenv("LUMEN_STREAM", "true")
	t.Setenv("LUMEN_ENABLE_TELEMETRY", "true")
	t.Setenv("LUMEN_REDIS_HOST", "redis.local")
	t.Setenv("LUMEN_REDIS_PORT", "6380")
	t.Setenv("LUMEN_LOG_LEVEL", "debug")

	cfg := NewConfig()
	cfg.LoadFromEnv()

	assert.Equal(t, "/etc/lumen/settings.yaml", cfg.SettingsPath)
	assert.Equal(t, "living-room", cfg.DeviceName)
	assert.Equal(t, 2*time.Second, cfg.ReconnectInterval)
	assert.Equal(t, 60, cfg.CaptureFPS)
	assert.True(t, cfg.StreamEnabled)
	assert.True(t, cfg.EnableTelemetry)
	assert.Equal(t, "redis.local:6380", cfg.RedisAddress())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadFromEnv_IgnoresMalformed(t *testing.T) {
	t.Setenv("LUMEN_CAPTURE_FPS", "fast")
	t.Setenv("LUMEN_RECONNECT_INTERVAL", "10")

	cfg := NewConfig()
	cfg.LoadFromEnv()

	assert.Equal(t, 30, cfg.CaptureFPS)
	assert.Equal(t, 10*time.Second, cfg.ReconnectInterval)
}

func TestRegisterFlags_OverrideEnv(t *testing.T) {
	t.Setenv("LUMEN_DEVICE_NAME", "from-env")

	cfg := NewConfig()
	cfg.LoadFromEnv()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{
		"--device-name", "from-flag",
		"--reconnect-interval", "500ms",
		"--enable-journal",
		"--postgres-host", "db.local",
	}))

	assert.Equal(t, "from-flag", cfg.DeviceName)
	assert.Equal(t, 500*time.Millisecond, cfg.ReconnectInterval)
	assert.True(t, cfg.EnableJournal)
	assert.Equal(t,
		"host=db.local port=5432 user=lumen password= dbname=lumen sslmode=disable",
		cfg.PostgresConnectionString())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty settings path", func(c *Config) { c.SettingsPath = "" }},
		{"empty device name", func(c *Config) { c.DeviceName = "" }},
		{"zero reconnect interval", func(c *Config) { c.ReconnectInterval = 0 }},
		{"zero connect timeout", func(c *Config) { c.ConnectTimeout = 0 }},
		{"fps too high", func(c *Config) { c.CaptureFPS = 1000 }},
		{"telemetry without redis host", func(c *Config) { c.EnableTelemetry = true; c.RedisHost = "" }},
		{"journal with bad port", func(c *Config) { c.EnableJournal = true; c.PostgresPort = 0 }},
		{"daylight with bad latitude", func(c *Config) { c.EnableDaylightSchedule = true; c.Latitude = 91 }},
		{"bad health port", func(c *Config) { c.HealthPort = 70000 }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_DisabledStoresSkipChecks(t *testing.T) {
	cfg := NewConfig()
	cfg.RedisHost = ""
	cfg.PostgresDB = ""
	cfg.Latitude = 500

	assert.NoError(t, cfg.Validate())
}
