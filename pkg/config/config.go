package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/pflag"
)

// Config holds the configuration for a lumen service
type Config struct {
	// Settings record (LED layout, MQTT target and credentials)
	SettingsPath string
	DeviceName   string

	// Broker behaviour
	ReconnectInterval time.Duration
	ConnectTimeout    time.Duration

	// Capture loop
	CaptureFPS    int
	StreamEnabled bool

	// Redis configuration (live telemetry)
	EnableTelemetry bool
	RedisHost       string
	RedisPort       int
	RedisPassword   string
	RedisDB         int

	// Postgres configuration (event journal)
	EnableJournal              bool
	PostgresHost               string
	PostgresPort               int
	PostgresUser               string
	PostgresPassword           string
	PostgresDB                 string
	PostgresSSLMode            string
	PostgresMaxConnections     int
	PostgresMaxIdleConnections int
	PostgresConnMaxLifetime    time.Duration

	// Daylight schedule
	EnableDaylightSchedule bool
	Latitude               float64
	Longitude              float64
	DaylightCheckInterval  time.Duration

	// Service configuration
	ServiceName string
	HealthPort  int
	LogLevel    string
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		SettingsPath:      DefaultSettingsPath(),
		DeviceName:        "lumen-bridge",
		ReconnectInterval: 10 * time.Second,
		ConnectTimeout:    10 * time.Second,
		CaptureFPS:        30,
		StreamEnabled:     false,
		EnableTelemetry:   false,
		RedisHost:         "localhost",
		RedisPort:         6379,
		RedisPassword:     "",
		RedisDB:           0,
		EnableJournal:     false,
		PostgresHost:      "localhost",
		PostgresPort:      5432,
		PostgresUser:      "lumen",
		PostgresPassword:  "",
		PostgresDB:        "lumen",
		PostgresSSLMode:   "disable",
		// Small pool, the journal writes a handful of rows per minute
		PostgresMaxConnections:     4,
		PostgresMaxIdleConnections: 2,
		PostgresConnMaxLifetime:    30 * time.Minute,
		EnableDaylightSchedule:     false,
		// Helsinki coordinates
		Latitude:              60.1695,
		Longitude:             24.9354,
		DaylightCheckInterval: time.Minute,
		ServiceName:           "lumen-bridge",
		HealthPort:            8080,
		LogLevel:              "info",
	}
}

// DefaultSettingsPath returns ~/.lumen/settings.yaml, or settings.yaml in the
// working directory when the home directory cannot be determined.
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "settings.yaml"
	}
	return filepath.Join(home, ".lumen", "settings.yaml")
}

// LoadFromEnv loads configuration from environment variables with LUMEN_ prefix
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("LUMEN_SETTINGS_PATH"); v != "" {
		c.SettingsPath = v
	}
	if v := os.Getenv("LUMEN_DEVICE_NAME"); v != "" {
		c.DeviceName = v
	}
	if v := os.Getenv("LUMEN_RECONNECT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.ReconnectInterval = d
		}
	}
	if v := os.Getenv("LUMEN_CONNECT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.ConnectTimeout = d
		}
	}
	if v := os.Getenv("LUMEN_CAPTURE_FPS"); v != "" {
		if fps, err := strconv.Atoi(v); err == nil {
			c.CaptureFPS = fps
		}
	}
	if v := os.Getenv("LUMEN_STREAM"); v != "" {
		if enable, err := strconv.ParseBool(v); err == nil {
			c.StreamEnabled = enable
		}
	}

	// Redis configuration
	if v := os.Getenv("LUMEN_ENABLE_TELEMETRY"); v != "" {
		if enable, err := strconv.ParseBool(v); err == nil {
			c.EnableTelemetry = enable
		}
	}
	if v := os.Getenv("LUMEN_REDIS_HOST"); v != "" {
		c.RedisHost = v
	}
	if v := os.Getenv("LUMEN_REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.RedisPort = port
		}
	}
	if v := os.Getenv("LUMEN_REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("LUMEN_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.RedisDB = db
		}
	}

	// Postgres configuration
	if v := os.Getenv("LUMEN_ENABLE_JOURNAL"); v != "" {
		if enable, err := strconv.ParseBool(v); err == nil {
			c.EnableJournal = enable
		}
	}
	if v := os.Getenv("LUMEN_POSTGRES_HOST"); v != "" {
		c.PostgresHost = v
	}
	if v := os.Getenv("LUMEN_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.PostgresPort = port
		}
	}
	if v := os.Getenv("LUMEN_POSTGRES_USER"); v != "" {
		c.PostgresUser = v
	}
	if v := os.Getenv("LUMEN_POSTGRES_PASSWORD"); v != "" {
		c.PostgresPassword = v
	}
	if v := os.Getenv("LUMEN_POSTGRES_DB"); v != "" {
		c.PostgresDB = v
	}
	if v := os.Getenv("LUMEN_POSTGRES_SSLMODE"); v != "" {
		c.PostgresSSLMode = v
	}

	// Daylight schedule
	if v := os.Getenv("LUMEN_ENABLE_DAYLIGHT_SCHEDULE"); v != "" {
		if enable, err := strconv.ParseBool(v); err == nil {
			c.EnableDaylightSchedule = enable
		}
	}
	if v := os.Getenv("LUMEN_LATITUDE"); v != "" {
		if lat, err := strconv.ParseFloat(v, 64); err == nil {
			c.Latitude = lat
		}
	}
	if v := os.Getenv("LUMEN_LONGITUDE"); v != "" {
		if lon, err := strconv.ParseFloat(v, 64); err == nil {
			c.Longitude = lon
		}
	}

	// Service configuration
	if v := os.Getenv("LUMEN_SERVICE_NAME"); v != "" {
		c.ServiceName = v
	}
	if v := os.Getenv("LUMEN_HEALTH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.HealthPort = port
		}
	}
	if v := os.Getenv("LUMEN_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// RegisterFlags binds config fields to the given flag set
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.SettingsPath, "settings", c.SettingsPath, "Path to the settings file")
	fs.StringVar(&c.DeviceName, "device-name", c.DeviceName, "Device name, used as MQTT client ID")
	fs.DurationVar(&c.ReconnectInterval, "reconnect-interval", c.ReconnectInterval, "Interval between re-subscribe attempts after a connection loss")
	fs.DurationVar(&c.ConnectTimeout, "connect-timeout", c.ConnectTimeout, "MQTT connect timeout")
	fs.IntVar(&c.CaptureFPS, "capture-fps", c.CaptureFPS, "Capture loop frames per second")
	fs.BoolVar(&c.StreamEnabled, "stream", c.StreamEnabled, "Stream frames on the MQTT stream topic (overrides settings when true)")

	// Redis flags
	fs.BoolVar(&c.EnableTelemetry, "enable-telemetry", c.EnableTelemetry, "Write live status to Redis")
	fs.StringVar(&c.RedisHost, "redis-host", c.RedisHost, "Redis hostname")
	fs.IntVar(&c.RedisPort, "redis-port", c.RedisPort, "Redis port")
	fs.StringVar(&c.RedisPassword, "redis-password", c.RedisPassword, "Redis password")
	fs.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "Redis database number")

	// Postgres flags
	fs.BoolVar(&c.EnableJournal, "enable-journal", c.EnableJournal, "Record broker and command events in Postgres")
	fs.StringVar(&c.PostgresHost, "postgres-host", c.PostgresHost, "Postgres hostname")
	fs.IntVar(&c.PostgresPort, "postgres-port", c.PostgresPort, "Postgres port")
	fs.StringVar(&c.PostgresUser, "postgres-user", c.PostgresUser, "Postgres user")
	fs.StringVar(&c.PostgresPassword, "postgres-password", c.PostgresPassword, "Postgres password")
	fs.StringVar(&c.PostgresDB, "postgres-db", c.PostgresDB, "Postgres database")
	fs.StringVar(&c.PostgresSSLMode, "postgres-sslmode", c.PostgresSSLMode, "Postgres sslmode")

	// Daylight flags
	fs.BoolVar(&c.EnableDaylightSchedule, "enable-daylight-schedule", c.EnableDaylightSchedule, "Start capture at dusk and stop it at dawn")
	fs.Float64Var(&c.Latitude, "latitude", c.Latitude, "Geographic latitude for the daylight schedule")
	fs.Float64Var(&c.Longitude, "longitude", c.Longitude, "Geographic longitude for the daylight schedule")
	fs.DurationVar(&c.DaylightCheckInterval, "daylight-check-interval", c.DaylightCheckInterval, "How often the sun position is checked")

	// Service flags
	fs.StringVar(&c.ServiceName, "service-name", c.ServiceName, "Service name")
	fs.IntVar(&c.HealthPort, "health-port", c.HealthPort, "Health check HTTP port")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
}

// LoadFromFlags parses command-line flags and overrides config values
func (c *Config) LoadFromFlags() {
	c.RegisterFlags(pflag.CommandLine)
	pflag.Parse()
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.SettingsPath == "" {
		return fmt.Errorf("settings path is required")
	}
	if c.DeviceName == "" {
		return fmt.Errorf("device name is required")
	}
	if c.ReconnectInterval <= 0 {
		return fmt.Errorf("reconnect interval must be positive")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive")
	}
	if c.CaptureFPS <= 0 || c.CaptureFPS > 240 {
		return fmt.Errorf("capture FPS must be between 1 and 240")
	}
	if c.EnableTelemetry {
		if c.RedisHost == "" {
			return fmt.Errorf("Redis host is required")
		}
		if c.RedisPort <= 0 || c.RedisPort > 65535 {
			return fmt.Errorf("Redis port must be between 1 and 65535")
		}
	}
	if c.EnableJournal {
		if c.PostgresHost == "" {
			return fmt.Errorf("Postgres host is required")
		}
		if c.PostgresPort <= 0 || c.PostgresPort > 65535 {
			return fmt.Errorf("Postgres port must be between 1 and 65535")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("Postgres database is required")
		}
	}
	if c.EnableDaylightSchedule {
		if c.Latitude < -90 || c.Latitude > 90 {
			return fmt.Errorf("latitude must be between -90 and 90")
		}
		if c.Longitude < -180 || c.Longitude > 180 {
			return fmt.Errorf("longitude must be between -180 and 180")
		}
		if c.DaylightCheckInterval <= 0 {
			return fmt.Errorf("daylight check interval must be positive")
		}
	}
	if c.HealthPort <= 0 || c.HealthPort > 65535 {
		return fmt.Errorf("Health port must be between 1 and 65535")
	}
	if c.ServiceName == "" {
		return fmt.Errorf("Service name is required")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// RedisAddress returns the full Redis address
func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// PostgresConnectionString returns a lib/pq connection string
func (c *Config) PostgresConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode)
}
