package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all station configuration
type Config struct {
	App     AppConfig
	Server  ServerConfig
	Backend BackendConfig
	Auth    AuthConfig
	Session SessionConfig
	Redis   RedisConfig
	Journal JournalConfig
	Camera  CameraConfig
	OTel    OTelConfig
}

// AppConfig holds application-level settings
type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Version     string
	LogLevel    string
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// Addr returns the listen address
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BackendConfig points at the remote ticketing API
type BackendConfig struct {
	BaseURL     string
	VerifyPath  string
	CheckInPath string
	Timeout     time.Duration // 0 disables the per-request timeout
	Token       string
}

// AuthConfig holds the brand override allow-list
type AuthConfig struct {
	OverrideBrands []string
}

// SessionConfig selects and configures the operator session store
type SessionConfig struct {
	Backend   string // bolt, redis
	BoltPath  string
	StationID string
	TTL       time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host        string
	Port        int
	Password    string
	DB          int
	DialTimeout time.Duration
}

// Addr returns the Redis address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JournalConfig configures attempt history
type JournalConfig struct {
	DatabaseURL string // empty keeps history in memory
	Size        int
}

// CameraConfig selects the frame source behind the scanner
type CameraConfig struct {
	Mode     string // push, spool, none
	SpoolDir string
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled       bool
	ServiceName   string
	CollectorAddr string
	SampleRatio   float64
}

// Load reads .env (if any) and the environment
func Load() (*Config, error) {
	return LoadWithPath(".env")
}

// LoadWithPath loads configuration from a specific .env file. A missing file is
// not an error; environment variables still apply. The result is not validated
// so callers can apply flag overrides first and then call Validate.
func LoadWithPath(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	return bindConfig(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "ticketgate")
	v.SetDefault("APP_ENVIRONMENT", "development")
	v.SetDefault("APP_VERSION", "1.0.0")
	v.SetDefault("APP_LOG_LEVEL", "info")

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "30s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "30s")
	v.SetDefault("SERVER_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001")

	v.SetDefault("BACKEND_BASE_URL", "http://localhost:4000")
	v.SetDefault("BACKEND_VERIFY_PATH", "/api/tickets/verify")
	v.SetDefault("BACKEND_CHECKIN_PATH", "/api/tickets")
	v.SetDefault("BACKEND_TIMEOUT", "15s")
	v.SetDefault("BACKEND_TOKEN", "")

	v.SetDefault("AUTH_OVERRIDE_BRANDS", "Roman,Down")

	v.SetDefault("SESSION_BACKEND", "bolt")
	v.SetDefault("SESSION_BOLT_PATH", "ticketgate.db")
	v.SetDefault("SESSION_STATION_ID", "default")
	v.SetDefault("SESSION_TTL", "0s")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JOURNAL_SIZE", 200)

	v.SetDefault("CAMERA_MODE", "push")
	v.SetDefault("CAMERA_SPOOL_DIR", "spool")

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "ticketgate")
	v.SetDefault("OTEL_COLLECTOR_ADDR", "localhost:4317")
	v.SetDefault("OTEL_SAMPLE_RATIO", 1.0)
}

func bindConfig(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Environment = v.GetString("APP_ENVIRONMENT")
	cfg.App.Version = v.GetString("APP_VERSION")
	cfg.App.LogLevel = v.GetString("APP_LOG_LEVEL")

	cfg.Server.Host = v.GetString("SERVER_HOST")
	cfg.Server.Port = v.GetInt("SERVER_PORT")
	cfg.Server.ReadTimeout = v.GetDuration("SERVER_READ_TIMEOUT")
	cfg.Server.WriteTimeout = v.GetDuration("SERVER_WRITE_TIMEOUT")
	cfg.Server.AllowedOrigins = splitList(v.GetString("SERVER_ALLOWED_ORIGINS"))

	cfg.Backend.BaseURL = strings.TrimRight(v.GetString("BACKEND_BASE_URL"), "/")
	cfg.Backend.VerifyPath = v.GetString("BACKEND_VERIFY_PATH")
	cfg.Backend.CheckInPath = v.GetString("BACKEND_CHECKIN_PATH")
	cfg.Backend.Timeout = v.GetDuration("BACKEND_TIMEOUT")
	cfg.Backend.Token = v.GetString("BACKEND_TOKEN")

	cfg.Auth.OverrideBrands = splitList(v.GetString("AUTH_OVERRIDE_BRANDS"))

	cfg.Session.Backend = v.GetString("SESSION_BACKEND")
	cfg.Session.BoltPath = v.GetString("SESSION_BOLT_PATH")
	cfg.Session.StationID = v.GetString("SESSION_STATION_ID")
	cfg.Session.TTL = v.GetDuration("SESSION_TTL")

	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetInt("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.Redis.DialTimeout = v.GetDuration("REDIS_DIAL_TIMEOUT")

	cfg.Journal.DatabaseURL = v.GetString("DATABASE_URL")
	cfg.Journal.Size = v.GetInt("JOURNAL_SIZE")

	cfg.Camera.Mode = v.GetString("CAMERA_MODE")
	cfg.Camera.SpoolDir = v.GetString("CAMERA_SPOOL_DIR")

	cfg.OTel.Enabled = v.GetBool("OTEL_ENABLED")
	cfg.OTel.ServiceName = v.GetString("OTEL_SERVICE_NAME")
	cfg.OTel.CollectorAddr = v.GetString("OTEL_COLLECTOR_ADDR")
	cfg.OTel.SampleRatio = v.GetFloat64("OTEL_SAMPLE_RATIO")

	return cfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("BACKEND_BASE_URL is required")
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("invalid backend timeout: %s", c.Backend.Timeout)
	}
	switch c.Session.Backend {
	case "bolt", "redis":
	default:
		return fmt.Errorf("unknown session backend: %q", c.Session.Backend)
	}
	switch c.Camera.Mode {
	case "push", "spool", "none":
	default:
		return fmt.Errorf("unknown camera mode: %q", c.Camera.Mode)
	}
	if c.Journal.Size <= 0 {
		return fmt.Errorf("JOURNAL_SIZE must be positive")
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
