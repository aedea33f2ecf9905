package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Maintenance eviction policies. Soft keeps connections open and relies
// on the broadcast snapshot; hard closes every connection on entry.
const (
	EvictSoft = "soft"
	EvictHard = "hard"
)

// Config holds all service settings.
type Config struct {
	HTTP        HTTPConfig
	Admin       AdminConfig
	Session     SessionConfig
	Maintenance MaintenanceConfig
	AI          AIConfig
	Log         LogConfig
}

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type AdminConfig struct {
	Username string
	Password string
}

// SessionConfig controls admin session tokens. A non-empty TokenSecret
// switches Login to HMAC-signed, time-limited credentials.
type SessionConfig struct {
	TokenSecret string
	TokenTTL    time.Duration
}

type MaintenanceConfig struct {
	Evict string
}

type AIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type LogConfig struct {
	Level   string
	File    string
	Console bool
}

// DefaultConfig returns the baseline settings. The admin password has no
// default and must come from the environment.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Admin: AdminConfig{
			Username: "admin",
		},
		Session: SessionConfig{
			TokenTTL: 12 * time.Hour,
		},
		Maintenance: MaintenanceConfig{
			Evict: EvictSoft,
		},
		AI: AIConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
			Timeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load reads configuration from an optional .env file and the
// environment, then validates it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	cfg.HTTP.Host = getEnvOrDefault("QABOARD_HTTP_HOST", cfg.HTTP.Host)
	cfg.HTTP.Port = getEnvIntOrDefault("QABOARD_HTTP_PORT", cfg.HTTP.Port)
	cfg.HTTP.ReadTimeout = getEnvDurationOrDefault("QABOARD_HTTP_READ_TIMEOUT", cfg.HTTP.ReadTimeout)
	cfg.HTTP.WriteTimeout = getEnvDurationOrDefault("QABOARD_HTTP_WRITE_TIMEOUT", cfg.HTTP.WriteTimeout)

	cfg.Admin.Username = getEnvOrDefault("QABOARD_ADMIN_USERNAME", cfg.Admin.Username)
	cfg.Admin.Password = getEnvOrDefault("QABOARD_ADMIN_PASSWORD", cfg.Admin.Password)

	cfg.Session.TokenSecret = getEnvOrDefault("QABOARD_TOKEN_SECRET", cfg.Session.TokenSecret)
	cfg.Session.TokenTTL = getEnvDurationOrDefault("QABOARD_TOKEN_TTL", cfg.Session.TokenTTL)

	cfg.Maintenance.Evict = getEnvOrDefault("QABOARD_MAINTENANCE_EVICT", cfg.Maintenance.Evict)

	cfg.AI.APIKey = getEnvOrDefault("QABOARD_AI_API_KEY", cfg.AI.APIKey)
	cfg.AI.BaseURL = getEnvOrDefault("QABOARD_AI_BASE_URL", cfg.AI.BaseURL)
	cfg.AI.Model = getEnvOrDefault("QABOARD_AI_MODEL", cfg.AI.Model)
	cfg.AI.Timeout = getEnvDurationOrDefault("QABOARD_AI_TIMEOUT", cfg.AI.Timeout)

	cfg.Log.Level = getEnvOrDefault("QABOARD_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnvOrDefault("QABOARD_LOG_FILE", cfg.Log.File)
	cfg.Log.Console = getEnvBoolOrDefault("QABOARD_LOG_CONSOLE", cfg.Log.Console)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}
	if c.HTTP.ReadTimeout <= 0 {
		return fmt.Errorf("HTTP read timeout must be positive")
	}
	if c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP write timeout must be positive")
	}
	if c.Admin.Username == "" {
		return fmt.Errorf("admin username cannot be empty")
	}
	if c.Admin.Password == "" {
		return fmt.Errorf("admin password must be set (QABOARD_ADMIN_PASSWORD)")
	}
	if c.Session.TokenSecret != "" && c.Session.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive when a token secret is set")
	}
	if c.Maintenance.Evict != EvictSoft && c.Maintenance.Evict != EvictHard {
		return fmt.Errorf("maintenance evict mode must be %q or %q, got %q", EvictSoft, EvictHard, c.Maintenance.Evict)
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
