package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the service configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Fetch     FetchConfig
	Browser   BrowserConfig
	LLM       LLMConfig
	Scheduler SchedulerConfig
	Log       LogConfig
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Host               string
	Port               string
	AllowedOrigins     []string
	APIKeys            []string
	RateLimitPerSecond float64
	MaxRequestSize     int64
	RequestTimeout     time.Duration
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// RequireAPIKey reports whether requests must carry one of the API keys.
func (s ServerConfig) RequireAPIKey() bool {
	return len(s.APIKeys) > 0
}

// DatabaseConfig holds the Postgres connection string.
type DatabaseConfig struct {
	URL string
}

// FetchConfig holds plain HTTP page fetch settings.
type FetchConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// BrowserConfig holds headless browser settings.
type BrowserConfig struct {
	Enabled           bool
	Bin               string
	NavigationTimeout time.Duration
	BodyTimeout       time.Duration
	NodeTimeout       time.Duration
}

// LLMConfig holds the inference settings of the disambiguator.
type LLMConfig struct {
	Enabled       bool
	Host          string
	Model         string
	Temperature   float64
	ContextWindow int
	Timeout       time.Duration
}

// SchedulerConfig holds the scheduled refresh settings.
type SchedulerConfig struct {
	Enabled  bool
	Schedule string
	Timeout  time.Duration
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string
	Development bool
}

// Load reads the configuration from the environment.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               getEnv("HOST", "0.0.0.0"),
			Port:               getEnv("PORT", "8080"),
			AllowedOrigins:     getEnvList("ALLOWED_ORIGINS", []string{"*"}),
			APIKeys:            getEnvList("API_KEYS", nil),
			RateLimitPerSecond: getEnvFloat("RATE_LIMIT_PER_SECOND", 5),
			MaxRequestSize:     getEnvInt64("MAX_REQUEST_SIZE", 10*1024*1024),
			RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 5*time.Minute),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Fetch: FetchConfig{
			Timeout:   getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
			UserAgent: getEnv("FETCH_USER_AGENT", ""),
		},
		Browser: BrowserConfig{
			Enabled:           getEnvBool("BROWSER_ENABLED", true),
			Bin:               getEnv("BROWSER_BIN", ""),
			NavigationTimeout: getEnvDuration("BROWSER_NAVIGATION_TIMEOUT", 30*time.Second),
			BodyTimeout:       getEnvDuration("BROWSER_BODY_TIMEOUT", 10*time.Second),
			NodeTimeout:       getEnvDuration("BROWSER_NODE_TIMEOUT", 10*time.Second),
		},
		LLM: LLMConfig{
			Enabled:       getEnvBool("LLM_ENABLED", true),
			Host:          getEnv("OLLAMA_HOST", ""),
			Model:         getEnv("LLM_MODEL", "deepseek-r1:1.5b"),
			Temperature:   getEnvFloat("LLM_TEMPERATURE", 0.1),
			ContextWindow: int(getEnvInt64("LLM_CONTEXT_WINDOW", 4096)),
			Timeout:       getEnvDuration("LLM_TIMEOUT", 60*time.Second),
		},
		Scheduler: SchedulerConfig{
			Enabled:  getEnvBool("REFRESH_ENABLED", true),
			Schedule: getEnv("REFRESH_SCHEDULE", "0 0 */12 * * *"),
			Timeout:  getEnvDuration("REFRESH_TIMEOUT", 2*time.Hour),
		},
		Log: LogConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvBool("LOG_DEVELOPMENT", false),
		},
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.Server.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if c.Server.RateLimitPerSecond <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_SECOND must be positive"))
	}

	timeouts := []struct {
		name  string
		value time.Duration
	}{
		{"FETCH_TIMEOUT", c.Fetch.Timeout},
		{"BROWSER_NAVIGATION_TIMEOUT", c.Browser.NavigationTimeout},
		{"BROWSER_BODY_TIMEOUT", c.Browser.BodyTimeout},
		{"BROWSER_NODE_TIMEOUT", c.Browser.NodeTimeout},
		{"LLM_TIMEOUT", c.LLM.Timeout},
		{"REQUEST_TIMEOUT", c.Server.RequestTimeout},
	}
	for _, t := range timeouts {
		if t.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", t.name))
		}
	}

	if c.LLM.Temperature < 0 {
		errs = append(errs, errors.New("LLM_TEMPERATURE must not be negative"))
	}
	if c.LLM.ContextWindow <= 0 {
		errs = append(errs, errors.New("LLM_CONTEXT_WINDOW must be positive"))
	}
	if c.Scheduler.Enabled && c.Scheduler.Schedule == "" {
		errs = append(errs, errors.New("REFRESH_SCHEDULE is required when REFRESH_ENABLED is set"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping empty items.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
