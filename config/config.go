package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Pipeline  PipelineConfig
	Scheduler SchedulerConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
	Admin     AdminConfig
	Feeds     []Feed
}

type ServerConfig struct {
	Host                    string
	Port                    int
	ReadTimeout             time.Duration
	WriteTimeout            time.Duration
	IdleTimeout             time.Duration
	GracefulShutdownTimeout time.Duration
	RateLimitPerMinute      int
}

type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

type RedisConfig struct {
	URL string
}

type PipelineConfig struct {
	FetchTimeout time.Duration
	UserAgent    string
	WorkerCount  int
	RateLimit    float64
}

type SchedulerConfig struct {
	IngestSpec   string // cron spec for the full ingestion run
	SweepSpec    string // cron spec for the alert expiry sweep
	StartupDelay time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string // json or text
}

type MetricsConfig struct {
	Enabled bool
	Port    int
	Path    string
}

type AdminConfig struct {
	AdminSecret string
}

// Feed is one configured RSS/Atom/CAP source. Order is preserved.
type Feed struct {
	Name string
	URL  string
}

// defaultFeeds are the production disaster sources monitored out of the box.
var defaultFeeds = []Feed{
	{Name: "USGS_EARTHQUAKES", URL: "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_hour.atom"},
	{Name: "USGS_EARTHQUAKES_DAILY", URL: "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.atom"},
	{Name: "GDACS_ALERTS", URL: "https://www.gdacs.org/xml/rss.xml"},
	{Name: "RELIEFWEB", URL: "https://reliefweb.int/updates/rss.xml"},
	{Name: "NOAA_WEATHER", URL: "https://alerts.weather.gov/cap/us.php?x=1"},
	{Name: "INDIA_NDMA", URL: "https://sachet.ndma.gov.in/cap_public_website/rss/rss_india.xml"},
}

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:                    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:                    getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:             getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:            getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:             getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			GracefulShutdownTimeout: getEnvDuration("SERVER_GRACEFUL_SHUTDOWN_TIMEOUT", 30*time.Second),
			RateLimitPerMinute:      getEnvInt("SERVER_RATE_LIMIT_PER_MINUTE", 120),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", 1*time.Hour),
			MaxConnIdleTime: getEnvDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Pipeline: PipelineConfig{
			FetchTimeout: getEnvDuration("PIPELINE_FETCH_TIMEOUT", 10*time.Second),
			UserAgent:    getEnv("PIPELINE_USER_AGENT", "DisasterWatch-Monitor/1.0"),
			WorkerCount:  getEnvInt("PIPELINE_WORKER_COUNT", 4),
			RateLimit:    getEnvFloat("PIPELINE_RATE_LIMIT", 5.0),
		},
		Scheduler: SchedulerConfig{
			IngestSpec:   getEnv("SCHEDULER_INGEST_SPEC", "*/30 * * * *"),
			SweepSpec:    getEnv("SCHEDULER_SWEEP_SPEC", "0 * * * *"),
			StartupDelay: getEnvDuration("SCHEDULER_STARTUP_DELAY", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Port:    getEnvInt("METRICS_PORT", 9090),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		Admin: AdminConfig{
			AdminSecret: getEnv("ADMIN_SECRET", ""),
		},
		Feeds: parseFeeds(getEnv("FEEDS", "")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// parseFeeds parses a semicolon-separated list of name=url pairs,
// falling back to the default feed set when unset.
func parseFeeds(raw string) []Feed {
	if raw == "" {
		feeds := make([]Feed, len(defaultFeeds))
		copy(feeds, defaultFeeds)
		return feeds
	}

	var feeds []Feed
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, url, ok := strings.Cut(pair, "=")
		if !ok || name == "" || url == "" {
			continue
		}
		feeds = append(feeds, Feed{Name: strings.TrimSpace(name), URL: strings.TrimSpace(url)})
	}
	return feeds
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}
	if c.Pipeline.WorkerCount < 1 {
		return fmt.Errorf("pipeline worker count must be at least 1")
	}
	if c.Pipeline.FetchTimeout <= 0 {
		return fmt.Errorf("pipeline fetch timeout must be positive")
	}
	if len(c.Feeds) == 0 {
		return fmt.Errorf("at least one feed must be configured")
	}
	seen := make(map[string]bool, len(c.Feeds))
	for _, f := range c.Feeds {
		if seen[f.Name] {
			return fmt.Errorf("duplicate feed name: %s", f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
