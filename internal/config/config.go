package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Sources   SourcesConfig
	Scheduler SchedulerConfig
	Engine    EngineConfig
	Kafka     KafkaConfig
	DB        DatabaseConfig
	Logging   LoggingConfig

	ShutdownTimeout time.Duration
}

type ServerConfig struct {
	Host      string
	Port      int
	RateLimit int
}

type SourcesConfig struct {
	WeatherURL    string
	AirQualityURL string
	USGSURL       string
	FetchTimeout  time.Duration
}

type SchedulerConfig struct {
	Enabled         bool
	WeatherInterval time.Duration // used when the settings store has no override
	SeismicInterval time.Duration
	IntervalFloor   time.Duration
}

type EngineConfig struct {
	QuakeRadiusKm      float64
	QuakeAlertTTL      time.Duration
	FeedCacheMaxAge    time.Duration
	ReadingDedupWindow time.Duration
	FetchWorkers       int
}

type KafkaConfig struct {
	Brokers    []string
	AlertTopic string
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:      getEnv("SERVER_HOST", "localhost"),
			Port:      getEnvInt("SERVER_PORT", 8080),
			RateLimit: getEnvInt("API_RATE_LIMIT", 5),
		},
		Sources: SourcesConfig{
			WeatherURL:    getEnv("WEATHER_URL", "https://api.open-meteo.com/v1/forecast"),
			AirQualityURL: getEnv("AIR_QUALITY_URL", "https://air-quality-api.open-meteo.com/v1/air-quality"),
			USGSURL:       getEnv("USGS_URL", "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson"),
			FetchTimeout:  getEnvDuration("FETCH_TIMEOUT", 15*time.Second),
		},
		Scheduler: SchedulerConfig{
			Enabled:         getEnvBool("SCHEDULER_ENABLED", true),
			WeatherInterval: getEnvDuration("WEATHER_POLL_DEFAULT", 15*time.Minute),
			SeismicInterval: getEnvDuration("SEISMIC_POLL_DEFAULT", 2*time.Minute),
			IntervalFloor:   getEnvDuration("POLL_INTERVAL_FLOOR", 30*time.Second),
		},
		Engine: EngineConfig{
			QuakeRadiusKm:      getEnvFloat("QUAKE_RADIUS_KM", 500),
			QuakeAlertTTL:      getEnvDuration("QUAKE_ALERT_TTL", 24*time.Hour),
			FeedCacheMaxAge:    getEnvDuration("FEED_CACHE_MAX_AGE", 30*time.Minute),
			ReadingDedupWindow: getEnvDuration("READING_DEDUP_WINDOW", 30*time.Second),
			FetchWorkers:       getEnvInt("FETCH_WORKERS", 4),
		},
		Kafka: KafkaConfig{
			Brokers:    parseList(getEnv("KAFKA_BROKERS", "")),
			AlertTopic: getEnv("KAFKA_ALERT_TOPIC", "hazard-alerts"),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/hazard-monitor.db"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimit < 1 {
		return fmt.Errorf("API_RATE_LIMIT must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Scheduler.IntervalFloor < 10*time.Second {
		return fmt.Errorf("POLL_INTERVAL_FLOOR must be at least 10 seconds")
	}
	if c.Scheduler.WeatherInterval < c.Scheduler.IntervalFloor {
		return fmt.Errorf("WEATHER_POLL_DEFAULT must not be below POLL_INTERVAL_FLOOR")
	}
	if c.Scheduler.SeismicInterval < c.Scheduler.IntervalFloor {
		return fmt.Errorf("SEISMIC_POLL_DEFAULT must not be below POLL_INTERVAL_FLOOR")
	}
	if c.Sources.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}

	if c.Engine.QuakeRadiusKm <= 0 {
		return fmt.Errorf("QUAKE_RADIUS_KM must be positive")
	}
	if c.Engine.QuakeAlertTTL < 0 {
		return fmt.Errorf("QUAKE_ALERT_TTL must not be negative")
	}
	if c.Engine.FetchWorkers < 1 {
		return fmt.Errorf("FETCH_WORKERS must be at least 1")
	}
	if c.Engine.ReadingDedupWindow < 0 {
		return fmt.Errorf("READING_DEDUP_WINDOW must not be negative")
	}

	if c.Kafka.Enabled() && c.Kafka.AlertTopic == "" {
		return fmt.Errorf("KAFKA_ALERT_TOPIC is required when KAFKA_BROKERS is set")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
