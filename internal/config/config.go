package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Events   EventsConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Database DatabaseConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// EventsConfig carries the domain knobs: the zone every day-boundary
// computation happens in, the scheme prefixed onto bare URLs, and the public
// base URL share links are built from.
type EventsConfig struct {
	Timezone         *time.Location
	DefaultURLScheme string
	PublicBaseURL    string
	SquashLockTTL    time.Duration
}

type RedisConfig struct {
	Addr    string
	Enabled bool
}

type KafkaConfig struct {
	Brokers  []string
	Topic    string
	MockMode bool
	Enabled  bool
}

type DatabaseConfig struct {
	DSN string
}

type AuthConfig struct {
	Issuer   string
	ClientID string
	Disabled bool
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Events: EventsConfig{
			Timezone:         loadTimezone(),
			DefaultURLScheme: getEnv("DEFAULT_URL_SCHEME", "http://"),
			PublicBaseURL:    getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
			SquashLockTTL:    time.Duration(getEnvInt("SQUASH_LOCK_TTL_SECONDS", 30)) * time.Second,
		},
		Redis: RedisConfig{
			Addr:    getEnv("REDIS_ADDR", "localhost:6379"),
			Enabled: getEnvBool("REDIS_ENABLED", false),
		},
		Kafka: KafkaConfig{
			Brokers:  []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			Topic:    getEnv("KAFKA_TOPIC_EVENTS", "event-catalog-events"),
			Enabled:  getEnvBool("KAFKA_ENABLED", false),
			MockMode: getEnvBool("KAFKA_MOCK_MODE", false),
		},
		Database: DatabaseConfig{
			DSN: getEnv("SQLITE_DSN", "file:events.db?cache=shared"),
		},
		Auth: AuthConfig{
			Issuer:   getEnv("OIDC_ISSUER", ""),
			ClientID: getEnv("OIDC_CLIENT_ID", ""),
			Disabled: getEnvBool("AUTH_DISABLED", true),
		},
	}
}

func loadTimezone() *time.Location {
	name := getEnv("EVENTS_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("[Config] Invalid EVENTS_TIMEZONE %q, falling back to UTC", name)
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
