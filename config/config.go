package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the gateway's runtime configuration.
type Config struct {
	Port string

	// Kafka broker addresses and the consumer group this gateway instance joins.
	KafkaBrokers []string
	KafkaGroupID string

	// Collaborator services.
	MessengerURL  string
	DatabaseURL   string
	ServiceAPIKey string

	JWTSecret string

	// Optional cache for user lookups. Empty disables caching.
	RedisAddr string

	AllowedOrigin string
}

// Load reads configuration from environment variables, falling back to a
// .env file when one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:          getEnv("PORT", "3001"),
		KafkaBrokers:  strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		KafkaGroupID:  getEnv("KAFKA_GROUP_ID", "frt-gateway"),
		MessengerURL:  getEnv("MESSENGER_SERVICE_URL", "http://localhost:8000"),
		DatabaseURL:   getEnv("DATABASE_SERVICE_URL", "http://localhost:8095/api/v1"),
		ServiceAPIKey: getEnv("SERVICE_API_KEY", ""),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://localhost:5173"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}
