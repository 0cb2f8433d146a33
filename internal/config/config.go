// Package config loads runtime configuration from the environment,
// with a .env file picked up in development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port        string
	ClientURL   string
	StoreDriver string

	MongoURI  string
	MongoDB   string
	RedisAddr string
	RedisPass string
	RedisDB   int

	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	MailFrom string
}

// Load reads the environment. Secrets have no defaults; the caller
// decides whether a missing secret is fatal.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, relying on environment variables")
	}

	return Config{
		Port:        getenv("PORT", "8080"),
		ClientURL:   getenv("CLIENT_URL", "http://localhost:3000"),
		StoreDriver: getenv("STORE", "mongo"),

		MongoURI:  getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:   getenv("MONGO_DB", "noedot"),
		RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),
		RedisPass: os.Getenv("REDIS_PASSWORD"),
		RedisDB:   getenvInt("REDIS_DB", 0),

		AccessSecret:  os.Getenv("JWT_ACCESS_SECRET"),
		RefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
		AccessTTL:     getenvDuration("JWT_ACCESS_TTL", 10*time.Hour),
		RefreshTTL:    getenvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getenv("SMTP_PORT", "587"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASSWORD"),
		MailFrom: getenv("MAIL_FROM", "no-reply@noedot.app"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid integer in environment, using default")
		return fallback
	}
	return n
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid duration in environment, using default")
		return fallback
	}
	return d
}
