package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	DatabaseURL      string
	SessionSecret    string
	JWTSecret        string
	TokenTTL         time.Duration
	AdminEmailDomain string
	CORSOrigin       string
	GinMode          string
	LogLevel         string
	TemplatesDir     string
	SiteURL          string
	RateLimitRPS     float64
	RateLimitBurst   int
}

// Load reads .env (if present) and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading config from environment")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env.
func FromEnv() *Config {
	return &Config{
		Port:             getenv("PORT", "8080"),
		DatabaseURL:      getenv("DATABASE_URL", "sqlite://groupfinder.db"),
		SessionSecret:    getenv("SESSION_SECRET", "secret_key_change_me"),
		JWTSecret:        getenv("JWT_SECRET", "jwt_secret_change_me"),
		TokenTTL:         getDuration("TOKEN_TTL", 7*24*time.Hour),
		AdminEmailDomain: strings.TrimPrefix(os.Getenv("ADMIN_EMAIL_DOMAIN"), "@"),
		CORSOrigin:       getenv("CORS_ORIGIN", "*"),
		GinMode:          getenv("GIN_MODE", "debug"),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		TemplatesDir:     getenv("TEMPLATES_DIR", "./web/templates"),
		SiteURL:          getenv("SITE_URL", "http://localhost:8080"),
		RateLimitRPS:     getFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst:   getInt("RATE_LIMIT_BURST", 10),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
