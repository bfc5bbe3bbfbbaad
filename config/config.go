package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	SMTP         SMTPConfig
	Confirmation ConfirmationConfig
	CORS         CORSConfig
	Admin        AdminConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

type SMTPConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	From        string
	SendTimeout time.Duration
}

// ConfirmationConfig holds the token issuance policy knobs.
type ConfirmationConfig struct {
	BaseURL           string // public URL the emailed confirmation link points at
	SignupTokenExpiry time.Duration
	ResetTokenExpiry  time.Duration
	RateLimitWindow   time.Duration
	MaxAttempts       int
	IPRequestsPerMin  int // per-IP issuance throttle (redis-backed)
}

type CORSConfig struct {
	AllowedOrigins []string
}

type AdminConfig struct {
	JWTSecret string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "confirmail"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
			Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
		},
		SMTP: SMTPConfig{
			Host:        getEnv("SMTP_HOST", "localhost"),
			Port:        parseInt(getEnv("SMTP_PORT", "587"), 587),
			User:        getEnv("SMTP_USER", ""),
			Password:    getEnv("SMTP_PASSWORD", ""),
			From:        getEnv("SMTP_FROM", "no-reply@confirmail.dev"),
			SendTimeout: parseDuration(getEnv("SMTP_SEND_TIMEOUT", "10s"), 10*time.Second),
		},
		Confirmation: ConfirmationConfig{
			BaseURL:           getEnv("CONFIRMATION_BASE_URL", "http://localhost:3000/confirm"),
			SignupTokenExpiry: parseDuration(getEnv("SIGNUP_TOKEN_EXPIRY", "24h"), 24*time.Hour),
			ResetTokenExpiry:  parseDuration(getEnv("RESET_TOKEN_EXPIRY", "1h"), 1*time.Hour),
			RateLimitWindow:   parseDuration(getEnv("RATE_LIMIT_WINDOW", "1h"), 1*time.Hour),
			MaxAttempts:       parseInt(getEnv("RATE_LIMIT_MAX_ATTEMPTS", "5"), 5),
			IPRequestsPerMin:  parseInt(getEnv("IP_REQUESTS_PER_MINUTE", "30"), 30),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Admin: AdminConfig{
			JWTSecret: getEnv("ADMIN_JWT_SECRET", "your-secret-key"),
		},
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid number %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}
