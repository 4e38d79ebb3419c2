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
	Server   ServerConfig
	Commerce CommerceConfig
	Session  SessionConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Redis    RedisConfig
	Currency CurrencyConfig
	Database DatabaseConfig
	Stub     StubConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

// CommerceConfig points the storefront at the remote cart service.
type CommerceConfig struct {
	BaseURL        string
	Timeout        time.Duration
	SessionCookie  string
	CustomerCookie string
}

type SessionConfig struct {
	CookieName    string
	Secret        string
	MaxAge        time.Duration
	IdleTTL       time.Duration
	SweepSchedule string // cron spec, e.g. "@every 5m"
}

type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type CurrencyConfig struct {
	Symbol    string
	Precision int
	Thousand  string
	Decimal   string
}

// DatabaseConfig is only used by the commerce stub.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type StubConfig struct {
	Port string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Commerce: CommerceConfig{
			BaseURL:        getEnv("COMMERCE_BASE_URL", "http://localhost:8090/api"),
			Timeout:        parseDuration(getEnv("COMMERCE_TIMEOUT", "10s"), 10*time.Second),
			SessionCookie:  getEnv("COMMERCE_SESSION_COOKIE", "cart_session"),
			CustomerCookie: getEnv("COMMERCE_CUSTOMER_COOKIE", "cart_customer"),
		},
		Session: SessionConfig{
			CookieName:    getEnv("SESSION_COOKIE_NAME", "beanline-session"),
			Secret:        getEnv("SESSION_SECRET", "change-me-session-secret"),
			MaxAge:        parseDuration(getEnv("SESSION_MAX_AGE", "720h"), 720*time.Hour),
			IdleTTL:       parseDuration(getEnv("SESSION_IDLE_TTL", "30m"), 30*time.Minute),
			SweepSchedule: getEnv("SESSION_SWEEP_SCHEDULE", "@every 5m"),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", "your-secret-key"),
			AccessTokenExpiry:  parseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRY", "15m"), 15*time.Minute),
			RefreshTokenExpiry: parseDuration(getEnv("JWT_REFRESH_TOKEN_EXPIRY", "168h"), 168*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		Currency: CurrencyConfig{
			Symbol:    getEnv("CURRENCY_SYMBOL", "$"),
			Precision: parseInt(getEnv("CURRENCY_PRECISION", "2"), 2),
			Thousand:  getEnv("CURRENCY_THOUSAND", ","),
			Decimal:   getEnv("CURRENCY_DECIMAL", "."),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "commerce_stub"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Stub: StubConfig{
			Port: getEnv("STUB_PORT", "8090"),
		},
	}

	if config.Commerce.BaseURL == "" {
		return nil, fmt.Errorf("COMMERCE_BASE_URL must not be empty")
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
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
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
