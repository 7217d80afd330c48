package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings.
type Config struct {
	Port string

	// Binance
	BinanceBaseURL   string
	BinanceAPIKey    string
	BinanceAPISecret string
	RecvWindowMs     int64
	HTTPTimeout      time.Duration
	MaxAttempts      int

	// Database
	DBPath string

	// Auth
	JWTSecret string

	// Logging
	LogLevel string
	LogFile  string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port:             getEnv("PORT", "8080"),
		BinanceBaseURL:   getEnv("BINANCE_BASE_URL", "https://testnet.binancefuture.com"),
		BinanceAPIKey:    os.Getenv("BINANCE_API_KEY"),
		BinanceAPISecret: os.Getenv("BINANCE_API_SECRET"),
		RecvWindowMs:     int64(getEnvInt("RECV_WINDOW_MS", 5000)),
		HTTPTimeout:      time.Duration(getEnvInt("HTTP_TIMEOUT_SEC", 10)) * time.Second,
		MaxAttempts:      getEnvInt("MAX_ATTEMPTS", 3),
		DBPath:           getEnv("DB_PATH", "./data/trading.db"),
		JWTSecret:        getEnv("JWT_SECRET", "dev-secret"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFile:          getEnv("LOG_FILE", ""),
	}, nil
}

// HasCredentials reports whether both API credentials are present.
func (c *Config) HasCredentials() bool {
	return c.BinanceAPIKey != "" && c.BinanceAPISecret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
