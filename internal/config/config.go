// Package config provides configuration management for the portfolio tracker.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Cache backends
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Data      DataConfig
	Prices    PricesConfig
	Cache     CacheConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DataConfig points at the flat files the tracker reads and writes
type DataConfig struct {
	HoldingsFile  string
	SnapshotsFile string
}

// PricesConfig holds price provider configuration
type PricesConfig struct {
	CoinGeckoBaseURL   string
	CoinGeckoAPIKey    string // Optional demo key, sent as x-cg-demo-api-key
	DexScreenerBaseURL string
	HTTPTimeout        time.Duration
	FetchConcurrency   int     // Parallel contract lookups (1 = sequential)
	DexScreenerRPS     float64 // Outgoing DexScreener requests per second
}

// CacheConfig holds report cache configuration
type CacheConfig struct {
	Backend string
	TTL     time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// RateLimitConfig holds per-client API rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		// .env file is optional - environment variables can be set directly
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Data: DataConfig{
			HoldingsFile:  getEnv("HOLDINGS_FILE", "data/finances.yaml"),
			SnapshotsFile: getEnv("SNAPSHOTS_FILE", "data/snapshots.yaml"),
		},
		Prices: PricesConfig{
			CoinGeckoBaseURL:   getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
			CoinGeckoAPIKey:    getEnv("COINGECKO_API_KEY", ""),
			DexScreenerBaseURL: getEnv("DEXSCREENER_BASE_URL", "https://api.dexscreener.com"),
			HTTPTimeout:        getEnvAsDuration("PRICE_HTTP_TIMEOUT", 30*time.Second),
			FetchConcurrency:   getEnvAsInt("PRICE_FETCH_CONCURRENCY", 4),
			DexScreenerRPS:     getEnvAsFloat("DEXSCREENER_RPS", 5),
		},
		Cache: CacheConfig{
			Backend: getEnv("CACHE_BACKEND", CacheBackendMemory),
			TTL:     getEnvAsDuration("CACHE_TTL", time.Hour),
		},
		Redis: RedisConfig{
			Host:           getEnv("REDIS_HOST", "localhost"),
			Port:           getEnv("REDIS_PORT", "6379"),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getEnvAsInt("REDIS_DB", 0),
			MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 10),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 2),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects settings the services cannot run with
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q (want %q or %q)", c.Cache.Backend, CacheBackendMemory, CacheBackendRedis)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %s", c.Cache.TTL)
	}
	if c.Prices.FetchConcurrency < 1 {
		return fmt.Errorf("PRICE_FETCH_CONCURRENCY must be at least 1, got %d", c.Prices.FetchConcurrency)
	}
	if c.Prices.HTTPTimeout <= 0 {
		return fmt.Errorf("PRICE_HTTP_TIMEOUT must be positive, got %s", c.Prices.HTTPTimeout)
	}
	if c.Prices.DexScreenerRPS <= 0 {
		return fmt.Errorf("DEXSCREENER_RPS must be positive, got %v", c.Prices.DexScreenerRPS)
	}
	return nil
}

// RedisAddr returns the host:port Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
