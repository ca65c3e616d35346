package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Feed      FeedConfig
	Catalog   CatalogConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type LoggingConfig struct {
	Level string // "info" for standard output, "debug" for fine-grained traces
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

// RedisConfig is only used for request rate limiting; an empty Host
// disables the limiter entirely.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// FeedConfig points at the external price feed (a GraphQL endpoint).
type FeedConfig struct {
	URL     string
	Timeout time.Duration
}

// CatalogConfig controls the background refresh of the price list.
type CatalogConfig struct {
	RefreshInterval time.Duration
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

func Load() *Config {
	// Best-effort .env load so plain `go run` picks up local settings.
	_ = godotenv.Load()

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "3000")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("FEED_URL", "https://api.tarkov.dev/graphql")
	viper.SetDefault("FEED_TIMEOUT", "30s")
	viper.SetDefault("CATALOG_REFRESH_INTERVAL", "1h")
	viper.SetDefault("RATE_LIMIT_RPM", 120)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Logging: LoggingConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Feed: FeedConfig{
			URL:     viper.GetString("FEED_URL"),
			Timeout: viper.GetDuration("FEED_TIMEOUT"),
		},
		Catalog: CatalogConfig{
			RefreshInterval: viper.GetDuration("CATALOG_REFRESH_INTERVAL"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: viper.GetInt("RATE_LIMIT_RPM"),
		},
	}
}
