package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Pipeline
	Pipeline PipelineConfig

	// Artifact storage
	Storage StorageConfig

	// Database (optional run history)
	Database DatabaseConfig

	// Redis (optional provider cache)
	Redis RedisConfig

	// External APIs
	Yahoo YahooConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Scheduler
	Schedule string
}

// PipelineConfig holds ETL run defaults
type PipelineConfig struct {
	UniverseConfig string // optional path to products_config.json
	Period         string // lookback forwarded to the provider
	Workers        int    // 1 = strictly sequential
}

// StorageConfig selects where tier artifacts are written
type StorageConfig struct {
	Backend  string // fs, s3
	DataDir  string
	S3Bucket string
	S3Prefix string
	S3Region string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether run history should be persisted
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	CacheTTL time.Duration
}

// YahooConfig holds Yahoo Finance client configuration
type YahooConfig struct {
	BaseURL        string
	RequestsPerSec float64 // 0 = unlimited
	Timeout        time.Duration
}

// Load reads configuration from environment variables
// ⭐ SSOT: the only function calling os.Getenv()
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Pipeline: PipelineConfig{
			UniverseConfig: getEnv("UNIVERSE_CONFIG", ""),
			Period:         getEnv("PERIOD", "5y"),
			Workers:        getEnvAsInt("WORKERS", 1),
		},

		Storage: StorageConfig{
			Backend:  getEnv("ARTIFACT_BACKEND", "fs"),
			DataDir:  getEnv("DATA_DIR", "data"),
			S3Bucket: getEnv("S3_BUCKET", ""),
			S3Prefix: getEnv("S3_PREFIX", "prisme"),
			S3Region: getEnv("S3_REGION", "eu-west-3"),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 5),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			CacheTTL: getEnvAsDuration("CACHE_TTL", "6h"),
		},

		Yahoo: YahooConfig{
			BaseURL:        getEnv("YAHOO_BASE_URL", "https://query2.finance.yahoo.com"),
			RequestsPerSec: getEnvAsFloat("YAHOO_RPS", 0),
			Timeout:        getEnvAsDuration("HTTP_TIMEOUT", "30s"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		// Weekdays after the Euronext close
		Schedule: getEnv("SCHEDULE", "0 30 18 * * 1-5"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("WORKERS must be >= 1")
	}

	if c.Pipeline.Period == "" {
		return fmt.Errorf("PERIOD must not be empty")
	}

	switch c.Storage.Backend {
	case "fs":
		if c.Storage.DataDir == "" {
			return fmt.Errorf("DATA_DIR is required when ARTIFACT_BACKEND=fs")
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when ARTIFACT_BACKEND=s3")
		}
	default:
		return fmt.Errorf("ARTIFACT_BACKEND must be one of: fs, s3")
	}

	if c.Yahoo.RequestsPerSec < 0 {
		return fmt.Errorf("YAHOO_RPS must be >= 0")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",         // Current directory
		"backend/.env", // From project root
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
