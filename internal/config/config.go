package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port        string `validate:"required,numeric"`
	DBDriver    string `validate:"required,oneof=sqlite3 postgres"`
	DatabaseURL string `validate:"required"`

	// An empty RedisAddr disables the view cache and change events.
	RedisAddr         string `validate:"omitempty,hostname_port"`
	RedisPassword     string
	RedisDB           int           `validate:"gte=0,lte=15"`
	CacheTTL          time.Duration `validate:"gte=0"`
	EventStreamMaxLen int64         `validate:"gte=0"`

	CORSOrigin string `validate:"required"`
	StaticDir  string
	LogLevel   string `validate:"oneof=trace debug info warn error"`
	Env        string `validate:"oneof=development production test"`
}

var validate = validator.New()

// Load reads an optional .env file, then the process environment, and validates the result.
// Variables already set in the environment win over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using process environment")
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	maxLen, err := strconv.ParseInt(getEnv("EVENT_STREAM_MAXLEN", "10000"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid EVENT_STREAM_MAXLEN: %w", err)
	}

	cfg := &Config{
		Port:              getEnv("PORT", "3000"),
		DBDriver:          getEnv("DB_DRIVER", "sqlite3"),
		DatabaseURL:       getEnv("DATABASE_URL", "tax_tracker.db"),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           redisDB,
		CacheTTL:          cacheTTL,
		EventStreamMaxLen: maxLen,
		CORSOrigin:        getEnv("CORS_ORIGIN", "*"),
		StaticDir:         getEnv("STATIC_DIR", "public"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		Env:               getEnv("ENV", "development"),
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
