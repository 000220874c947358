package config

import (
	"fmt"
	"time"

	"github.com/RishiKendai/aegis-tiling/internal/configs/env"
)

// Config holds all configuration for the application
type Config struct {
	// MongoDB
	MongoURI    string
	MongoDBName string

	// Redis
	RedisHost               string
	RedisPassword           string
	RedisStreamKey          string
	RedisConsumerGroup      string
	RedisDeadLetterKey      string
	StreamRetentionDuration time.Duration

	// Astra tokenizer
	AstraBaseURL string
	AstraAPIKey  string

	// JWT
	JWTSecret string
	JWTIssuer string

	// Rate Limiting
	RateLimitRPS float64

	// Concurrency
	MaxConcurrentCompute int
	Workers              int

	// Computation
	ComputationTimeout  time.Duration
	MinimumTokenMatch   int
	DebugParser         bool
	MaxSubmissionTokens int

	// Logging
	LogLevel  string
	LogPretty bool

	// Server
	ServerPort  string
	MetricsPort string
}

func Load() (*Config, error) {
	cfg := &Config{}

	// MongoDB
	cfg.MongoURI = env.GetEnv("MONGO_URI", "")
	cfg.MongoDBName = env.GetEnv("MONGO_DB_NAME", "")

	// Redis
	cfg.RedisHost = env.GetEnv("REDIS_HOST", "localhost:6379")
	cfg.RedisPassword = env.GetEnv("REDIS_PASSWORD", "")
	cfg.RedisStreamKey = env.GetEnv("REDIS_STREAM_KEY", "submissions:stream")
	cfg.RedisConsumerGroup = env.GetEnv("REDIS_CONSUMER_GROUP", "submissions:group")
	cfg.RedisDeadLetterKey = env.GetEnv("REDIS_DEAD_LETTER_KEY", "submissions:dlq")
	retentionHours := env.GetEnvInt("STREAM_RETENTION_DURATION", 24)
	cfg.StreamRetentionDuration = time.Duration(retentionHours) * time.Hour

	// Astra tokenizer
	cfg.AstraBaseURL = env.GetEnv("ASTRA_BASE_URL", "")
	cfg.AstraAPIKey = env.GetEnv("ASTRA_API_KEY", "")

	// JWT
	cfg.JWTSecret = env.GetEnv("JWT_SECRET", "")
	cfg.JWTIssuer = env.GetEnv("JWT_ISSUER", "aegis-tiling")

	// Rate Limiting
	cfg.RateLimitRPS = env.GetEnvFloat("RATE_LIMIT_RPS", 10.0)

	// Concurrency
	cfg.MaxConcurrentCompute = env.GetEnvInt("MAX_CONCURRENT_COMPUTE", 2)
	cfg.Workers = env.GetEnvInt("WORKERS", 0) // 0 = size by CPU count

	// Computation
	timeoutMinutes := env.GetEnvInt("COMPUTATION_TIMEOUT_MINUTES", 30)
	cfg.ComputationTimeout = time.Duration(timeoutMinutes) * time.Minute
	cfg.MinimumTokenMatch = env.GetEnvInt("MINIMUM_TOKEN_MATCH", 9)
	cfg.DebugParser = env.GetEnvBool("DEBUG_PARSER", false)
	cfg.MaxSubmissionTokens = env.GetEnvInt("MAX_SUBMISSION_TOKENS", 0)

	// Logging
	cfg.LogLevel = env.GetEnv("LOG_LEVEL", "info")
	cfg.LogPretty = env.GetEnvBool("LOG_PRETTY", false)

	// Server
	cfg.ServerPort = env.GetEnv("SERVER_PORT", "8080")
	cfg.MetricsPort = env.GetEnv("METRICS_PORT", "2112")

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.MongoDBName == "" {
		return fmt.Errorf("MONGO_DB_NAME is required")
	}
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.AstraBaseURL == "" {
		return fmt.Errorf("ASTRA_BASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.MaxConcurrentCompute <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_COMPUTE must be greater than 0")
	}
	if c.Workers < 0 {
		return fmt.Errorf("WORKERS must not be negative")
	}
	if c.MinimumTokenMatch < 1 {
		return fmt.Errorf("MINIMUM_TOKEN_MATCH must be at least 1")
	}
	if c.MaxSubmissionTokens < 0 {
		return fmt.Errorf("MAX_SUBMISSION_TOKENS must not be negative")
	}
	if c.StreamRetentionDuration <= 0 {
		return fmt.Errorf("STREAM_RETENTION_DURATION must be greater than 0")
	}
	if c.ComputationTimeout <= 0 {
		return fmt.Errorf("COMPUTATION_TIMEOUT_MINUTES must be greater than 0")
	}
	return nil
}
