package common

import (
	"os"
	"strconv"
	"time"

	"github.com/peekwez/docai/constants"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	LLM      LLMConfig
	Server   ServerConfig
	Worker   WorkerConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// RedisConfig holds the queue broker connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StorageConfig holds content-store configuration
type StorageConfig struct {
	Bucket           string
	PresignTTL       time.Duration
	StageConcurrency int
}

// LLMConfig holds model endpoint configuration
type LLMConfig struct {
	APIKey      string
	BaseURL     string
	TextModel   string
	VisionModel string
	Timeout     time.Duration
	MaxAttempts int
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr string
}

// WorkerConfig holds queue worker tuning
type WorkerConfig struct {
	Concurrency int
	TaskTimeout time.Duration
	Retention   time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Bucket:           getEnv("FILES_BUCKET", ""),
			PresignTTL:       getEnvAsDuration("PRESIGN_TTL", constants.PresignTTLSecs*time.Second),
			StageConcurrency: getEnvAsInt("STAGE_CONCURRENCY", constants.StageConcurrency),
		},
		LLM: LLMConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			TextModel:   getEnv("TEXT_MODEL", "gpt-4-1106-preview"),
			VisionModel: getEnv("VISION_MODEL", "gpt-4-vision-preview"),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 90*time.Second),
			MaxAttempts: getEnvAsInt("LLM_MAX_ATTEMPTS", constants.MaxExtractAttempts),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvAsInt("WORKER_CONCURRENCY", 10),
			TaskTimeout: getEnvAsDuration("WORKER_TASK_TIMEOUT", 300*time.Second),
			Retention:   getEnvAsDuration("WORKER_RETENTION", 14*24*time.Hour),
		},
	}
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return &DomainError{Name: "ConfigError", Message: "DB_URL is required"}
	}
	if c.LLM.APIKey == "" {
		return &DomainError{Name: "ConfigError", Message: "OPENAI_API_KEY is required"}
	}
	if c.Storage.Bucket == "" {
		return &DomainError{Name: "ConfigError", Message: "FILES_BUCKET is required"}
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
