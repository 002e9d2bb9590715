package common

import (
	"encoding/json"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Queue    QueueConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
	Storage  StorageConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// QueueConfig holds parse-queue configuration. An empty RedisAddr selects
// the in-process queue.
type QueueConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Stream        string
	DLQStream     string
	Group         string
	Consumer      string
	MaxAttempts   int
	Workers       int
}

// LLMConfig holds chat-completion client configuration
type LLMConfig struct {
	APIKey              string
	BaseURL             string
	ExtractModel        string
	ClassifyModel       string
	SummaryModel        string
	Temperature         float64
	ClassifyTemperature float64
	SummaryTemperature  float64
	DefaultTimeout      time.Duration
	ModelTimeouts       map[string]time.Duration
	ModelPricing        map[string]ModelPrice
	RequestsPerSecond   float64
}

// ModelPrice is a per-million-token USD price override for one model.
type ModelPrice struct {
	InputPerMillion  float64 `json:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million"`
}

// PipelineConfig holds task orchestration limits
type PipelineConfig struct {
	SoftTimeLimit time.Duration
	HardTimeLimit time.Duration
	MaxAttempts   int
	PromptVersion string
}

// StorageConfig holds document storage configuration
type StorageConfig struct {
	UploadDir string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Queue: QueueConfig{
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			Stream:        getEnv("QUEUE_STREAM", "parse_runs"),
			DLQStream:     getEnv("QUEUE_DLQ_STREAM", "parse_runs_dlq"),
			Group:         getEnv("QUEUE_GROUP", "parse_workers"),
			Consumer:      getEnv("QUEUE_CONSUMER", "worker-1"),
			MaxAttempts:   getEnvAsInt("QUEUE_MAX_ATTEMPTS", 5),
			Workers:       getEnvAsInt("QUEUE_WORKERS", 4),
		},
		LLM: LLMConfig{
			APIKey:              getEnv("OPENROUTER_API_KEY", ""),
			BaseURL:             getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			ExtractModel:        getEnv("OPENROUTER_EXTRACT_MODEL", "openai/gpt-4o-mini"),
			ClassifyModel:       getEnv("OPENROUTER_CLASSIFY_MODEL", "openai/gpt-4o-mini"),
			SummaryModel:        getEnv("OPENROUTER_SUMMARY_MODEL", "openai/gpt-4o-mini"),
			Temperature:         getEnvAsFloat64("OPENROUTER_TEMPERATURE", 0.1),
			ClassifyTemperature: getEnvAsFloat64("OPENROUTER_CLASSIFY_TEMPERATURE", 0.1),
			SummaryTemperature:  getEnvAsFloat64("OPENROUTER_SUMMARY_TEMPERATURE", 0.2),
			DefaultTimeout:      getEnvAsDuration("OPENROUTER_DEFAULT_TIMEOUT", 90*time.Second),
			ModelTimeouts:       getEnvAsDurationMap("OPENROUTER_MODEL_TIMEOUTS"),
			ModelPricing:        getEnvAsPriceMap("OPENROUTER_MODEL_PRICING"),
			RequestsPerSecond:   getEnvAsFloat64("OPENROUTER_RPS", 0),
		},
		Pipeline: PipelineConfig{
			SoftTimeLimit: getEnvAsDuration("PIPELINE_SOFT_TIME_LIMIT", 4*time.Minute),
			HardTimeLimit: getEnvAsDuration("PIPELINE_HARD_TIME_LIMIT", 5*time.Minute),
			MaxAttempts:   getEnvAsInt("PIPELINE_MAX_ATTEMPTS", 5),
			PromptVersion: getEnv("PIPELINE_PROMPT_VERSION", "v1"),
		},
		Storage: StorageConfig{
			UploadDir: getEnv("UPLOAD_DIR", "./uploads"),
		},
	}
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

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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

// getEnvAsDurationMap parses a JSON object of model -> duration string,
// e.g. {"openai/gpt-4o":"120s"}. Invalid entries are dropped.
func getEnvAsDurationMap(key string) map[string]time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var raw map[string]string
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return nil
	}
	out := make(map[string]time.Duration, len(raw))
	for model, s := range raw {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			out[model] = d
		}
	}
	return out
}

// getEnvAsPriceMap parses a JSON object of model -> price override,
// e.g. {"openai/gpt-4o":{"input_per_million":2.5,"output_per_million":10}}.
// Entries with a negative price are dropped.
func getEnvAsPriceMap(key string) map[string]ModelPrice {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var raw map[string]ModelPrice
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return nil
	}
	out := make(map[string]ModelPrice, len(raw))
	for model, p := range raw {
		if p.InputPerMillion < 0 || p.OutputPerMillion < 0 {
			continue
		}
		out[model] = p
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENROUTER_API_KEY is required", ErrInvalidInput)
	}
	if c.Pipeline.SoftTimeLimit >= c.Pipeline.HardTimeLimit {
		return NewAppError("CONFIG_ERROR", "PIPELINE_SOFT_TIME_LIMIT must be below PIPELINE_HARD_TIME_LIMIT", ErrInvalidInput)
	}
	return nil
}
