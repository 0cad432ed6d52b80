package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Dialog    DialogConfig
	RateLimit RateLimitConfig
	LLM       LLMConfig
	Embedding EmbeddingConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	AdminEnabled       bool
}

type DatabaseConfig struct {
	Connection string
}

// DialogConfig holds the defaults for the turn pipeline. The admin surface
// can override RagMode, UseReason and UseGen at runtime without a restart.
type DialogConfig struct {
	RagMode         string // "metadata" or "vector"
	RagTopK         int
	SimilarityFloor float64
	NoiseRate       float64
	RiskSticky      bool
	UseReason       bool
	UseGen          bool
}

type RateLimitConfig struct {
	Enabled       bool
	IPPerMinute   int
	SessionPerMin int
	FailOpen      bool
	BucketTTLSec  int
}

type LLMConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	TimeoutSec int
	MaxRetries int
}

type EmbeddingConfig struct {
	OllamaBaseURL string
	OllamaModel   string
	Dimension     int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			AdminEnabled:       getEnvAsBool("ADMIN_ENABLED", true),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Dialog: DialogConfig{
			RagMode:         getEnv("RAG_MODE", "metadata"),
			RagTopK:         getEnvAsInt("RAG_TOP_K", 3),
			SimilarityFloor: getEnvAsFloat("RAG_SIMILARITY_FLOOR", 0.35),
			NoiseRate:       getEnvAsFloat("RAG_NOISE_RATE", 0.2),
			RiskSticky:      getEnvAsBool("RISK_STICKY", true),
			UseReason:       getEnvAsBool("USE_LLM_REASON", false),
			UseGen:          getEnvAsBool("USE_LLM_GEN", false),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvAsBool("RATE_LIMIT_ENABLED", true),
			IPPerMinute:   getEnvAsInt("RATE_LIMIT_IP_PER_MIN", 120),
			SessionPerMin: getEnvAsInt("RATE_LIMIT_SESSION_PER_MIN", 20),
			FailOpen:      getEnvAsBool("RATE_LIMIT_FAIL_OPEN", false),
			BucketTTLSec:  getEnvAsInt("RATE_LIMIT_BUCKET_TTL_SEC", 120),
		},
		LLM: LLMConfig{
			BaseURL:    getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com/v1"),
			APIKey:     getEnv("DEEPSEEK_API_KEY", ""),
			Model:      getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
			TimeoutSec: getEnvAsInt("DEEPSEEK_TIMEOUT_SEC", 6),
			MaxRetries: getEnvAsInt("DEEPSEEK_MAX_RETRIES", 3),
		},
		Embedding: EmbeddingConfig{
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:   getEnv("OLLAMA_EMBEDDING_MODEL", "bge-m3"),
			Dimension:     getEnvAsInt("EMBEDDING_DIMENSION", 1024),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
