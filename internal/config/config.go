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
	Ai        AIConfig
	Retrieval RetrievalConfig
	Keys      APIKeys
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	SearchServiceURL   string
	DailyTurnLimit     int64 // 0 disables the limit
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	Jina          string
	HuggingFace   string
	SearchService string
	FactTopic     string // Fact derivation topic
}

type AIConfig struct {
	EmbeddingProvider  string // "ollama" or "jina"
	EmbeddingDimension int
	OllamaBaseURL      string
	OllamaModel        string
	LLMProvider        string // "ollama" or "huggingface"
	LLMModel           string // e.g. "llama3", "qwen2.5"
}

// RetrievalConfig carries the tunable ranking thresholds. The relative
// ordering (low < mid < high, gate sits between the 0.7 and 0.8 confidence
// buckets) matters more than the exact values.
type RetrievalConfig struct {
	SimilarityLow  float64
	SimilarityMid  float64
	SimilarityHigh float64
	ConfidenceGate float64
	Limit          int
	MinFactLength  int // turns shorter than this are not distilled into facts
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			SearchServiceURL:   getEnv("SEARCH_SERVICE_URL", "http://localhost:4000"),
			DailyTurnLimit:     int64(getEnvAsInt("DAILY_TURN_LIMIT", 0)),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			Jina:          getEnv("JINA_API_KEY", ""),
			HuggingFace:   getEnv("HF_API_KEY", ""),
			SearchService: getEnv("SEARCH_SERVICE_API_KEY", ""),
			FactTopic:     getEnv("DERIVE_FACT_TOPIC_NAME", "DERIVE_KNOWLEDGE_FACT"),
		},
		Ai: AIConfig{
			EmbeddingProvider:  getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingDimension: getEnvAsInt("EMBEDDING_DIMENSION", 768),
			OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:        getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:        getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:           getEnv("LLM_MODEL", "llama3"),
		},
		Retrieval: RetrievalConfig{
			SimilarityLow:  getEnvAsFloat("RETRIEVAL_SIMILARITY_LOW", 0.25),
			SimilarityMid:  getEnvAsFloat("RETRIEVAL_SIMILARITY_MID", 0.3),
			SimilarityHigh: getEnvAsFloat("RETRIEVAL_SIMILARITY_HIGH", 0.4),
			ConfidenceGate: getEnvAsFloat("RETRIEVAL_CONFIDENCE_GATE", 0.7),
			Limit:          getEnvAsInt("RETRIEVAL_LIMIT", 6),
			MinFactLength:  getEnvAsInt("MIN_FACT_LENGTH", 12),
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
