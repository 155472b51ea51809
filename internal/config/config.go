package config

import (
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration.
type Config struct {
	// LLM access
	OpenRouterAPIKey        string
	OpenRouterModel         string
	OpenRouterFallbackModel string

	// Embedding service (OpenAI-compatible endpoint)
	EmbeddingBaseURL string
	EmbeddingAPIKey  string
	EmbeddingModel   string
	EmbeddingDim     int

	// Storage
	MilvusHost string
	MilvusPort string

	// Surfaces
	HTTPAddr       string
	TelegramToken  string
	AdminUserIDs   string
	AllowedUserIDs string

	// External rule file for technology groups, domain tags and
	// entity disambiguation. Built-in defaults apply when empty.
	RulesFile string

	UserAgent string

	Similarity Similarity
	Retrieval  Retrieval
	Synthesis  Synthesis
}

// Similarity holds the thresholds of the cache-hit pipeline.
type Similarity struct {
	EmbeddingFloor  float64
	JudgeConfidence float64
	TextualFloor    float64
	StrictMargin    float64
	Neighbors       int
	JudgeTimeout    time.Duration
}

// Retrieval holds fetch and scoring limits.
type Retrieval struct {
	MaxSources       int
	Overfetch        int
	FetchConcurrency int
	FetchTimeout     time.Duration
	OverallTimeout   time.Duration
	PerDomainCap     int
	MinQuality       float64
	MinRelevance     float64
}

// Synthesis holds summarization limits.
type Synthesis struct {
	MaxSentences  int
	ContentBudget int
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		OpenRouterAPIKey:        os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:         getEnvWithDefault("OPENROUTER_MODEL", "meta-llama/llama-3-70b-instruct"),
		OpenRouterFallbackModel: getEnvWithDefault("OPENROUTER_FALLBACK_MODEL", "mistralai/mixtral-8x7b-instruct"),

		EmbeddingBaseURL: getEnvWithDefault("EMBEDDING_BASE_URL", "https://api.openai.com/v1"),
		EmbeddingAPIKey:  os.Getenv("EMBEDDING_API_KEY"),
		EmbeddingModel:   getEnvWithDefault("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDim:     getEnvInt("EMBEDDING_DIM", 1536),

		MilvusHost: getEnvWithDefault("MILVUS_HOST", "milvus"),
		MilvusPort: getEnvWithDefault("MILVUS_PORT", "19530"),

		HTTPAddr:       getEnvWithDefault("HTTP_ADDR", ":8080"),
		TelegramToken:  os.Getenv("TG_BOT_TOKEN"),
		AdminUserIDs:   os.Getenv("ADMIN_USER_IDS"),
		AllowedUserIDs: os.Getenv("ALLOWED_USER_IDS"),

		RulesFile: os.Getenv("RULES_FILE"),

		UserAgent: getEnvWithDefault("USER_AGENT", "FerretResearchBot/1.0"),

		Similarity: Similarity{
			EmbeddingFloor:  getEnvFloat("SIM_EMBEDDING_FLOOR", 0.85),
			JudgeConfidence: getEnvFloat("SIM_JUDGE_CONFIDENCE", 0.75),
			TextualFloor:    getEnvFloat("SIM_TEXTUAL_FLOOR", 0.3),
			StrictMargin:    getEnvFloat("SIM_STRICT_MARGIN", 0.05),
			Neighbors:       getEnvInt("SIM_NEIGHBORS", 5),
			JudgeTimeout:    getEnvDuration("SIM_JUDGE_TIMEOUT", 20*time.Second),
		},
		Retrieval: Retrieval{
			MaxSources:       getEnvInt("RETRIEVAL_MAX_SOURCES", 5),
			Overfetch:        getEnvInt("RETRIEVAL_OVERFETCH", 10),
			FetchConcurrency: getEnvInt("RETRIEVAL_CONCURRENCY", 4),
			FetchTimeout:     getEnvDuration("RETRIEVAL_FETCH_TIMEOUT", 15*time.Second),
			OverallTimeout:   getEnvDuration("RETRIEVAL_OVERALL_TIMEOUT", 60*time.Second),
			PerDomainCap:     getEnvInt("RETRIEVAL_PER_DOMAIN_CAP", 2),
			MinQuality:       getEnvFloat("RETRIEVAL_MIN_QUALITY", 0.3),
			MinRelevance:     getEnvFloat("RETRIEVAL_MIN_RELEVANCE", 0.2),
		},
		Synthesis: Synthesis{
			MaxSentences:  getEnvInt("SYNTHESIS_MAX_SENTENCES", 8),
			ContentBudget: getEnvInt("SYNTHESIS_CONTENT_BUDGET", 12000),
		},
	}
}

// getEnvWithDefault gets an environment variable or returns a default value.
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
