package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds the application's configuration
type Config struct {
	LLMBaseURL        string        `mapstructure:"OPENROUTER_BASE_URL"`
	LLMAPIKey         string        `mapstructure:"OPENROUTER_API_KEY"`
	ModelID           string        `mapstructure:"MODEL_ID"`
	LLMReferer        string        `mapstructure:"LLM_REFERER"`
	LLMTitle          string        `mapstructure:"LLM_TITLE"`
	LLMRequestTimeout time.Duration `mapstructure:"-"`
	MaxRetries        int           `mapstructure:"MAX_RETRIES"`
	RetryDelay        time.Duration `mapstructure:"-"`

	EmbeddingProvider string `mapstructure:"EMBEDDING_PROVIDER"`
	EmbeddingLLMHost  string `mapstructure:"EMBEDDING_LLM_HOST"`
	EmbeddingAPIKey   string `mapstructure:"EMBEDDING_API_KEY"`
	EmbeddingModel    string `mapstructure:"EMBEDDING_MODEL"`
	EmbeddingWorkers  int    `mapstructure:"EMBEDDING_WORKERS"`
	EmbeddingBatch    int    `mapstructure:"EMBEDDING_BATCH_SIZE"`
	EmbeddingCacheDir string `mapstructure:"EMBEDDING_CACHE_DIR"`
	QueryCacheSize    int    `mapstructure:"QUERY_CACHE_SIZE"`
	VectorBackend     string `mapstructure:"VECTOR_BACKEND"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`

	FAQFiles          []string `mapstructure:"FAQ_FILES"`
	SemanticTopK      int      `mapstructure:"SEMANTIC_TOP_K"`
	HintTopK          int      `mapstructure:"HINT_TOP_K"`
	RelevanceFloor    float64  `mapstructure:"RELEVANCE_FLOOR"`
	ReliableThreshold float64  `mapstructure:"RELIABLE_THRESHOLD"`
	MaxAdditional     int      `mapstructure:"MAX_ADDITIONAL"`
	UseSemantic       bool     `mapstructure:"USE_SEMANTIC"`

	WebPort            int    `mapstructure:"WEB_PORT"`
	LogLevel           string `mapstructure:"LOG_LEVEL"`
	RateLimitPerMinute int    `mapstructure:"RATE_LIMIT_PER_MIN"`
	RateLimitBurstSize int    `mapstructure:"RATE_LIMIT_BURST_SIZE"`
}

// Embedding providers understood by the bootstrap code.
const (
	EmbeddingProviderLlamaCpp = "llamacpp"
	EmbeddingProviderOpenAI   = "openai"
	EmbeddingProviderNone     = "none"
)

// Vector search backends.
const (
	VectorBackendMemory   = "memory"
	VectorBackendPgvector = "pgvector"
)

func Load(logger *zap.Logger) *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")        // For running locally
	v.AddConfigPath("../")      // For running from docker subdir
	v.AddConfigPath("./config") // Common config folder
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if logger != nil {
			logger.Warn("Could not read config file, using defaults/env vars", zap.Error(err))
		}
	}

	config, err := decode(v)
	if err != nil {
		// Config unmarshaling is critical - fail fast during bootstrap
		if logger != nil {
			logger.Fatal("Unable to decode config into struct", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "FATAL: Unable to decode config into struct: %v\n", err)
			os.Exit(1)
		}
	}
	return config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1")
	v.SetDefault("OPENROUTER_API_KEY", "")
	v.SetDefault("MODEL_ID", "meta-llama/llama-3.3-70b-instruct")
	v.SetDefault("LLM_REFERER", "http://localhost")
	v.SetDefault("LLM_TITLE", "FAQ Assistant")
	v.SetDefault("LLM_REQUEST_TIMEOUT", 0)
	v.SetDefault("MAX_RETRIES", 1)
	v.SetDefault("RETRY_DELAY_SECONDS", 2)

	v.SetDefault("EMBEDDING_PROVIDER", EmbeddingProviderLlamaCpp)
	v.SetDefault("EMBEDDING_LLM_HOST", "http://localhost:8081")
	v.SetDefault("EMBEDDING_API_KEY", "none")
	v.SetDefault("EMBEDDING_MODEL", "intfloat/e5-large-v2")
	v.SetDefault("EMBEDDING_WORKERS", 4)
	v.SetDefault("EMBEDDING_BATCH_SIZE", 16)
	v.SetDefault("EMBEDDING_CACHE_DIR", "")
	v.SetDefault("QUERY_CACHE_SIZE", 512)
	v.SetDefault("VECTOR_BACKEND", VectorBackendMemory)
	v.SetDefault("DATABASE_URL", "")

	v.SetDefault("FAQ_FILES", []string{"data/library_faq.json", "data/custom_faq.json"})
	v.SetDefault("SEMANTIC_TOP_K", 5)
	v.SetDefault("HINT_TOP_K", 3)
	v.SetDefault("RELEVANCE_FLOOR", 0.3)
	v.SetDefault("RELIABLE_THRESHOLD", 0.7)
	v.SetDefault("MAX_ADDITIONAL", 2)
	v.SetDefault("USE_SEMANTIC", true)

	v.SetDefault("WEB_PORT", 8000)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RATE_LIMIT_PER_MIN", 30)
	v.SetDefault("RATE_LIMIT_BURST_SIZE", 10)
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// FAQ_FILES arrives as a comma separated string when set through the environment.
	files := make([]string, 0, len(config.FAQFiles))
	for _, entry := range config.FAQFiles {
		for _, path := range strings.Split(entry, ",") {
			path = strings.TrimSpace(path)
			if path != "" {
				files = append(files, path)
			}
		}
	}
	config.FAQFiles = files

	config.EmbeddingProvider = strings.ToLower(strings.TrimSpace(config.EmbeddingProvider))
	config.VectorBackend = strings.ToLower(strings.TrimSpace(config.VectorBackend))
	config.LLMBaseURL = strings.TrimRight(strings.TrimSpace(config.LLMBaseURL), "/")

	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}

	// Durations are configured in whole seconds
	config.RetryDelay = time.Duration(v.GetInt("RETRY_DELAY_SECONDS")) * time.Second
	config.LLMRequestTimeout = time.Duration(v.GetInt("LLM_REQUEST_TIMEOUT")) * time.Second

	return &config, nil
}
