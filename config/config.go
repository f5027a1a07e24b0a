package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	OpenFoodFacts OpenFoodFactsConfig `mapstructure:"openfoodfacts"`
	Reasoning     ReasoningConfig     `mapstructure:"reasoning"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	Similarity    SimilarityConfig    `mapstructure:"similarity"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Confidence    ConfidenceConfig    `mapstructure:"confidence"`
	Family        FamilyConfig        `mapstructure:"family"`
	RateLimit     RateLimitConfig     `mapstructure:"ratelimit"`
	Log           LogConfig           `mapstructure:"log"`
	Tracing       TracingConfig       `mapstructure:"tracing"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	Environment    string        `mapstructure:"environment"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"` // whole-pipeline budget per scan
}

// OpenFoodFactsConfig holds product lookup configuration
type OpenFoodFactsConfig struct {
	Locale   string        `mapstructure:"locale"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ReasoningConfig holds reasoning-service configuration
type ReasoningConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	Temperature       float32       `mapstructure:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RatePerSecond     float64       `mapstructure:"rate_per_second"`
	Burst             int           `mapstructure:"burst"`
	ResponseCacheSize int           `mapstructure:"response_cache_size"`
	ResponseCacheTTL  time.Duration `mapstructure:"response_cache_ttl"`
}

// EmbeddingConfig holds embedding configuration
type EmbeddingConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Model      string        `mapstructure:"model"`
	Dimensions int           `mapstructure:"dimensions"`
	CacheSize  int           `mapstructure:"cache_size"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
}

// SimilarityConfig holds similarity search configuration
type SimilarityConfig struct {
	Backend     string  `mapstructure:"backend"` // "none", "memory" or "postgres"
	DatabaseURL string  `mapstructure:"database_url"`
	TopK        int     `mapstructure:"top_k"`
	Threshold   float64 `mapstructure:"threshold"`
}

// CacheConfig holds scan cache configuration
type CacheConfig struct {
	Type            string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL        string        `mapstructure:"redis_url"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// ConfidenceConfig holds the confidence heuristic constants
type ConfidenceConfig struct {
	Base                 float64 `mapstructure:"base"`
	CompletenessWeight   float64 `mapstructure:"completeness_weight"`
	SimilarProductsBonus float64 `mapstructure:"similar_products_bonus"`
	SimilarProductsMin   int     `mapstructure:"similar_products_min"`
	CertificationBonus   float64 `mapstructure:"certification_bonus"`
	CautionPenalty       float64 `mapstructure:"caution_penalty"`
	DangerPenalty        float64 `mapstructure:"danger_penalty"`
	Fallback             float64 `mapstructure:"fallback"`
	Degraded             float64 `mapstructure:"degraded"`
}

// FamilyConfig holds family orchestration configuration
type FamilyConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// LogConfig holds logging configuration
type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"` // OTLP/HTTP host:port; empty prints spans to stdout
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Load loads configuration from a .env file, environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/smarties/")

	// SMARTIES_REASONING_API_KEY -> reasoning.api_key
	v.SetEnvPrefix("SMARTIES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads ./.env into the process environment without overriding
// variables that are already set. A missing file is not an error.
func loadEnvFile() error {
	err := godotenv.Load(".env")
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values. Every key gets a default so
// AutomaticEnv can find it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"chrome-extension://*"})
	v.SetDefault("server.request_timeout", "3s")

	// Open Food Facts defaults
	v.SetDefault("openfoodfacts.locale", "world")
	v.SetDefault("openfoodfacts.username", "")
	v.SetDefault("openfoodfacts.password", "")
	v.SetDefault("openfoodfacts.timeout", "2s")

	// Reasoning defaults
	v.SetDefault("reasoning.api_key", "")
	v.SetDefault("reasoning.base_url", "https://api.openai.com/v1")
	v.SetDefault("reasoning.model", "gpt-4o-mini")
	v.SetDefault("reasoning.temperature", 0.1)
	v.SetDefault("reasoning.max_tokens", 1000)
	v.SetDefault("reasoning.timeout", "2s")
	v.SetDefault("reasoning.max_retries", 1)
	v.SetDefault("reasoning.rate_per_second", 5)
	v.SetDefault("reasoning.burst", 10)
	v.SetDefault("reasoning.response_cache_size", 500)
	v.SetDefault("reasoning.response_cache_ttl", "1h")

	// Embedding defaults
	v.SetDefault("embedding.enabled", true)
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimensions", 384)
	v.SetDefault("embedding.cache_size", 1000)
	v.SetDefault("embedding.cache_ttl", "24h")

	// Similarity defaults
	v.SetDefault("similarity.backend", "none")
	v.SetDefault("similarity.database_url", "")
	v.SetDefault("similarity.top_k", 5)
	v.SetDefault("similarity.threshold", 0.7)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.cleanup_interval", "10m")

	// Confidence policy defaults
	v.SetDefault("confidence.base", 0.5)
	v.SetDefault("confidence.completeness_weight", 0.3)
	v.SetDefault("confidence.similar_products_bonus", 0.1)
	v.SetDefault("confidence.similar_products_min", 3)
	v.SetDefault("confidence.certification_bonus", 0.1)
	v.SetDefault("confidence.caution_penalty", 0.8)
	v.SetDefault("confidence.danger_penalty", 0.9)
	v.SetDefault("confidence.fallback", 0.1)
	v.SetDefault("confidence.degraded", 0.3)

	v.SetDefault("family.max_concurrency", 4)
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("log.mode", "development")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.insecure", false)
	v.SetDefault("tracing.sample_ratio", 0.1)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Reasoning.APIKey == "" {
		return fmt.Errorf("reasoning API key is required (set SMARTIES_REASONING_API_KEY)")
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	switch config.Similarity.Backend {
	case "none", "memory":
	case "postgres":
		if config.Similarity.DatabaseURL == "" {
			return fmt.Errorf("database URL is required when similarity backend is 'postgres'")
		}
	default:
		return fmt.Errorf("similarity backend must be 'none', 'memory' or 'postgres', got: %s", config.Similarity.Backend)
	}

	if config.Similarity.Threshold < 0 || config.Similarity.Threshold > 1 {
		return fmt.Errorf("similarity threshold must be within [0,1], got: %v", config.Similarity.Threshold)
	}

	c := config.Confidence
	for name, value := range map[string]float64{
		"base":                   c.Base,
		"completeness_weight":    c.CompletenessWeight,
		"similar_products_bonus": c.SimilarProductsBonus,
		"certification_bonus":    c.CertificationBonus,
		"fallback":               c.Fallback,
		"degraded":               c.Degraded,
	} {
		if value < 0 || value > 1 {
			return fmt.Errorf("confidence.%s must be within [0,1], got: %v", name, value)
		}
	}
	for name, value := range map[string]float64{
		"caution_penalty": c.CautionPenalty,
		"danger_penalty":  c.DangerPenalty,
	} {
		if value <= 0 || value > 1 {
			return fmt.Errorf("confidence.%s must be within (0,1], got: %v", name, value)
		}
	}

	if config.Tracing.SampleRatio < 0 || config.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing sample ratio must be within [0,1], got: %v", config.Tracing.SampleRatio)
	}

	if config.Family.MaxConcurrency <= 0 {
		return fmt.Errorf("family max concurrency must be positive, got: %d", config.Family.MaxConcurrency)
	}

	return nil
}
