// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	Environment        string

	// NATS settings
	NATSEnabled  bool
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Redis settings
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTimeout  time.Duration

	// JWT settings
	JWTSecret string

	// LLM settings
	AnthropicAPIKey string
	OpenAIAPIKey    string
	LLMProvider     string
	LLMModel        string
	LLMMaxTokens    int

	// Prefetch engine
	PrefetchEnabled         bool
	SingleFlight            bool
	PredictionsPerQuery     int
	MinConfidence           float64
	BridgePromptsEnabled    bool
	CachePredictedQuestions bool
	CacheTTL                time.Duration
	CacheKnownTTL           time.Duration
	PromotionThreshold      int
	PromotionWindow         time.Duration
	SessionTimeout          time.Duration
	CostPerCall             float64

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),
		Environment:        getEnv("ENV", "production"),

		// NATS
		NATSEnabled:  getBoolEnv("NATS_ENABLED", false),
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Redis
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		RedisTimeout:  getDurationEnv("REDIS_TIMEOUT", 2*time.Second),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "development-secret-change-in-production"),

		// LLM
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		LLMProvider:     getEnv("LLM_PROVIDER", "anthropic"),
		LLMModel:        getEnv("LLM_MODEL", ""),
		LLMMaxTokens:    getIntEnv("LLM_MAX_TOKENS", 8192),

		// Prefetch engine
		PrefetchEnabled:         getBoolEnv("PREFETCH_ENABLED", true),
		SingleFlight:            getBoolEnv("PREFETCH_SINGLEFLIGHT", false),
		PredictionsPerQuery:     getIntEnv("PREDICTIONS_PER_QUERY", 15),
		MinConfidence:           getFloatEnv("MIN_CONFIDENCE", 0.7),
		BridgePromptsEnabled:    getBoolEnv("BRIDGE_PROMPTS_ENABLED", true),
		CachePredictedQuestions: getBoolEnv("CACHE_PREDICTED_QUESTIONS", true),
		CacheTTL:                getDurationEnv("CACHE_TTL", 72*time.Hour),
		CacheKnownTTL:           getDurationEnv("CACHE_KNOWN_TTL", 30*24*time.Hour),
		PromotionThreshold:      getIntEnv("PROMOTION_THRESHOLD", 10),
		PromotionWindow:         getDurationEnv("PROMOTION_WINDOW", 7*24*time.Hour),
		SessionTimeout:          getDurationEnv("SESSION_TIMEOUT", 30*time.Minute),
		CostPerCall:             getFloatEnv("COST_PER_CALL", 0.002),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
