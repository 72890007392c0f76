// Package config provides environment configuration for the gateway.
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

	// Ollama daemon settings
	OllamaBaseURL string
	ChatTimeout   time.Duration
	VisionTimeout time.Duration
	ProbeTimeout  time.Duration
	PullTimeout   time.Duration
	TagsTimeout   time.Duration

	// Model defaults
	DefaultChatModel   string
	DefaultVisionModel string

	// Conversation settings
	ConversationTTL time.Duration

	// Upload limits
	OCRMaxUploadBytes    int64
	VisionMaxUploadBytes int64

	// OCR settings
	TessdataPrefix string

	// Auth (optional; routes are open when the secret is empty)
	JWTSecret string

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
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Minute),

		// Ollama
		OllamaBaseURL: getEnv("OLLAMA_URL", "http://localhost:11434"),
		ChatTimeout:   getDurationEnv("CHAT_TIMEOUT", 10*time.Minute),
		VisionTimeout: getDurationEnv("VISION_TIMEOUT", 5*time.Minute),
		ProbeTimeout:  getDurationEnv("PROBE_TIMEOUT", 5*time.Second),
		PullTimeout:   getDurationEnv("PULL_TIMEOUT", 30*time.Minute),
		TagsTimeout:   getDurationEnv("TAGS_TIMEOUT", 10*time.Second),

		// Models
		DefaultChatModel:   getEnv("DEFAULT_CHAT_MODEL", "gemma2:2b"),
		DefaultVisionModel: getEnv("DEFAULT_VISION_MODEL", "llava:latest"),

		// Conversations; zero keeps history until explicitly cleared
		ConversationTTL: getDurationEnv("CONVERSATION_TTL", 0),

		// Uploads
		OCRMaxUploadBytes:    getInt64Env("OCR_MAX_UPLOAD_BYTES", 10*1024*1024),
		VisionMaxUploadBytes: getInt64Env("VISION_MAX_UPLOAD_BYTES", 50*1024*1024),

		// OCR
		TessdataPrefix: getEnv("TESSDATA_PREFIX", ""),

		// Auth
		JWTSecret: getEnv("AUTH_JWT_SECRET", ""),

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

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
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
