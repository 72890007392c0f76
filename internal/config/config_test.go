package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaBaseURL)
	assert.Equal(t, 10*time.Minute, cfg.ChatTimeout)
	assert.Equal(t, 5*time.Minute, cfg.VisionTimeout)
	assert.Equal(t, 5*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, 30*time.Minute, cfg.PullTimeout)
	assert.Equal(t, "gemma2:2b", cfg.DefaultChatModel)
	assert.Equal(t, "llava:latest", cfg.DefaultVisionModel)
	assert.Zero(t, cfg.ConversationTTL)
	assert.Equal(t, int64(10*1024*1024), cfg.OCRMaxUploadBytes)
	assert.Equal(t, int64(50*1024*1024), cfg.VisionMaxUploadBytes)
	assert.Empty(t, cfg.JWTSecret)
	assert.Equal(t, 60, cfg.RateLimitRequests)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.TracingEnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("OLLAMA_URL", "http://ollama.internal:11434")
	t.Setenv("CHAT_TIMEOUT", "2m")
	t.Setenv("DEFAULT_CHAT_MODEL", "llama3.2:1b")
	t.Setenv("CONVERSATION_TTL", "1h")
	t.Setenv("OCR_MAX_UPLOAD_BYTES", "1048576")
	t.Setenv("RATE_LIMIT_REQUESTS", "10")
	t.Setenv("TRACING_ENABLED", "true")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, "http://ollama.internal:11434", cfg.OllamaBaseURL)
	assert.Equal(t, 2*time.Minute, cfg.ChatTimeout)
	assert.Equal(t, "llama3.2:1b", cfg.DefaultChatModel)
	assert.Equal(t, time.Hour, cfg.ConversationTTL)
	assert.Equal(t, int64(1048576), cfg.OCRMaxUploadBytes)
	assert.Equal(t, 10, cfg.RateLimitRequests)
	assert.True(t, cfg.TracingEnabled)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("CHAT_TIMEOUT", "not-a-duration")
	t.Setenv("RATE_LIMIT_REQUESTS", "many")
	t.Setenv("TRACING_ENABLED", "yep")

	cfg := Load()

	assert.Equal(t, 10*time.Minute, cfg.ChatTimeout)
	assert.Equal(t, 60, cfg.RateLimitRequests)
	assert.False(t, cfg.TracingEnabled)
}
