package model

import "time"

// ChatRequest is the inbound payload for blocking and streaming chat.
type ChatRequest struct {
	Message        string `json:"message"`
	Model          string `json:"model"`
	ConversationID string `json:"conversationId,omitempty"`
	SystemPrompt   string `json:"systemPrompt,omitempty"`
}

// ChatResponse is the outbound payload for a chat turn.
type ChatResponse struct {
	Response         string    `json:"response"`
	Model            string    `json:"model"`
	ConversationID   string    `json:"conversationId"`
	TokenCount       int       `json:"tokenCount,omitempty"`
	ProcessingTimeMs int64     `json:"processingTimeMs"`
	Timestamp        time.Time `json:"timestamp"`
	Success          bool      `json:"success"`
	ErrorMessage     string    `json:"errorMessage,omitempty"`
}

// NewChatError builds a failure response carrying a human-readable message.
func NewChatError(message string) *ChatResponse {
	return &ChatResponse{
		Success:      false,
		ErrorMessage: message,
		Timestamp:    time.Now(),
	}
}

// HistoryResponse is the payload for a conversation history fetch.
type HistoryResponse struct {
	ConversationID string    `json:"conversation_id"`
	History        []Message `json:"history"`
	MessageCount   int       `json:"message_count"`
}

// InstallResponse acknowledges a background model install.
type InstallResponse struct {
	Model    string `json:"model"`
	Status   string `json:"status"`
	Response string `json:"response,omitempty"`
	Success  bool   `json:"success"`
}

// ModelStatusResponse reports readiness of a single model.
type ModelStatusResponse struct {
	Model     string `json:"model"`
	Available bool   `json:"available"`
	Status    string `json:"status"`
}

// ModelsResponse lists models the gateway can serve.
type ModelsResponse struct {
	AvailableModels   []string `json:"available_models"`
	DefaultModel      string   `json:"default_model"`
	RecommendedModels []string `json:"recommended_models,omitempty"`
}
