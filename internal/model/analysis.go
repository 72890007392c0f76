package model

import "time"

// AnalysisResponse is the outbound payload for vision-model image analysis.
type AnalysisResponse struct {
	Analysis         string       `json:"analysis"`
	Model            string       `json:"model"`
	Prompt           string       `json:"prompt,omitempty"`
	FileName         string       `json:"fileName"`
	FileSize         int64        `json:"fileSize"`
	ProcessingTimeMs int64        `json:"processingTimeMs"`
	Timestamp        time.Time    `json:"timestamp"`
	Success          bool         `json:"success"`
	ErrorMessage     string       `json:"errorMessage,omitempty"`
	OllamaStats      *OllamaStats `json:"ollamaStats,omitempty"`
}

// OllamaStats carries daemon-side timing, converted to milliseconds.
type OllamaStats struct {
	TotalDurationMs int64 `json:"totalDurationMs"`
	LoadDurationMs  int64 `json:"loadDurationMs,omitempty"`
	EvalCount       int   `json:"evalCount,omitempty"`
	EvalDurationMs  int64 `json:"evalDurationMs,omitempty"`
}

// NewAnalysisError builds a failure response for an analysis request.
func NewAnalysisError(message string) *AnalysisResponse {
	return &AnalysisResponse{
		Success:      false,
		ErrorMessage: message,
		Timestamp:    time.Now(),
	}
}
