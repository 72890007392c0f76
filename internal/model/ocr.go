package model

import "time"

// OCRResponse is the outbound payload for text extraction.
type OCRResponse struct {
	ExtractedText    string    `json:"extractedText"`
	FileName         string    `json:"fileName"`
	FileSize         int64     `json:"fileSize"`
	Language         string    `json:"language"`
	ProcessingTimeMs int64     `json:"processingTimeMs"`
	Timestamp        time.Time `json:"timestamp"`
	Success          bool      `json:"success"`
	ErrorMessage     string    `json:"errorMessage,omitempty"`
}

// NewOCRError builds a failure response for an OCR request.
func NewOCRError(message string) *OCRResponse {
	return &OCRResponse{
		Success:      false,
		ErrorMessage: message,
		Timestamp:    time.Now(),
	}
}

// FormatsResponse lists the image formats the OCR engine accepts.
type FormatsResponse struct {
	SupportedFormats []string `json:"supported_formats"`
	MaxFileSizeMB    int64    `json:"max_file_size_mb"`
}
