package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/inkwell-ai/ocr-gateway/internal/model"
	"github.com/inkwell-ai/ocr-gateway/internal/ollama"
	"github.com/inkwell-ai/ocr-gateway/pkg/logger"
	"github.com/inkwell-ai/ocr-gateway/pkg/metrics"
)

// defaultAnalysisPrompt is used when the caller supplies no prompt.
const defaultAnalysisPrompt = "Describe what you see in this image in detail. " +
	"Include any text, objects, people, colors, and overall composition."

// AnalysisService describes uploaded images with a locally-served vision
// model.
type AnalysisService struct {
	client         ollama.Client
	timeout        time.Duration
	defaultModel   string
	maxUploadBytes int64
	log            *logger.Logger
}

// NewAnalysisService creates the vision analysis service.
func NewAnalysisService(client ollama.Client, timeout time.Duration, defaultModel string, maxUploadBytes int64, log *logger.Logger) *AnalysisService {
	return &AnalysisService{
		client:         client,
		timeout:        timeout,
		defaultModel:   defaultModel,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// AnalyzeImage validates the upload and asks the vision model to describe
// it. Empty prompt and model fall back to the defaults.
func (s *AnalysisService) AnalyzeImage(ctx context.Context, up Upload, prompt, modelName string) (*model.AnalysisResponse, error) {
	start := time.Now()

	if err := s.validateUpload(up); err != nil {
		return nil, err
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = defaultAnalysisPrompt
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = s.defaultModel
	}

	encoded := base64.StdEncoding.EncodeToString(up.Data)

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.Generate(genCtx, &ollama.GenerateRequest{
		Model:   modelName,
		Prompt:  prompt,
		Images:  []string{encoded},
		Options: ollama.DefaultOptions(),
	})
	if err != nil {
		metrics.RecordGenerate(modelName, "vision", "error", time.Since(start).Seconds(), 0)
		return nil, err
	}

	elapsed := time.Since(start)
	metrics.RecordGenerate(modelName, "vision", "success", elapsed.Seconds(), resp.EvalCount)
	s.log.Info("image analysis completed",
		zap.String("file", up.FileName),
		zap.String("model", modelName),
		zap.Duration("duration", elapsed),
	)

	out := &model.AnalysisResponse{
		Analysis:         resp.Response,
		Model:            modelName,
		Prompt:           prompt,
		FileName:         up.FileName,
		FileSize:         up.Size,
		ProcessingTimeMs: elapsed.Milliseconds(),
		Timestamp:        time.Now(),
		Success:          true,
	}
	if resp.TotalDuration > 0 {
		// Daemon durations are nanoseconds on the wire.
		out.OllamaStats = &model.OllamaStats{
			TotalDurationMs: resp.TotalDuration / int64(time.Millisecond),
			LoadDurationMs:  resp.LoadDuration / int64(time.Millisecond),
			EvalCount:       resp.EvalCount,
			EvalDurationMs:  resp.EvalDuration / int64(time.Millisecond),
		}
	}
	return out, nil
}

// AvailableModels lists models the daemon can serve, best-effort.
func (s *AnalysisService) AvailableModels(ctx context.Context) []string {
	return s.client.ListModels(ctx)
}

// DefaultModel returns the vision model used when the caller names none.
func (s *AnalysisService) DefaultModel() string {
	return s.defaultModel
}

// MaxUploadBytes returns the upload size ceiling.
func (s *AnalysisService) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

func (s *AnalysisService) validateUpload(up Upload) error {
	if len(up.Data) == 0 {
		return fmt.Errorf("%w: no file uploaded or file is empty", ErrInvalidRequest)
	}
	if up.Size > s.maxUploadBytes {
		return fmt.Errorf("%w: file size exceeds maximum limit of %dMB", ErrInvalidRequest, s.maxUploadBytes/1024/1024)
	}
	if !strings.HasPrefix(up.ContentType, "image/") {
		return fmt.Errorf("%w: file must be an image", ErrInvalidRequest)
	}
	return nil
}
