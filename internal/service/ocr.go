package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"

	"github.com/inkwell-ai/ocr-gateway/internal/model"
	"github.com/inkwell-ai/ocr-gateway/pkg/logger"
	"github.com/inkwell-ai/ocr-gateway/pkg/metrics"
)

// Upload is an in-memory uploaded file.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Data        []byte
}

// Engine is the OCR provider contract: one image in, recognized text out.
type Engine interface {
	Recognize(ctx context.Context, image []byte, language string) (string, error)
}

// TesseractEngine recognizes text with a gosseract client. A fresh client is
// created per call; gosseract clients are not safe for concurrent reuse.
type TesseractEngine struct {
	clientFactory func() *gosseract.Client
	datapath      string
}

// NewTesseractEngine constructs a Tesseract-backed OCR engine. An empty
// datapath uses the library's default tessdata location.
func NewTesseractEngine(datapath string) *TesseractEngine {
	return &TesseractEngine{clientFactory: gosseract.NewClient, datapath: datapath}
}

// Recognize performs OCR on a single encoded image.
func (e *TesseractEngine) Recognize(ctx context.Context, image []byte, language string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	c := e.clientFactory()
	defer c.Close()

	if e.datapath != "" {
		if err := c.SetTessdataPrefix(e.datapath); err != nil {
			return "", fmt.Errorf("set tessdata path: %w", err)
		}
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if language != "" {
		if err := c.SetLanguage(language); err != nil {
			return "", fmt.Errorf("set language %s: %w", language, err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// supportedFormats are the image file extensions accepted for OCR.
var supportedFormats = []string{"png", "jpg", "jpeg", "gif", "bmp", "tiff", "tif"}

// OCRService extracts text from uploaded images.
type OCRService struct {
	engine         Engine
	maxUploadBytes int64
	log            *logger.Logger
}

// NewOCRService creates the OCR service.
func NewOCRService(engine Engine, maxUploadBytes int64, log *logger.Logger) *OCRService {
	return &OCRService{
		engine:         engine,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// ExtractText validates the upload and runs OCR. Language defaults to "eng".
func (s *OCRService) ExtractText(ctx context.Context, up Upload, language string) (*model.OCRResponse, error) {
	start := time.Now()

	if err := s.validateUpload(up); err != nil {
		return nil, err
	}
	if language == "" {
		language = "eng"
	}

	text, err := s.engine.Recognize(ctx, up.Data, language)
	if err != nil {
		metrics.RecordOCR(language, "error", time.Since(start).Seconds())
		s.log.Error("ocr failed", zap.String("file", up.FileName), zap.Error(err))
		return nil, fmt.Errorf("OCR processing failed: %w", err)
	}

	elapsed := time.Since(start)
	metrics.RecordOCR(language, "success", elapsed.Seconds())
	s.log.Info("ocr completed",
		zap.String("file", up.FileName),
		zap.String("language", language),
		zap.Duration("duration", elapsed),
	)

	return &model.OCRResponse{
		ExtractedText:    text,
		FileName:         up.FileName,
		FileSize:         up.Size,
		Language:         language,
		ProcessingTimeMs: elapsed.Milliseconds(),
		Timestamp:        time.Now(),
		Success:          true,
	}, nil
}

// SupportedFormats returns the accepted image file extensions.
func (s *OCRService) SupportedFormats() []string {
	out := make([]string, len(supportedFormats))
	copy(out, supportedFormats)
	return out
}

// MaxUploadBytes returns the upload size ceiling.
func (s *OCRService) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

func (s *OCRService) validateUpload(up Upload) error {
	if len(up.Data) == 0 {
		return fmt.Errorf("%w: no file uploaded or file is empty", ErrInvalidRequest)
	}
	if up.Size > s.maxUploadBytes {
		return fmt.Errorf("%w: file size exceeds maximum limit of %dMB", ErrInvalidRequest, s.maxUploadBytes/1024/1024)
	}
	if strings.TrimSpace(up.FileName) == "" {
		return fmt.Errorf("%w: invalid filename", ErrInvalidRequest)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(up.FileName), "."))
	for _, f := range supportedFormats {
		if ext == f {
			return nil
		}
	}
	return fmt.Errorf("%w: unsupported file format %q, supported formats: %s",
		ErrInvalidRequest, ext, strings.Join(supportedFormats, ", "))
}
