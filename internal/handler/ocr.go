package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/inkwell-ai/ocr-gateway/internal/model"
	"github.com/inkwell-ai/ocr-gateway/internal/service"
	"github.com/inkwell-ai/ocr-gateway/pkg/logger"
)

// OCRHandler handles text extraction endpoints.
type OCRHandler struct {
	ocrService *service.OCRService
	logger     *logger.Logger
}

// NewOCRHandler creates a new OCR handler.
func NewOCRHandler(ocrSvc *service.OCRService, log *logger.Logger) *OCRHandler {
	return &OCRHandler{
		ocrService: ocrSvc,
		logger:     log,
	}
}

// Extract handles POST /api/ocr/extract (multipart: file, language)
func (h *OCRHandler) Extract(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(r, "file", h.ocrService.MaxUploadBytes())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, model.NewOCRError("invalid upload: "+err.Error()))
		return
	}
	language := r.FormValue("language")

	resp, err := h.ocrService.ExtractText(r.Context(), up, language)
	if err != nil {
		h.logger.Error("ocr request failed", zap.String("file", up.FileName), zap.Error(err))
		if errors.Is(err, service.ErrInvalidRequest) {
			writeJSON(w, http.StatusBadRequest, model.NewOCRError(err.Error()))
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, model.NewOCRError(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Formats handles GET /api/ocr/formats
func (h *OCRHandler) Formats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, &model.FormatsResponse{
		SupportedFormats: h.ocrService.SupportedFormats(),
		MaxFileSizeMB:    h.ocrService.MaxUploadBytes() / 1024 / 1024,
	})
}

// Health handles GET /api/ocr/health
func (h *OCRHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "UP",
		"service":           "OCR Service",
		"supported_formats": h.ocrService.SupportedFormats(),
	})
}
