package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/inkwell-ai/ocr-gateway/internal/model"
	"github.com/inkwell-ai/ocr-gateway/internal/ollama"
	"github.com/inkwell-ai/ocr-gateway/internal/service"
	"github.com/inkwell-ai/ocr-gateway/pkg/logger"
)

// AnalysisHandler handles vision-model image analysis endpoints.
type AnalysisHandler struct {
	analysisService *service.AnalysisService
	daemon          Pinger
	logger          *logger.Logger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(analysisSvc *service.AnalysisService, daemon Pinger, log *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisSvc,
		daemon:          daemon,
		logger:          log,
	}
}

// Analyze handles POST /api/ai/analyze (multipart: file)
// The default prompt and vision model are used.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	h.analyze(w, r, "", "")
}

// AnalyzeCustom handles POST /api/ai/analyze-custom (multipart: file,
// prompt, model)
func (h *AnalysisHandler) AnalyzeCustom(w http.ResponseWriter, r *http.Request) {
	h.analyze(w, r, r.FormValue("prompt"), r.FormValue("model"))
}

func (h *AnalysisHandler) analyze(w http.ResponseWriter, r *http.Request, prompt, modelName string) {
	up, err := readUpload(r, "file", h.analysisService.MaxUploadBytes())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, model.NewAnalysisError("invalid upload: "+err.Error()))
		return
	}
	// Form values are only parsed after the multipart body has been read.
	if prompt == "" {
		prompt = r.FormValue("prompt")
	}
	if modelName == "" {
		modelName = r.FormValue("model")
	}

	resp, err := h.analysisService.AnalyzeImage(r.Context(), up, prompt, modelName)
	if err != nil {
		h.logger.Error("analysis request failed", zap.String("file", up.FileName), zap.Error(err))
		h.writeAnalysisError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Models handles GET /api/ai/models
func (h *AnalysisHandler) Models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, &model.ModelsResponse{
		AvailableModels: h.analysisService.AvailableModels(r.Context()),
		DefaultModel:    h.analysisService.DefaultModel(),
	})
}

// Health handles GET /api/ai/health
func (h *AnalysisHandler) Health(w http.ResponseWriter, r *http.Request) {
	err := h.daemon.Ping(r.Context())

	status := http.StatusOK
	body := map[string]interface{}{
		"status":           "UP",
		"service":          "AI Analysis Service",
		"ollama_available": err == nil,
	}
	if err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "DOWN"
	}

	writeJSON(w, status, body)
}

func (h *AnalysisHandler) writeAnalysisError(w http.ResponseWriter, err error) {
	var infErr *ollama.InferenceError
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, model.NewAnalysisError(err.Error()))
	case errors.As(err, &infErr):
		writeJSON(w, http.StatusBadGateway, model.NewAnalysisError(err.Error()))
	default:
		writeJSON(w, http.StatusInternalServerError, model.NewAnalysisError("internal server error"))
	}
}
