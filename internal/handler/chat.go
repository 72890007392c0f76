package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/inkwell-ai/ocr-gateway/internal/middleware"
	"github.com/inkwell-ai/ocr-gateway/internal/model"
	"github.com/inkwell-ai/ocr-gateway/internal/ollama"
	"github.com/inkwell-ai/ocr-gateway/internal/service"
	"github.com/inkwell-ai/ocr-gateway/pkg/logger"
	"github.com/inkwell-ai/ocr-gateway/pkg/metrics"
)

// ChatHandler handles chat endpoints.
type ChatHandler struct {
	chatService  *service.ChatService
	defaultModel string
	logger       *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chatSvc *service.ChatService, defaultModel string, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService:  chatSvc,
		defaultModel: defaultModel,
		logger:       log,
	}
}

// Message handles POST /api/chat/message
func (h *ChatHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.NewChatError("invalid request body"))
		return
	}

	resp, err := h.chatService.Chat(r.Context(), &req)
	if err != nil {
		h.logger.Error("chat request failed", zap.String("model", req.Model), zap.Error(err))
		h.writeChatError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Stream handles POST /api/chat/stream
// The response is a plain-text chunk stream terminated by connection close.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.NewChatError("invalid request body"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")

	metrics.IncrementStreamConnections()
	defer metrics.DecrementStreamConnections()

	ctx := r.Context()
	_, err := h.chatService.ChatStream(ctx, &req, func(delta string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, werr := fmt.Fprint(w, delta); werr != nil {
			return werr
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		h.logger.Error("streaming chat failed", zap.String("model", req.Model), zap.Error(err))
		fmt.Fprintf(w, "Error: %s", err.Error())
		flusher.Flush()
	}
}

// InstallModel handles POST /api/chat/install-model
func (h *ChatHandler) InstallModel(w http.ResponseWriter, r *http.Request) {
	modelName := r.URL.Query().Get("model")
	if err := middleware.ValidateModelName(modelName); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.chatService.InstallModel(modelName))
}

// ModelStatus handles GET /api/chat/model-status/{model}
func (h *ChatHandler) ModelStatus(w http.ResponseWriter, r *http.Request) {
	modelName := chi.URLParam(r, "model")
	if err := middleware.ValidateModelName(modelName); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	available := h.chatService.ModelStatus(r.Context(), modelName)
	status := "not_installed"
	if available {
		status = "ready"
	}

	writeJSON(w, http.StatusOK, &model.ModelStatusResponse{
		Model:     modelName,
		Available: available,
		Status:    status,
	})
}

// Models handles GET /api/chat/models
func (h *ChatHandler) Models(w http.ResponseWriter, r *http.Request) {
	models := h.chatService.AvailableTextModels(r.Context())

	writeJSON(w, http.StatusOK, &model.ModelsResponse{
		AvailableModels:   models,
		DefaultModel:      h.defaultModel,
		RecommendedModels: []string{"gemma2:2b", "llama3.2:1b", "phi3:mini"},
	})
}

// History handles GET /api/chat/conversation/{id}
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	history := h.chatService.History(conversationID)

	writeJSON(w, http.StatusOK, &model.HistoryResponse{
		ConversationID: conversationID,
		History:        history,
		MessageCount:   len(history),
	})
}

// Clear handles DELETE /api/chat/conversation/{id}
func (h *ChatHandler) Clear(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.chatService.ClearConversation(conversationID)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id": conversationID,
		"cleared":         true,
	})
}

// Health handles GET /api/chat/health
func (h *ChatHandler) Health(w http.ResponseWriter, r *http.Request) {
	models := h.chatService.AvailableTextModels(r.Context())

	sample := models
	if len(sample) > 3 {
		sample = sample[:3]
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "UP",
		"service":          "Chat Service",
		"models_available": len(models) > 0,
		"model_count":      len(models),
		"sample_models":    sample,
	})
}

// writeChatError maps the error taxonomy onto status codes. Every failure
// yields a structured body carrying success=false and a readable message.
func (h *ChatHandler) writeChatError(w http.ResponseWriter, err error) {
	var infErr *ollama.InferenceError
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, model.NewChatError(err.Error()))
	case errors.Is(err, ollama.ErrModelUnavailable), errors.Is(err, ollama.ErrModelInstallFailed):
		writeJSON(w, http.StatusServiceUnavailable, model.NewChatError(err.Error()))
	case errors.As(err, &infErr):
		writeJSON(w, http.StatusBadGateway, model.NewChatError(err.Error()))
	default:
		writeJSON(w, http.StatusInternalServerError, model.NewChatError("internal server error"))
	}
}
