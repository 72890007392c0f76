package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkwell-ai/ocr-gateway/internal/model"
	"github.com/inkwell-ai/ocr-gateway/internal/ollama"
	"github.com/inkwell-ai/ocr-gateway/pkg/logger"
	"github.com/inkwell-ai/ocr-gateway/pkg/metrics"
)

// maxMessageLength bounds a single user message. Exactly this many
// characters is accepted; one more is rejected.
const maxMessageLength = 10000

// ModelEnsurer manages model availability for the chat orchestrator.
type ModelEnsurer interface {
	IsAvailable(ctx context.Context, model string) bool
	EnsureAvailable(ctx context.Context, model string) error
	Install(model string) *ollama.InstallJob
}

// ChatService orchestrates multi-turn chat against the completion daemon:
// validate, ensure model availability, record the user turn, flatten history
// into a prompt, invoke the daemon, record the assistant turn.
type ChatService struct {
	client  ollama.Client
	models  ModelEnsurer
	store   ConversationStore
	timeout time.Duration
	log     *logger.Logger
}

// NewChatService creates the chat orchestrator.
func NewChatService(client ollama.Client, models ModelEnsurer, store ConversationStore, timeout time.Duration, log *logger.Logger) *ChatService {
	return &ChatService{
		client:  client,
		models:  models,
		store:   store,
		timeout: timeout,
		log:     log,
	}
}

// Chat handles one blocking chat turn.
func (s *ChatService) Chat(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	start := time.Now()

	if err := validateChatRequest(req); err != nil {
		return nil, err
	}

	// Availability is confirmed before any history mutation, so a failed
	// chat never leaves an orphaned user turn behind.
	if err := s.models.EnsureAvailable(ctx, req.Model); err != nil {
		return nil, fmt.Errorf("%w: %w", ollama.ErrModelUnavailable, err)
	}

	conversationID, prompt := s.beginTurn(req)

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.Generate(genCtx, &ollama.GenerateRequest{
		Model:   req.Model,
		Prompt:  prompt,
		Options: ollama.DefaultOptions(),
	})
	if err != nil {
		metrics.RecordGenerate(req.Model, "chat", "error", time.Since(start).Seconds(), 0)
		return nil, err
	}

	s.store.Append(conversationID, model.Message{Role: model.RoleAssistant, Content: resp.Response})

	elapsed := time.Since(start)
	metrics.RecordGenerate(req.Model, "chat", "success", elapsed.Seconds(), resp.EvalCount)
	s.log.Info("chat completed",
		zap.String("model", req.Model),
		zap.String("conversation_id", conversationID),
		zap.Duration("duration", elapsed),
		zap.Int("tokens", resp.EvalCount),
	)

	return &model.ChatResponse{
		Response:         resp.Response,
		Model:            req.Model,
		ConversationID:   conversationID,
		TokenCount:       resp.EvalCount,
		ProcessingTimeMs: elapsed.Milliseconds(),
		Timestamp:        time.Now(),
		Success:          true,
	}, nil
}

// ChatStream handles one streaming chat turn, relaying text fragments to
// onDelta as they arrive. The full reply is accumulated and recorded as a
// single assistant message when the stream ends cleanly, so streamed and
// blocking conversations leave identical history.
func (s *ChatService) ChatStream(ctx context.Context, req *model.ChatRequest, onDelta func(delta string) error) (*model.ChatResponse, error) {
	start := time.Now()

	if err := validateChatRequest(req); err != nil {
		return nil, err
	}

	if err := s.models.EnsureAvailable(ctx, req.Model); err != nil {
		return nil, fmt.Errorf("%w: %w", ollama.ErrModelUnavailable, err)
	}

	conversationID, prompt := s.beginTurn(req)

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var reply strings.Builder
	err := s.client.GenerateStream(genCtx, &ollama.GenerateRequest{
		Model:   req.Model,
		Prompt:  prompt,
		Options: ollama.DefaultOptions(),
	}, func(delta string) error {
		reply.WriteString(delta)
		return onDelta(delta)
	})
	if err != nil {
		metrics.RecordGenerate(req.Model, "stream", "error", time.Since(start).Seconds(), 0)
		return nil, err
	}

	s.store.Append(conversationID, model.Message{Role: model.RoleAssistant, Content: reply.String()})

	elapsed := time.Since(start)
	metrics.RecordGenerate(req.Model, "stream", "success", elapsed.Seconds(), 0)
	s.log.Info("streaming chat completed",
		zap.String("model", req.Model),
		zap.String("conversation_id", conversationID),
		zap.Duration("duration", elapsed),
	)

	return &model.ChatResponse{
		Response:         reply.String(),
		Model:            req.Model,
		ConversationID:   conversationID,
		ProcessingTimeMs: elapsed.Milliseconds(),
		Timestamp:        time.Now(),
		Success:          true,
	}, nil
}

// beginTurn resolves the conversation id, seeds the system message on the
// conversation's first turn, records the user turn, and renders the prompt.
func (s *ChatService) beginTurn(req *model.ChatRequest) (conversationID, prompt string) {
	conversationID = req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	if req.SystemPrompt != "" && len(s.store.History(conversationID)) == 0 {
		s.store.Append(conversationID, model.Message{Role: model.RoleSystem, Content: req.SystemPrompt})
	}
	s.store.Append(conversationID, model.Message{Role: model.RoleUser, Content: req.Message})

	return conversationID, RenderPrompt(s.store.History(conversationID))
}

// History returns the recorded messages for a conversation.
func (s *ChatService) History(conversationID string) []model.Message {
	return s.store.History(conversationID)
}

// ClearConversation removes a conversation's history.
func (s *ChatService) ClearConversation(conversationID string) {
	s.store.Clear(conversationID)
	s.log.Info("cleared conversation", zap.String("conversation_id", conversationID))
}

// InstallModel schedules a background pull and returns immediately; callers
// poll model status separately.
func (s *ChatService) InstallModel(modelName string) *model.InstallResponse {
	job := s.models.Install(modelName)
	s.log.Info("model install scheduled", zap.String("model", modelName))

	return &model.InstallResponse{
		Model:    modelName,
		Status:   string(job.Status()),
		Response: "Model installation started. This may take several minutes depending on model size.",
		Success:  true,
	}
}

// ModelStatus probes whether a model is ready to serve.
func (s *ChatService) ModelStatus(ctx context.Context, modelName string) bool {
	return s.models.IsAvailable(ctx, modelName)
}

// AvailableTextModels lists models the daemon can serve, best-effort.
func (s *ChatService) AvailableTextModels(ctx context.Context) []string {
	return s.client.ListModels(ctx)
}

func validateChatRequest(req *model.ChatRequest) error {
	if strings.TrimSpace(req.Message) == "" {
		return fmt.Errorf("%w: message cannot be empty", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Model) == "" {
		return fmt.Errorf("%w: model must be specified", ErrInvalidRequest)
	}
	if len(req.Message) > maxMessageLength {
		return fmt.Errorf("%w: message too long (max %d characters)", ErrInvalidRequest, maxMessageLength)
	}
	return nil
}
