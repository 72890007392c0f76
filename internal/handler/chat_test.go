package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-ai/ocr-gateway/internal/model"
	"github.com/inkwell-ai/ocr-gateway/internal/ollama"
	"github.com/inkwell-ai/ocr-gateway/internal/service"
	"github.com/inkwell-ai/ocr-gateway/pkg/logger"
)

// fakeDaemon is a scriptable ollama.Client for handler tests.
type fakeDaemon struct {
	response     string
	generateErr  error
	streamDeltas []string
	streamErr    error
	models       []string
	pingErr      error
	pullDelay    time.Duration
}

func (f *fakeDaemon) Generate(ctx context.Context, req *ollama.GenerateRequest) (*ollama.GenerateResponse, error) {
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return &ollama.GenerateResponse{Response: f.response, Done: true, EvalCount: 2}, nil
}

func (f *fakeDaemon) GenerateStream(ctx context.Context, req *ollama.GenerateRequest, cb ollama.StreamCallback) error {
	for _, d := range f.streamDeltas {
		if err := cb(d); err != nil {
			return err
		}
	}
	return f.streamErr
}

func (f *fakeDaemon) ListModels(ctx context.Context) []string { return f.models }

func (f *fakeDaemon) Pull(ctx context.Context, model string) error {
	if f.pullDelay > 0 {
		select {
		case <-time.After(f.pullDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (f *fakeDaemon) Ping(ctx context.Context) error { return f.pingErr }

type fakeEnsurer struct {
	available bool
	ensureErr error
	inner     *ollama.Ensurer
}

func newFakeEnsurer() *fakeEnsurer {
	return &fakeEnsurer{
		available: true,
		inner:     ollama.NewEnsurer(&fakeDaemon{pullDelay: 50 * time.Millisecond}, 50*time.Millisecond, time.Minute, logger.NewNop()),
	}
}

func (f *fakeEnsurer) IsAvailable(ctx context.Context, model string) bool { return f.available }

func (f *fakeEnsurer) EnsureAvailable(ctx context.Context, model string) error { return f.ensureErr }

func (f *fakeEnsurer) Install(model string) *ollama.InstallJob { return f.inner.Install(model) }

func newChatRouter(daemon *fakeDaemon, ensurer *fakeEnsurer) (*chi.Mux, *service.MemoryStore) {
	store := service.NewMemoryStore(0)
	svc := service.NewChatService(daemon, ensurer, store, time.Minute, logger.NewNop())
	h := NewChatHandler(svc, "gemma2:2b", logger.NewNop())

	r := chi.NewRouter()
	r.Post("/api/chat/message", h.Message)
	r.Post("/api/chat/stream", h.Stream)
	r.Post("/api/chat/install-model", h.InstallModel)
	r.Get("/api/chat/model-status/{model}", h.ModelStatus)
	r.Get("/api/chat/models", h.Models)
	r.Get("/api/chat/conversation/{id}", h.History)
	r.Delete("/api/chat/conversation/{id}", h.Clear)
	r.Get("/api/chat/health", h.Health)
	return r, store
}

func postJSON(t *testing.T, r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestMessageEndpoint(t *testing.T) {
	r, store := newChatRouter(&fakeDaemon{response: "hello"}, newFakeEnsurer())
	defer store.Close()

	rec := postJSON(t, r, "/api/chat/message", &model.ChatRequest{
		Message:        "hi",
		Model:          "gemma2:2b",
		ConversationID: "c1",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "hello", resp.Response)
	assert.Equal(t, "c1", resp.ConversationID)
}

func TestMessageInvalidBody(t *testing.T) {
	r, store := newChatRouter(&fakeDaemon{}, newFakeEnsurer())
	defer store.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/chat/message", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMessageValidationError(t *testing.T) {
	r, store := newChatRouter(&fakeDaemon{}, newFakeEnsurer())
	defer store.Close()

	rec := postJSON(t, r, "/api/chat/message", &model.ChatRequest{Message: "", Model: "m"})

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.ErrorMessage)
}

func TestMessageModelUnavailable(t *testing.T) {
	ensurer := newFakeEnsurer()
	ensurer.ensureErr = errors.New("pull failed")
	r, store := newChatRouter(&fakeDaemon{}, ensurer)
	defer store.Close()

	rec := postJSON(t, r, "/api/chat/message", &model.ChatRequest{Message: "hi", Model: "m"})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMessageDaemonError(t *testing.T) {
	daemon := &fakeDaemon{generateErr: &ollama.InferenceError{StatusCode: 500, Message: "boom"}}
	r, store := newChatRouter(daemon, newFakeEnsurer())
	defer store.Close()

	rec := postJSON(t, r, "/api/chat/message", &model.ChatRequest{Message: "hi", Model: "m"})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestStreamEndpoint(t *testing.T) {
	daemon := &fakeDaemon{streamDeltas: []string{"Hel", "lo"}}
	r, store := newChatRouter(daemon, newFakeEnsurer())
	defer store.Close()

	rec := postJSON(t, r, "/api/chat/stream", &model.ChatRequest{
		Message:        "hi",
		Model:          "gemma2:2b",
		ConversationID: "c1",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Hello", rec.Body.String())

	// The streamed reply was recorded as one assistant message.
	history := store.History("c1")
	require.Len(t, history, 2)
	assert.Equal(t, "Hello", history[1].Content)
}

func TestStreamEndpointErrorChunk(t *testing.T) {
	daemon := &fakeDaemon{
		streamDeltas: []string{"partial"},
		streamErr:    &ollama.InferenceError{Message: "connection reset"},
	}
	r, store := newChatRouter(daemon, newFakeEnsurer())
	defer store.Close()

	rec := postJSON(t, r, "/api/chat/stream", &model.ChatRequest{
		Message:        "hi",
		Model:          "gemma2:2b",
		ConversationID: "c1",
	})

	assert.Contains(t, rec.Body.String(), "partial")
	assert.Contains(t, rec.Body.String(), "Error:")
	assert.Len(t, store.History("c1"), 1)
}

func TestInstallModelEndpoint(t *testing.T) {
	r, store := newChatRouter(&fakeDaemon{}, newFakeEnsurer())
	defer store.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/chat/install-model?model=gemma2:2b", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.InstallResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "gemma2:2b", resp.Model)
	assert.Equal(t, "downloading", resp.Status)
}

func TestInstallModelMissingName(t *testing.T) {
	r, store := newChatRouter(&fakeDaemon{}, newFakeEnsurer())
	defer store.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/chat/install-model", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestModelStatusEndpoint(t *testing.T) {
	ensurer := newFakeEnsurer()
	r, store := newChatRouter(&fakeDaemon{}, ensurer)
	defer store.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/chat/model-status/gemma2:2b", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.ModelStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Available)
	assert.Equal(t, "ready", resp.Status)

	ensurer.available = false
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Available)
	assert.Equal(t, "not_installed", resp.Status)
}

func TestModelsEndpoint(t *testing.T) {
	daemon := &fakeDaemon{models: []string{"gemma2:2b", "llava:latest"}}
	r, store := newChatRouter(daemon, newFakeEnsurer())
	defer store.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/chat/models", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.ModelsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"gemma2:2b", "llava:latest"}, resp.AvailableModels)
	assert.Equal(t, "gemma2:2b", resp.DefaultModel)
	assert.NotEmpty(t, resp.RecommendedModels)
}

func TestConversationEndpoints(t *testing.T) {
	r, store := newChatRouter(&fakeDaemon{response: "hello"}, newFakeEnsurer())
	defer store.Close()

	rec := postJSON(t, r, "/api/chat/message", &model.ChatRequest{
		Message:        "hi",
		Model:          "m",
		ConversationID: "c1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/chat/conversation/c1", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var hist model.HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	assert.Equal(t, "c1", hist.ConversationID)
	assert.Equal(t, 2, hist.MessageCount)
	require.Len(t, hist.History, 2)
	assert.Equal(t, model.RoleUser, hist.History[0].Role)

	req = httptest.NewRequest(http.MethodDelete, "/api/chat/conversation/c1", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/chat/conversation/c1", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	assert.Zero(t, hist.MessageCount)
}

func TestChatHealthEndpoint(t *testing.T) {
	daemon := &fakeDaemon{models: []string{"a", "b", "c", "d"}}
	r, store := newChatRouter(daemon, newFakeEnsurer())
	defer store.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/chat/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "UP", body["status"])
	assert.Equal(t, true, body["models_available"])
	assert.Len(t, body["sample_models"], 3)
}
