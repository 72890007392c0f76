// Package ollama provides a client for a local Ollama model daemon and the
// model availability management built on top of it.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/inkwell-ai/ocr-gateway/pkg/logger"
)

// Options are the sampling parameters passed through to the daemon as-is.
type Options struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
}

// DefaultOptions returns the gateway's default sampling parameters.
func DefaultOptions() Options {
	return Options{Temperature: 0.7, TopP: 0.9, TopK: 40}
}

// GenerateRequest is a completion request for the daemon's /api/generate
// endpoint. Images carries base64-encoded payloads for vision models.
type GenerateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Images  []string `json:"images,omitempty"`
	Stream  bool     `json:"stream"`
	Options Options  `json:"options"`
}

// GenerateResponse is one generation document from the daemon. In streaming
// mode each NDJSON line decodes into one of these; in blocking mode a single
// final document is returned. Durations are nanoseconds on the wire.
type GenerateResponse struct {
	Model         string `json:"model"`
	CreatedAt     string `json:"created_at"`
	Response      string `json:"response"`
	Done          bool   `json:"done"`
	TotalDuration int64  `json:"total_duration"`
	LoadDuration  int64  `json:"load_duration"`
	EvalCount     int    `json:"eval_count"`
	EvalDuration  int64  `json:"eval_duration"`
}

// StreamCallback is invoked for each non-empty text delta during streaming.
// Returning an error stops the stream and is propagated to the caller.
type StreamCallback func(delta string) error

// Client is the interface for the inference daemon.
type Client interface {
	// Generate issues a blocking completion request. The caller bounds the
	// call with a context deadline.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// GenerateStream issues a streaming completion request and relays text
	// deltas to cb as they arrive. A mid-stream transport error is returned
	// after the fragments delivered so far; a clean completion returns nil.
	GenerateStream(ctx context.Context, req *GenerateRequest, cb StreamCallback) error

	// ListModels queries the daemon for installed models. It is best-effort:
	// on any failure a fixed fallback set is returned instead of an error.
	ListModels(ctx context.Context) []string

	// Pull installs a model, blocking until the daemon reports completion.
	Pull(ctx context.Context, model string) error
}

// fallbackModels is returned when the daemon cannot be reached or parsed.
// Model listing is advisory, not load-bearing.
var fallbackModels = []string{"gemma2:2b", "llama3.2:1b", "phi3:mini"}

// HTTPClient talks to an Ollama daemon over HTTP.
type HTTPClient struct {
	baseURL     string
	tagsTimeout time.Duration
	http        *http.Client
	log         *logger.Logger
}

// NewHTTPClient creates a daemon client. Generation and pull deadlines come
// from the caller's context, so the underlying http.Client has no global
// timeout; tagsTimeout bounds the advisory /api/tags calls only.
func NewHTTPClient(baseURL string, tagsTimeout time.Duration, log *logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:     baseURL,
		tagsTimeout: tagsTimeout,
		http:        &http.Client{},
		log:         log,
	}
}

// Generate issues a blocking completion request.
func (c *HTTPClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	req.Stream = false

	resp, err := c.post(ctx, "/api/generate", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError(resp)
	}

	var out GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &InferenceError{Message: "decode generate response", Err: err}
	}
	return &out, nil
}

// GenerateStream issues a streaming completion request and relays deltas.
func (c *HTTPClient) GenerateStream(ctx context.Context, req *GenerateRequest, cb StreamCallback) error {
	req.Stream = true

	resp, err := c.post(ctx, "/api/generate", req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newStatusError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		ev, ok := decodeLine(scanner.Bytes())
		if !ok {
			continue
		}
		if ev.Response != "" {
			if err := cb(ev.Response); err != nil {
				return err
			}
		}
		if ev.Done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return &InferenceError{Message: "stream interrupted", Err: err}
	}
	// Server closed the stream without a done marker; treat as complete.
	return nil
}

// tagsResponse mirrors the daemon's /api/tags document.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels queries /api/tags, falling back to a fixed set on failure.
func (c *HTTPClient) ListModels(ctx context.Context) []string {
	if c.tagsTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.tagsTimeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fallbackModels
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Warn("model listing unavailable, using fallback set", zap.Error(err))
		return fallbackModels
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("model listing failed, using fallback set", zap.Int("status", resp.StatusCode))
		return fallbackModels
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		c.log.Warn("model listing unparseable, using fallback set", zap.Error(err))
		return fallbackModels
	}

	models := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, m.Name)
	}
	if len(models) == 0 {
		return fallbackModels
	}
	return models
}

// pullEvent is one NDJSON progress document from /api/pull.
type pullEvent struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// Pull installs a model, draining the daemon's progress stream.
func (c *HTTPClient) Pull(ctx context.Context, model string) error {
	resp, err := c.post(ctx, "/api/pull", map[string]string{"name": model})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newStatusError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		var ev pullEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		if ev.Error != "" {
			return &InferenceError{Message: fmt.Sprintf("pull %s: %s", model, ev.Error)}
		}
	}
	if err := scanner.Err(); err != nil {
		return &InferenceError{Message: fmt.Sprintf("pull %s interrupted", model), Err: err}
	}
	return nil
}

// Ping reports whether the daemon is reachable.
func (c *HTTPClient) Ping(ctx context.Context) error {
	if c.tagsTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.tagsTimeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return &InferenceError{Message: "daemon unreachable", Err: err}
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &InferenceError{StatusCode: resp.StatusCode, Message: "daemon unhealthy"}
	}
	return nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &InferenceError{Message: "encode request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, &InferenceError{Message: "build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &InferenceError{Message: "daemon unreachable", Err: err}
	}
	return resp, nil
}

func newStatusError(resp *http.Response) *InferenceError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &InferenceError{
		StatusCode: resp.StatusCode,
		Message:    string(bytes.TrimSpace(body)),
	}
}
