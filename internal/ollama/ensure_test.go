package ollama

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-ai/ocr-gateway/pkg/logger"
)

// stubClient is a scriptable daemon client for availability tests.
type stubClient struct {
	generateErr error
	pullErr     error
	pullDelay   time.Duration
	pullCalls   atomic.Int32
}

func (s *stubClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if s.generateErr != nil {
		return nil, s.generateErr
	}
	return &GenerateResponse{Response: "ok", Done: true}, nil
}

func (s *stubClient) GenerateStream(ctx context.Context, req *GenerateRequest, cb StreamCallback) error {
	return nil
}

func (s *stubClient) ListModels(ctx context.Context) []string { return nil }

func (s *stubClient) Pull(ctx context.Context, model string) error {
	s.pullCalls.Add(1)
	if s.pullDelay > 0 {
		select {
		case <-time.After(s.pullDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.pullErr
}

func newTestEnsurer(c Client) *Ensurer {
	return NewEnsurer(c, 100*time.Millisecond, time.Minute, logger.NewNop())
}

func TestIsAvailable(t *testing.T) {
	assert.True(t, newTestEnsurer(&stubClient{}).IsAvailable(context.Background(), "m"))

	down := &stubClient{generateErr: errors.New("connection refused")}
	assert.False(t, newTestEnsurer(down).IsAvailable(context.Background(), "m"))
}

func TestEnsureAvailableSkipsPullWhenReady(t *testing.T) {
	c := &stubClient{}
	e := newTestEnsurer(c)

	require.NoError(t, e.EnsureAvailable(context.Background(), "m"))
	assert.Zero(t, c.pullCalls.Load())
}

func TestEnsureAvailablePullsMissingModel(t *testing.T) {
	c := &stubClient{generateErr: errors.New("model not found")}
	e := newTestEnsurer(c)

	require.NoError(t, e.EnsureAvailable(context.Background(), "m"))
	assert.Equal(t, int32(1), c.pullCalls.Load())
}

func TestEnsureAvailableInstallFailure(t *testing.T) {
	c := &stubClient{
		generateErr: errors.New("model not found"),
		pullErr:     errors.New("registry unreachable"),
	}
	e := newTestEnsurer(c)

	err := e.EnsureAvailable(context.Background(), "m")
	assert.ErrorIs(t, err, ErrModelInstallFailed)
}

func TestInstallRunsInBackground(t *testing.T) {
	c := &stubClient{pullDelay: 20 * time.Millisecond}
	e := newTestEnsurer(c)

	job := e.Install("gemma2:2b")
	assert.Equal(t, InstallDownloading, job.Status())

	require.NoError(t, job.Wait(context.Background()))
	assert.Equal(t, InstallCompleted, job.Status())
	assert.Equal(t, int32(1), c.pullCalls.Load())
}

func TestInstallFailure(t *testing.T) {
	c := &stubClient{pullErr: errors.New("no space left")}
	e := newTestEnsurer(c)

	job := e.Install("big-model")
	err := job.Wait(context.Background())

	require.Error(t, err)
	assert.Equal(t, InstallFailed, job.Status())
	assert.Equal(t, err, job.Err())
}

func TestInstallDeduplicatesConcurrentPulls(t *testing.T) {
	c := &stubClient{pullDelay: 50 * time.Millisecond}
	e := newTestEnsurer(c)

	var wg sync.WaitGroup
	jobs := make([]*InstallJob, 10)
	for i := range jobs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			jobs[i] = e.Install("gemma2:2b")
		}(i)
	}
	wg.Wait()

	for _, job := range jobs {
		require.NoError(t, job.Wait(context.Background()))
		assert.Same(t, jobs[0], job)
	}
	assert.Equal(t, int32(1), c.pullCalls.Load())
}

func TestInstallAgainAfterCompletion(t *testing.T) {
	c := &stubClient{}
	e := newTestEnsurer(c)

	first := e.Install("m")
	require.NoError(t, first.Wait(context.Background()))

	second := e.Install("m")
	require.NoError(t, second.Wait(context.Background()))

	assert.NotSame(t, first, second)
	assert.Equal(t, int32(2), c.pullCalls.Load())
}

func TestJobLookup(t *testing.T) {
	e := newTestEnsurer(&stubClient{})

	_, ok := e.Job("missing")
	assert.False(t, ok)

	job := e.Install("m")
	got, ok := e.Job("m")
	require.True(t, ok)
	assert.Same(t, job, got)
}
