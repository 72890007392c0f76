package ollama

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/inkwell-ai/ocr-gateway/pkg/logger"
	"github.com/inkwell-ai/ocr-gateway/pkg/metrics"
)

// InstallStatus is the lifecycle state of a background model install.
type InstallStatus string

const (
	InstallDownloading InstallStatus = "downloading"
	InstallCompleted   InstallStatus = "completed"
	InstallFailed      InstallStatus = "failed"
)

// InstallJob tracks one background model pull. Jobs are awaitable so callers
// and tests can observe completion deterministically.
type InstallJob struct {
	Model string

	mu     sync.Mutex
	status InstallStatus
	err    error
	done   chan struct{}
}

// Status returns the job's current state.
func (j *InstallJob) Status() InstallStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Err returns the failure cause, nil while downloading or after success.
func (j *InstallJob) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Wait blocks until the job finishes or the context is done.
func (j *InstallJob) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *InstallJob) finish(err error) {
	j.mu.Lock()
	if err != nil {
		j.status = InstallFailed
		j.err = err
	} else {
		j.status = InstallCompleted
	}
	j.mu.Unlock()
	close(j.done)
}

// Ensurer determines whether a named model is ready to serve completions and
// installs it when it is not. Availability is probed by issuing a minimal
// real completion rather than consulting a registry; any failure counts as
// not available.
type Ensurer struct {
	client       Client
	probeTimeout time.Duration
	pullTimeout  time.Duration
	log          *logger.Logger

	mu   sync.Mutex
	jobs map[string]*InstallJob
}

// NewEnsurer creates a model availability manager.
func NewEnsurer(client Client, probeTimeout, pullTimeout time.Duration, log *logger.Logger) *Ensurer {
	return &Ensurer{
		client:       client,
		probeTimeout: probeTimeout,
		pullTimeout:  pullTimeout,
		log:          log,
		jobs:         make(map[string]*InstallJob),
	}
}

// IsAvailable probes readiness with a short throwaway completion.
func (e *Ensurer) IsAvailable(ctx context.Context, model string) bool {
	ctx, cancel := context.WithTimeout(ctx, e.probeTimeout)
	defer cancel()

	req := &GenerateRequest{Model: model, Prompt: "test", Options: DefaultOptions()}
	_, err := e.client.Generate(ctx, req)
	return err == nil
}

// EnsureAvailable probes the model and, when absent, pulls it synchronously,
// blocking up to the configured pull ceiling.
func (e *Ensurer) EnsureAvailable(ctx context.Context, model string) error {
	if e.IsAvailable(ctx, model) {
		return nil
	}

	e.log.Info("model not available, pulling", zap.String("model", model))

	pullCtx, cancel := context.WithTimeout(ctx, e.pullTimeout)
	defer cancel()

	if err := e.client.Pull(pullCtx, model); err != nil {
		metrics.ModelInstallsTotal.WithLabelValues(model, "failed").Inc()
		return fmt.Errorf("%w: %s: %v", ErrModelInstallFailed, model, err)
	}

	metrics.ModelInstallsTotal.WithLabelValues(model, "completed").Inc()
	e.log.Info("model pulled", zap.String("model", model))
	return nil
}

// Install schedules a background pull and returns immediately. Concurrent
// installs of the same model are coalesced onto a single in-flight job; a
// finished job is replaced so the model can be re-pulled later.
func (e *Ensurer) Install(model string) *InstallJob {
	e.mu.Lock()
	if job, ok := e.jobs[model]; ok && job.Status() == InstallDownloading {
		e.mu.Unlock()
		return job
	}
	job := &InstallJob{
		Model:  model,
		status: InstallDownloading,
		done:   make(chan struct{}),
	}
	e.jobs[model] = job
	e.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.pullTimeout)
		defer cancel()

		err := e.client.Pull(ctx, model)
		job.finish(err)

		if err != nil {
			metrics.ModelInstallsTotal.WithLabelValues(model, "failed").Inc()
			e.log.Error("background model install failed", zap.String("model", model), zap.Error(err))
			return
		}
		metrics.ModelInstallsTotal.WithLabelValues(model, "completed").Inc()
		e.log.Info("background model install completed", zap.String("model", model))
	}()

	return job
}

// Job returns the most recent install job for a model, if any.
func (e *Ensurer) Job(model string) (*InstallJob, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	job, ok := e.jobs[model]
	return job, ok
}
