package ollama

import (
	"errors"
	"fmt"
)

// ErrModelUnavailable reports that a model is not ready to serve and could
// not be made ready.
var ErrModelUnavailable = errors.New("model unavailable")

// ErrModelInstallFailed reports that a model pull failed or timed out.
var ErrModelInstallFailed = errors.New("model install failed")

// InferenceError reports that the daemon was unreachable, errored, or timed
// out mid-call. StatusCode is zero for transport-level failures.
type InferenceError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *InferenceError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("inference daemon error: status %d: %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("inference daemon error: status %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("inference daemon error: %s: %v", e.Message, e.Err)
	default:
		return fmt.Sprintf("inference daemon error: %s", e.Message)
	}
}

func (e *InferenceError) Unwrap() error { return e.Err }
