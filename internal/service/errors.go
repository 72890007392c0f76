package service

import "errors"

// ErrInvalidRequest reports bad caller input. Requests failing validation
// are rejected before any side effect and never reach the daemon.
var ErrInvalidRequest = errors.New("invalid request")
