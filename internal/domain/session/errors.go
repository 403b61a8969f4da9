package session

import (
	"errors"
	"fmt"
)

// ErrSuperseded is returned by a connect attempt that was torn down by a
// disconnect or a newer connect before it reached a verdict. The teardown
// already published the terminal event for the attempt.
var ErrSuperseded = errors.New("connection attempt superseded")

// ResolutionError reports that no usable client could be resolved for a
// request. No process was launched.
type ResolutionError struct {
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("client resolution failed: %v", e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// LaunchError reports that the OS rejected process creation.
type LaunchError struct {
	ClientID string
	Err      error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s failed: %v", e.ClientID, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// PrematureExitError reports a client process that exited inside the grace
// window: the session never came up, as opposed to coming up and going
// away. Captured stderr is attached when available.
type PrematureExitError struct {
	ClientID string
	Stderr   string
}

func (e *PrematureExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("client %s exited during grace window", e.ClientID)
	}
	return fmt.Sprintf("client %s exited during grace window: %s", e.ClientID, e.Stderr)
}
