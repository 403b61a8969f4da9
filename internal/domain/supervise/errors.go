package supervise

import "fmt"

// SupervisionError wraps an OS-interaction failure observed while
// supervising a running client: a termination signal or kill that the OS
// rejected. Supervision failures never fail the attempt; they surface in
// logs only, and the supervisor escalates until the process is gone.
type SupervisionError struct {
	ClientID string
	Op       string
	Err      error
}

func (e *SupervisionError) Error() string {
	return fmt.Sprintf("supervise %s: %s: %v", e.ClientID, e.Op, e.Err)
}

func (e *SupervisionError) Unwrap() error { return e.Err }
