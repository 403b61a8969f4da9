// Package supervise owns the lifecycle of externally-launched client
// processes: start, liveness confirmation, background monitoring, and
// termination with graceful-then-forced escalation.
package supervise

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/vncqr/kiosk/internal/domain/launch"
	"github.com/vncqr/kiosk/internal/infrastructure/logging"
)

const stderrBufferSize = 16 * 1024

// Handle tracks one launched client process.
type Handle struct {
	ClientID  string
	Path      string
	StartedAt time.Time

	cmd    *exec.Cmd
	stderr *ringBuffer
	done   chan struct{}
}

// Alive reports whether the process is still running.
func (h *Handle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Stderr returns the captured tail of the process standard error.
func (h *Handle) Stderr() string {
	return h.stderr.String()
}

// PID returns the OS process id, or 0 before launch.
func (h *Handle) PID() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Event is emitted by Monitor. Exactly one terminal event is produced per
// handle, after which the monitor channel closes.
type Event struct {
	Ended  bool
	Stderr string
}

// Supervisor launches and supervises at most one process per handle.
// OS-interaction failures during supervision are logged, never propagated.
type Supervisor struct {
	logger *logging.Logger
	// PollInterval is the liveness poll cadence for Monitor.
	PollInterval time.Duration
}

// New creates a supervisor with the given poll interval.
func New(logger *logging.Logger, pollInterval time.Duration) *Supervisor {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Supervisor{logger: logger, PollInterval: pollInterval}
}

// Launch starts the planned process detached from the launcher's terminal,
// with plan environment overrides merged onto the current environment.
// It does not block beyond process creation.
func (s *Supervisor) Launch(plan launch.Plan) (*Handle, error) {
	cmd := exec.Command(plan.Path, plan.Args...)
	cmd.Env = os.Environ()
	for key, value := range plan.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
	}

	stderr := newRingBuffer(stderrBufferSize)
	cmd.Stderr = stderr
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", plan.ClientID, err)
	}

	h := &Handle{
		ClientID:  plan.ClientID,
		Path:      plan.Path,
		StartedAt: time.Now(),
		cmd:       cmd,
		stderr:    stderr,
		done:      make(chan struct{}),
	}

	go func() {
		// Wait reaps the child; the exit code itself is uninteresting,
		// only the fact that the process ended.
		if err := cmd.Wait(); err != nil {
			s.logger.Debug("client process exited",
				zap.String("client", h.ClientID),
				zap.Error(err),
			)
		}
		close(h.done)
	}()

	s.logger.Info("launched client",
		zap.String("client", h.ClientID),
		zap.String("path", h.Path),
		zap.Int("pid", h.PID()),
	)
	return h, nil
}

// ConfirmAlive waits out the grace window and reports whether the process
// survived it. A process that exits inside the window is an immediate
// launch failure; its captured stderr is available on the handle.
func (s *Supervisor) ConfirmAlive(ctx context.Context, h *Handle, grace time.Duration) bool {
	select {
	case <-h.done:
		return false
	case <-ctx.Done():
		return false
	case <-time.After(grace):
		return h.Alive()
	}
}

// Monitor polls process liveness on a background goroutine and delivers a
// single terminal event when the process is observed to have exited, then
// closes the channel. Cancelling ctx stops the monitor without an event.
func (s *Supervisor) Monitor(ctx context.Context, h *Handle) <-chan Event {
	events := make(chan Event, 1)

	go func() {
		defer close(events)
		ticker := time.NewTicker(s.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-h.done:
				events <- Event{Ended: true, Stderr: h.Stderr()}
				return
			case <-ticker.C:
				if !h.Alive() {
					events <- Event{Ended: true, Stderr: h.Stderr()}
					return
				}
			}
		}
	}()

	return events
}

// Terminate requests graceful termination, waits up to gracefulTimeout,
// then force-kills. It always leaves the handle in a not-running state;
// failures along the way are logged and swallowed.
func (s *Supervisor) Terminate(ctx context.Context, h *Handle, gracefulTimeout time.Duration) {
	if h == nil {
		return
	}
	if !h.Alive() {
		return
	}

	if err := interrupt(h.cmd); err != nil {
		s.logger.Warn("graceful termination request failed",
			zap.Error(&SupervisionError{ClientID: h.ClientID, Op: "interrupt", Err: err}),
		)
	}

	select {
	case <-h.done:
		s.logger.Info("client terminated gracefully", zap.String("client", h.ClientID))
		return
	case <-ctx.Done():
	case <-time.After(gracefulTimeout):
	}

	s.logger.Info("force killing client", zap.String("client", h.ClientID))
	if err := h.cmd.Process.Kill(); err != nil {
		s.logger.Warn("force kill failed",
			zap.Error(&SupervisionError{ClientID: h.ClientID, Op: "kill", Err: err}),
		)
	}

	select {
	case <-h.done:
	case <-time.After(time.Second):
		s.logger.Warn("client did not reap after kill", zap.String("client", h.ClientID))
	}
}
