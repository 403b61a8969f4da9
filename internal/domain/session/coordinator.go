// Package session orchestrates one connect-to-disconnect lifecycle at a
// time: it resolves a request to a launch plan, hands the plan to the
// supervisor, and drives status transitions for everyone watching.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vncqr/kiosk/internal/domain/client"
	"github.com/vncqr/kiosk/internal/domain/display"
	"github.com/vncqr/kiosk/internal/domain/history"
	"github.com/vncqr/kiosk/internal/domain/launch"
	"github.com/vncqr/kiosk/internal/domain/notify"
	"github.com/vncqr/kiosk/internal/domain/supervise"
	"github.com/vncqr/kiosk/internal/infrastructure/logging"
	"github.com/vncqr/kiosk/internal/shared/platform"
)

// Process is the view of a launched client the coordinator needs.
type Process interface {
	Alive() bool
	Stderr() string
	PID() int
}

// Supervisor is the process lifecycle dependency. *supervise.Supervisor
// satisfies it through the adapter returned by WrapSupervisor; tests
// substitute fakes.
type Supervisor interface {
	Launch(plan launch.Plan) (Process, error)
	ConfirmAlive(ctx context.Context, p Process, grace time.Duration) bool
	Monitor(ctx context.Context, p Process) <-chan supervise.Event
	Terminate(ctx context.Context, p Process, graceful time.Duration)
	Sweep(ctx context.Context, names []string)
}

// Recorder persists attempt outcomes. May be nil-backed in tests.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Options tunes coordinator timing and teardown behavior.
type Options struct {
	Platform platform.Family
	// GraceWindow bounds how long Connecting can last before a verdict.
	GraceWindow time.Duration
	// GracefulTimeout bounds teardown before escalating to force-kill.
	GracefulTimeout time.Duration
	// KillSweep enables the broad name-based process sweep on teardown.
	KillSweep bool
}

// Coordinator owns the session state machine and the handle to the one
// running client process. At most one session is active at any time.
type Coordinator struct {
	registry *client.Registry
	locator  *client.Locator
	sup      Supervisor
	notifier *notify.Notifier
	display  display.Controller
	recorder Recorder
	logger   *logging.Logger
	opts     Options

	// connectMu serializes connect sequences so a superseding request
	// fully tears down its predecessor before proceeding.
	connectMu sync.Mutex

	// mu guards the state/handle/attempt triple, the only shared
	// mutable state. Disconnect takes only mu, never connectMu, so it
	// stays callable while a connect is mid-flight.
	mu            sync.Mutex
	state         State
	handle        Process
	attemptID     string
	attemptStart  time.Time
	attemptReq    launch.Request
	attemptClient string
	cancelAttempt context.CancelFunc
}

// NewCoordinator wires a coordinator with explicit dependencies.
func NewCoordinator(
	registry *client.Registry,
	locator *client.Locator,
	sup Supervisor,
	notifier *notify.Notifier,
	disp display.Controller,
	recorder Recorder,
	logger *logging.Logger,
	opts Options,
) *Coordinator {
	if opts.Platform == "" {
		opts.Platform = platform.Current()
	}
	if opts.GraceWindow <= 0 {
		opts.GraceWindow = 2 * time.Second
	}
	if opts.GracefulTimeout <= 0 {
		opts.GracefulTimeout = 3 * time.Second
	}
	return &Coordinator{
		registry: registry,
		locator:  locator,
		sup:      sup,
		notifier: notifier,
		display:  disp,
		recorder: recorder,
		logger:   logger,
		opts:     opts,
		state:    StateIdle,
	}
}

// State returns the current session state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether a client process is up and confirmed.
func (c *Coordinator) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnected && c.handle != nil && c.handle.Alive()
}

// Connect runs one full connection attempt: teardown of any prior session,
// resolution, launch, and grace-window confirmation. It blocks for up to
// the grace window; callers that must not block run it on their own
// goroutine and follow the notifier. Exactly one terminal status event is
// published per call.
func (c *Coordinator) Connect(ctx context.Context, req launch.Request) error {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	// At most one active session: a new request supersedes whatever is
	// connected or still connecting.
	c.teardown(ctx)

	attemptID := uuid.NewString()
	attemptCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.state = StateConnecting
	c.attemptID = attemptID
	c.attemptStart = time.Now()
	c.attemptReq = req
	c.attemptClient = ""
	c.cancelAttempt = cancel
	c.mu.Unlock()

	c.publish(notify.Event{
		Status:    notify.StatusConnecting,
		AttemptID: attemptID,
		Host:      req.Host,
		Port:      req.Port,
	})
	c.logger.Info("connecting",
		zap.String("attempt", attemptID),
		zap.String("host", req.Host),
		zap.Int("port", req.Port),
		zap.String("requested_client", req.ClientID),
	)

	desc, path, err := c.locator.FirstAvailable(c.registry.DescriptorsFor(c.opts.Platform), req.ClientID)
	if err != nil {
		return c.fail(attemptID, &ResolutionError{Err: err})
	}

	c.mu.Lock()
	c.attemptClient = desc.ID
	c.mu.Unlock()

	plan, err := launch.Build(desc, path, req)
	if err != nil {
		return c.fail(attemptID, &ResolutionError{Err: err})
	}

	proc, err := c.sup.Launch(plan)
	if err != nil {
		return c.fail(attemptID, &LaunchError{ClientID: desc.ID, Err: err})
	}

	// A disconnect may have raced the launch; if so the process must not
	// outlive the already-reported teardown.
	c.mu.Lock()
	if c.attemptID != attemptID {
		c.mu.Unlock()
		c.sup.Terminate(ctx, proc, c.opts.GracefulTimeout)
		return ErrSuperseded
	}
	c.handle = proc
	c.mu.Unlock()

	if !c.sup.ConfirmAlive(attemptCtx, proc, c.opts.GraceWindow) {
		if attemptCtx.Err() != nil {
			// Torn down mid-grace; Disconnect published the verdict.
			return ErrSuperseded
		}
		stderr := proc.Stderr()
		return c.fail(attemptID, &PrematureExitError{ClientID: desc.ID, Stderr: stderr})
	}

	c.mu.Lock()
	if c.attemptID != attemptID {
		c.mu.Unlock()
		return ErrSuperseded
	}
	c.state = StateConnected
	c.mu.Unlock()

	c.display.Hide()
	c.publish(notify.Event{
		Status:    notify.StatusConnected,
		AttemptID: attemptID,
		ClientID:  desc.ID,
		Host:      req.Host,
		Port:      req.Port,
	})
	c.logger.Info("connected",
		zap.String("attempt", attemptID),
		zap.String("client", desc.ID),
	)

	go c.watch(attemptID, c.sup.Monitor(attemptCtx, proc))
	return nil
}

// Disconnect tears down the active session, if any. Idempotent: with no
// active session it is a no-op that publishes nothing. It is callable at
// any point of Connecting and terminates a mid-launch process.
func (c *Coordinator) Disconnect(ctx context.Context) {
	c.teardown(ctx)
}

// watch consumes monitor events for one attempt and reports the exit of a
// confirmed session as Disconnected.
func (c *Coordinator) watch(attemptID string, events <-chan supervise.Event) {
	for ev := range events {
		if !ev.Ended {
			continue
		}

		c.mu.Lock()
		if c.attemptID != attemptID {
			// Superseded or disconnected; teardown already reported.
			c.mu.Unlock()
			return
		}
		req := c.attemptReq
		clientID := c.attemptClient
		started := c.attemptStart
		cancel := c.cancelAttempt
		c.clearLocked()
		c.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		c.display.ShowIdle()
		c.publish(notify.Event{
			Status:    notify.StatusDisconnected,
			AttemptID: attemptID,
			ClientID:  clientID,
			Host:      req.Host,
			Port:      req.Port,
		})
		c.record(attemptID, clientID, req, started, "disconnected", ev.Stderr)
		c.logger.Info("client exited", zap.String("attempt", attemptID))
		return
	}
}

// teardown stops any tracked process and, when a session was active,
// publishes its Disconnected verdict and reverts the display.
func (c *Coordinator) teardown(ctx context.Context) {
	c.mu.Lock()
	state := c.state
	proc := c.handle
	attemptID := c.attemptID
	req := c.attemptReq
	clientID := c.attemptClient
	started := c.attemptStart
	cancel := c.cancelAttempt
	c.clearLocked()
	c.mu.Unlock()

	if state == StateIdle && proc == nil {
		return
	}

	if cancel != nil {
		cancel()
	}
	if proc != nil {
		c.sup.Terminate(ctx, proc, c.opts.GracefulTimeout)
		if c.opts.KillSweep {
			c.sup.Sweep(ctx, c.registry.SweepNames(c.opts.Platform))
		}
	}

	c.display.ShowIdle()
	c.publish(notify.Event{
		Status:    notify.StatusDisconnected,
		AttemptID: attemptID,
		ClientID:  clientID,
		Host:      req.Host,
		Port:      req.Port,
	})
	c.record(attemptID, clientID, req, started, "disconnected", "")
	c.logger.Info("session torn down", zap.String("attempt", attemptID))
}

// fail publishes the Failed verdict for an attempt unless it was already
// superseded, then settles back to Idle. The attempt triple is cleared
// inside the same critical section that claims the verdict, so a
// concurrent Disconnect sees a quiescent coordinator and stays a no-op
// instead of issuing a second terminal event.
func (c *Coordinator) fail(attemptID string, reason error) error {
	c.mu.Lock()
	if c.attemptID != attemptID {
		c.mu.Unlock()
		return reason
	}
	req := c.attemptReq
	clientID := c.attemptClient
	started := c.attemptStart
	cancel := c.cancelAttempt
	c.clearLocked()
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.publish(notify.Event{
		Status:    notify.StatusFailed,
		AttemptID: attemptID,
		ClientID:  clientID,
		Host:      req.Host,
		Port:      req.Port,
		Reason:    reason.Error(),
	})
	c.record(attemptID, clientID, req, started, "failed", reason.Error())
	c.logger.Warn("connection failed",
		zap.String("attempt", attemptID),
		zap.Error(reason),
	)
	return reason
}

// clearLocked resets the state/handle/attempt triple. Caller holds mu.
func (c *Coordinator) clearLocked() {
	c.state = StateIdle
	c.handle = nil
	c.attemptID = ""
	c.attemptClient = ""
	c.attemptReq = launch.Request{}
	c.cancelAttempt = nil
}

func (c *Coordinator) publish(event notify.Event) {
	if c.notifier != nil {
		c.notifier.Publish(event)
	}
}

func (c *Coordinator) record(attemptID, clientID string, req launch.Request, started time.Time, outcome, detail string) {
	if c.recorder == nil || attemptID == "" {
		return
	}
	ctx, cancelRecord := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelRecord()
	entry := history.Entry{
		AttemptID:  attemptID,
		ClientID:   clientID,
		Host:       req.Host,
		Port:       req.Port,
		Principal:  req.Principal,
		Outcome:    outcome,
		Detail:     detail,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if err := c.recorder.Record(ctx, entry); err != nil {
		c.logger.Warn("history record failed", zap.Error(err))
	}
}

// WrapSupervisor adapts the concrete supervisor to the coordinator's
// interface.
func WrapSupervisor(s *supervise.Supervisor) Supervisor {
	return supAdapter{s: s}
}

type supAdapter struct {
	s *supervise.Supervisor
}

func (a supAdapter) Launch(plan launch.Plan) (Process, error) {
	return a.s.Launch(plan)
}

func (a supAdapter) ConfirmAlive(ctx context.Context, p Process, grace time.Duration) bool {
	return a.s.ConfirmAlive(ctx, p.(*supervise.Handle), grace)
}

func (a supAdapter) Monitor(ctx context.Context, p Process) <-chan supervise.Event {
	return a.s.Monitor(ctx, p.(*supervise.Handle))
}

func (a supAdapter) Terminate(ctx context.Context, p Process, graceful time.Duration) {
	a.s.Terminate(ctx, p.(*supervise.Handle), graceful)
}

func (a supAdapter) Sweep(ctx context.Context, names []string) {
	a.s.Sweep(ctx, names)
}
