package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncqr/kiosk/internal/domain/client"
	"github.com/vncqr/kiosk/internal/domain/history"
	"github.com/vncqr/kiosk/internal/domain/launch"
	"github.com/vncqr/kiosk/internal/domain/notify"
	"github.com/vncqr/kiosk/internal/domain/supervise"
	"github.com/vncqr/kiosk/internal/infrastructure/logging"
	"github.com/vncqr/kiosk/internal/shared/platform"
)

type fakeProc struct {
	mu     sync.Mutex
	alive  bool
	stderr string
}

func (p *fakeProc) Alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.alive
}

func (p *fakeProc) Stderr() string { return p.stderr }
func (p *fakeProc) PID() int       { return 4242 }

func (p *fakeProc) kill() {
	p.mu.Lock()
	p.alive = false
	p.mu.Unlock()
}

type fakeSup struct {
	mu           sync.Mutex
	launches     []launch.Plan
	launchErr    error
	confirm      bool
	procStderr   string
	lastProc     *fakeProc
	terminations int
	sweeps       [][]string

	// events feeds Monitor; tests push the terminal event here.
	events chan supervise.Event
}

func newFakeSup() *fakeSup {
	return &fakeSup{confirm: true, events: make(chan supervise.Event, 1)}
}

func (f *fakeSup) Launch(plan launch.Plan) (Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.launches = append(f.launches, plan)
	if f.launchErr != nil {
		return nil, f.launchErr
	}
	f.lastProc = &fakeProc{alive: true, stderr: f.procStderr}
	return f.lastProc, nil
}

func (f *fakeSup) ConfirmAlive(ctx context.Context, p Process, grace time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.confirm {
		f.lastProc.kill()
	}
	return f.confirm
}

func (f *fakeSup) Monitor(ctx context.Context, p Process) <-chan supervise.Event {
	out := make(chan supervise.Event, 1)
	go func() {
		defer close(out)
		select {
		case ev, ok := <-f.events:
			if ok {
				out <- ev
			}
		case <-ctx.Done():
		}
	}()
	return out
}

func (f *fakeSup) Terminate(ctx context.Context, p Process, graceful time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminations++
	if fp, ok := p.(*fakeProc); ok {
		fp.kill()
	}
}

func (f *fakeSup) Sweep(ctx context.Context, names []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps = append(f.sweeps, names)
}

func (f *fakeSup) launchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.launches)
}

func (f *fakeSup) terminateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.terminations
}

type fakeDisplay struct {
	mu     sync.Mutex
	shown  int
	hidden int
}

func (d *fakeDisplay) ShowIdle() {
	d.mu.Lock()
	d.shown++
	d.mu.Unlock()
}

func (d *fakeDisplay) Hide() {
	d.mu.Lock()
	d.hidden++
	d.mu.Unlock()
}

func (d *fakeDisplay) counts() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shown, d.hidden
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (r *fakeRecorder) Record(ctx context.Context, e history.Entry) error {
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
	return nil
}

func (r *fakeRecorder) last(t *testing.T) history.Entry {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.entries)
	return r.entries[len(r.entries)-1]
}

// testRegistry returns a registry whose overlay contains one installed
// client (fakeviewer, backed by a real temp file) and one that is not.
func testRegistry(t *testing.T) (*client.Registry, *client.Locator) {
	t.Helper()
	dir := t.TempDir()

	bin := filepath.Join(dir, "fakeviewer")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))

	overlay := `
[[clients]]
id = "fakeviewer"
name = "Fake Viewer"
executable = "kiosk-test-not-on-path"
locations = ["` + bin + `"]
platform = "linux"
strategy = "args"
supports_credential = true
host_flag = "-host"
credential_flag = "-password"
sweep_names = ["fakeviewer"]

[[clients]]
id = "ghost"
name = "Ghost Viewer"
executable = "kiosk-test-not-on-path-either"
platform = "linux"
strategy = "args"
`
	path := filepath.Join(dir, "clients.toml")
	require.NoError(t, os.WriteFile(path, []byte(overlay), 0o644))

	r := client.NewRegistry()
	require.NoError(t, r.LoadOverlay(path))
	return r, &client.Locator{Root: dir}
}

func newTestCoordinator(t *testing.T, sup Supervisor) (*Coordinator, *notify.Notifier, *fakeDisplay, *fakeRecorder) {
	t.Helper()
	registry, locator := testRegistry(t)
	notifier := notify.New()
	disp := &fakeDisplay{}
	rec := &fakeRecorder{}
	c := NewCoordinator(registry, locator, sup, notifier, disp, rec, logging.NewNop(), Options{
		Platform:        platform.Linux,
		GraceWindow:     10 * time.Millisecond,
		GracefulTimeout: 10 * time.Millisecond,
	})
	return c, notifier, disp, rec
}

func validRequest() launch.Request {
	return launch.Request{Host: "10.0.0.2", Port: 5901, Principal: "alice", Credential: "pw", ClientID: "fakeviewer"}
}

func waitEvent(t *testing.T, ch <-chan notify.Event) notify.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no status event")
		return notify.Event{}
	}
}

func TestConnectUnknownClientFails(t *testing.T) {
	sup := newFakeSup()
	c, notifier, _, rec := newTestCoordinator(t, sup)
	events, cancel := notifier.Subscribe()
	defer cancel()

	req := validRequest()
	req.ClientID = "no-such-client"
	err := c.Connect(context.Background(), req)

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.ErrorIs(t, err, client.ErrUnknownClient)
	// Resolution failures must never launch anything.
	assert.Zero(t, sup.launchCount())

	assert.Equal(t, notify.StatusConnecting, waitEvent(t, events).Status)
	failed := waitEvent(t, events)
	assert.Equal(t, notify.StatusFailed, failed.Status)
	assert.NotEmpty(t, failed.Reason)

	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, "failed", rec.last(t).Outcome)
}

func TestConnectNotInstalledFails(t *testing.T) {
	sup := newFakeSup()
	c, notifier, _, _ := newTestCoordinator(t, sup)
	events, cancel := notifier.Subscribe()
	defer cancel()

	req := validRequest()
	req.ClientID = "ghost"
	err := c.Connect(context.Background(), req)

	assert.ErrorIs(t, err, client.ErrNotInstalled)
	assert.Zero(t, sup.launchCount())

	assert.Equal(t, notify.StatusConnecting, waitEvent(t, events).Status)
	assert.Equal(t, notify.StatusFailed, waitEvent(t, events).Status)
	assert.Equal(t, StateIdle, c.State())
}

func TestConnectInvalidRequestFails(t *testing.T) {
	sup := newFakeSup()
	c, _, _, _ := newTestCoordinator(t, sup)

	req := validRequest()
	req.Host = ""
	err := c.Connect(context.Background(), req)

	var resErr *ResolutionError
	assert.ErrorAs(t, err, &resErr)
	assert.Zero(t, sup.launchCount())
}

func TestConnectLaunchFailure(t *testing.T) {
	sup := newFakeSup()
	sup.launchErr = errors.New("exec format error")
	c, notifier, _, _ := newTestCoordinator(t, sup)
	events, cancel := notifier.Subscribe()
	defer cancel()

	err := c.Connect(context.Background(), validRequest())

	var launchErr *LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.Equal(t, "fakeviewer", launchErr.ClientID)

	assert.Equal(t, notify.StatusConnecting, waitEvent(t, events).Status)
	assert.Equal(t, notify.StatusFailed, waitEvent(t, events).Status)
	assert.Equal(t, StateIdle, c.State())
}

func TestConnectPrematureExit(t *testing.T) {
	sup := newFakeSup()
	sup.confirm = false
	sup.procStderr = "connection refused"
	c, notifier, _, rec := newTestCoordinator(t, sup)
	events, cancel := notifier.Subscribe()
	defer cancel()

	err := c.Connect(context.Background(), validRequest())

	var exitErr *PrematureExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, "fakeviewer", exitErr.ClientID)
	assert.Contains(t, exitErr.Stderr, "connection refused")

	assert.Equal(t, notify.StatusConnecting, waitEvent(t, events).Status)
	// A launch that never confirms is Failed, not Disconnected.
	failed := waitEvent(t, events)
	assert.Equal(t, notify.StatusFailed, failed.Status)
	assert.Contains(t, failed.Reason, "grace window")

	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, "failed", rec.last(t).Outcome)
}

// parkingRecorder blocks inside Record until released, holding the
// failure path open long enough for a concurrent Disconnect to land.
type parkingRecorder struct {
	entered chan struct{}
	release chan struct{}

	mu      sync.Mutex
	entries []history.Entry
}

func newParkingRecorder() *parkingRecorder {
	return &parkingRecorder{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (r *parkingRecorder) Record(ctx context.Context, e history.Entry) error {
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
	r.entered <- struct{}{}
	<-r.release
	return nil
}

func (r *parkingRecorder) recorded() []history.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]history.Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func TestDisconnectDuringFailureStaysQuiet(t *testing.T) {
	registry, locator := testRegistry(t)
	notifier := notify.New()
	sup := newFakeSup()
	rec := newParkingRecorder()
	c := NewCoordinator(registry, locator, sup, notifier, &fakeDisplay{}, rec, logging.NewNop(), Options{
		Platform:        platform.Linux,
		GraceWindow:     10 * time.Millisecond,
		GracefulTimeout: 10 * time.Millisecond,
	})
	events, cancel := notifier.Subscribe()
	defer cancel()

	req := validRequest()
	req.ClientID = "no-such-client"
	done := make(chan error, 1)
	go func() { done <- c.Connect(context.Background(), req) }()

	// The failure verdict is published and its history write is in flight.
	select {
	case <-rec.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("recorder never entered")
	}

	// A disconnect landing here must see a quiescent coordinator.
	c.Disconnect(context.Background())
	close(rec.release)

	var resErr *ResolutionError
	require.ErrorAs(t, <-done, &resErr)

	assert.Equal(t, notify.StatusConnecting, waitEvent(t, events).Status)
	assert.Equal(t, notify.StatusFailed, waitEvent(t, events).Status)
	select {
	case ev := <-events:
		t.Fatalf("unexpected extra event %q for attempt %s", ev.Status, ev.AttemptID)
	case <-time.After(100 * time.Millisecond):
	}

	assert.Zero(t, sup.terminateCount())
	entries := rec.recorded()
	require.Len(t, entries, 1)
	assert.Equal(t, "failed", entries[0].Outcome)
}

func TestConnectSuccessThenExit(t *testing.T) {
	sup := newFakeSup()
	c, notifier, disp, rec := newTestCoordinator(t, sup)
	events, cancel := notifier.Subscribe()
	defer cancel()

	require.NoError(t, c.Connect(context.Background(), validRequest()))

	connecting := waitEvent(t, events)
	assert.Equal(t, notify.StatusConnecting, connecting.Status)
	connected := waitEvent(t, events)
	assert.Equal(t, notify.StatusConnected, connected.Status)
	assert.Equal(t, connecting.AttemptID, connected.AttemptID)
	assert.Equal(t, "fakeviewer", connected.ClientID)

	assert.Equal(t, StateConnected, c.State())
	assert.True(t, c.IsConnected())
	_, hidden := disp.counts()
	assert.Equal(t, 1, hidden)

	// Plan built from the resolved descriptor carries the host flag form.
	assert.Equal(t, []string{"-host", "10.0.0.2:1", "-password", "pw"}, sup.launches[0].Args)

	// The user closes the client window.
	sup.lastProc.kill()
	sup.events <- supervise.Event{Ended: true, Stderr: ""}

	disconnected := waitEvent(t, events)
	assert.Equal(t, notify.StatusDisconnected, disconnected.Status)
	assert.Equal(t, connecting.AttemptID, disconnected.AttemptID)

	assert.Eventually(t, func() bool { return c.State() == StateIdle }, time.Second, 10*time.Millisecond)
	assert.False(t, c.IsConnected())
	assert.Equal(t, "disconnected", rec.last(t).Outcome)

	shown, _ := disp.counts()
	assert.Equal(t, 1, shown)
}

func TestDisconnectIdleNoOp(t *testing.T) {
	sup := newFakeSup()
	c, notifier, disp, _ := newTestCoordinator(t, sup)

	c.Disconnect(context.Background())

	_, ok := notifier.Last()
	assert.False(t, ok, "idle disconnect must publish nothing")
	assert.Zero(t, sup.terminateCount())
	shown, _ := disp.counts()
	assert.Zero(t, shown)
	assert.Equal(t, StateIdle, c.State())
}

func TestDisconnectTearsDownSession(t *testing.T) {
	sup := newFakeSup()
	c, notifier, _, _ := newTestCoordinator(t, sup)
	events, cancel := notifier.Subscribe()
	defer cancel()

	require.NoError(t, c.Connect(context.Background(), validRequest()))
	waitEvent(t, events) // connecting
	waitEvent(t, events) // connected

	c.Disconnect(context.Background())

	assert.Equal(t, notify.StatusDisconnected, waitEvent(t, events).Status)
	assert.Equal(t, 1, sup.terminateCount())
	assert.Equal(t, StateIdle, c.State())
	assert.False(t, c.IsConnected())

	// Second disconnect is a no-op.
	c.Disconnect(context.Background())
	assert.Equal(t, 1, sup.terminateCount())
}

func TestReconnectSupersedes(t *testing.T) {
	sup := newFakeSup()
	c, notifier, _, _ := newTestCoordinator(t, sup)
	events, cancel := notifier.Subscribe()
	defer cancel()

	require.NoError(t, c.Connect(context.Background(), validRequest()))
	waitEvent(t, events) // connecting
	first := waitEvent(t, events)
	assert.Equal(t, notify.StatusConnected, first.Status)

	second := validRequest()
	second.Host = "10.0.0.3"
	require.NoError(t, c.Connect(context.Background(), second))

	// The old session's Disconnected precedes the new attempt's Connecting.
	disconnected := waitEvent(t, events)
	assert.Equal(t, notify.StatusDisconnected, disconnected.Status)
	assert.Equal(t, first.AttemptID, disconnected.AttemptID)

	connecting := waitEvent(t, events)
	assert.Equal(t, notify.StatusConnecting, connecting.Status)
	assert.NotEqual(t, first.AttemptID, connecting.AttemptID)
	assert.Equal(t, "10.0.0.3", connecting.Host)

	assert.Equal(t, notify.StatusConnected, waitEvent(t, events).Status)
	assert.Equal(t, 1, sup.terminateCount())
	assert.Equal(t, 2, sup.launchCount())
}

func TestKillSweepIsOptIn(t *testing.T) {
	sup := newFakeSup()
	c, _, _, _ := newTestCoordinator(t, sup)

	require.NoError(t, c.Connect(context.Background(), validRequest()))
	c.Disconnect(context.Background())

	assert.Empty(t, sup.sweeps, "sweep must not run unless enabled")
}

func TestKillSweepEnabled(t *testing.T) {
	registry, locator := testRegistry(t)
	notifier := notify.New()
	sup := newFakeSup()
	c := NewCoordinator(registry, locator, sup, notifier, &fakeDisplay{}, nil, logging.NewNop(), Options{
		Platform:        platform.Linux,
		GraceWindow:     10 * time.Millisecond,
		GracefulTimeout: 10 * time.Millisecond,
		KillSweep:       true,
	})

	require.NoError(t, c.Connect(context.Background(), validRequest()))
	c.Disconnect(context.Background())

	require.Len(t, sup.sweeps, 1)
	assert.Contains(t, sup.sweeps[0], "fakeviewer")
}

func TestCoordinatorDefaults(t *testing.T) {
	registry, locator := testRegistry(t)
	c := NewCoordinator(registry, locator, newFakeSup(), notify.New(), &fakeDisplay{}, nil, logging.NewNop(), Options{})

	assert.Equal(t, platform.Current(), c.opts.Platform)
	assert.Equal(t, 2*time.Second, c.opts.GraceWindow)
	assert.Equal(t, 3*time.Second, c.opts.GracefulTimeout)
	assert.Equal(t, StateIdle, c.State())
}
