package session

// State is the connection lifecycle state owned by the Coordinator.
//
// Idle -> Connecting -> {Connected, Failed} -> Disconnected -> Idle
//
// Failed and Disconnected are momentary: once their event is published the
// coordinator settles back to Idle, ready for the next attempt. Observers
// that care about the last verdict read it from the notifier.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateFailed       State = "failed"
	StateDisconnected State = "disconnected"
)
