// Package notify fans out session status events to whoever is watching:
// the paired phone over WebSocket, the local display, metrics.
package notify

import (
	"sync"
	"time"
)

// Status is a connection lifecycle state as reported to observers.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusFailed       Status = "failed"
	StatusDisconnected Status = "disconnected"
)

// Event is one status change for one connection attempt.
type Event struct {
	Status    Status    `json:"status"`
	AttemptID string    `json:"attempt_id"`
	ClientID  string    `json:"client_id,omitempty"`
	Host      string    `json:"host,omitempty"`
	Port      int       `json:"port,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Time      time.Time `json:"time"`
}

const subscriberBuffer = 16

// Notifier is a fan-out publisher of status events. Publish never blocks
// and never fails: delivery is best-effort, and the oldest undelivered
// event is dropped when a subscriber falls behind.
type Notifier struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
	last *Event
}

// New creates an empty notifier.
func New() *Notifier {
	return &Notifier{subs: make(map[chan Event]struct{})}
}

// Subscribe registers an observer. The returned cancel function must be
// called to release the subscription; the channel closes after cancel.
func (n *Notifier) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		if _, ok := n.subs[ch]; ok {
			delete(n.subs, ch)
			close(ch)
		}
		n.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to all current subscribers without blocking.
func (n *Notifier) Publish(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	n.last = &event
	for ch := range n.subs {
		select {
		case ch <- event:
		default:
			// Slow subscriber: drop its oldest event to make room.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- event:
			default:
			}
		}
	}
}

// Last returns the most recently published event, if any. New WebSocket
// subscribers use it to catch up on current state.
func (n *Notifier) Last() (Event, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.last == nil {
		return Event{}, false
	}
	return *n.last, true
}
