// Package ws carries the realtime channel between the kiosk and the paired
// phone: connect/disconnect commands inbound, status events outbound.
package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vncqr/kiosk/internal/domain/launch"
	"github.com/vncqr/kiosk/internal/domain/notify"
	"github.com/vncqr/kiosk/internal/domain/session"
	"github.com/vncqr/kiosk/internal/infrastructure/logging"
	"github.com/vncqr/kiosk/internal/infrastructure/monitoring"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The phone's origin is whatever the QR pointed it at.
		return true
	},
}

// Message is the envelope for inbound WebSocket commands.
type Message struct {
	Type    string         `json:"type"`
	Request launch.Request `json:"request,omitempty"`
}

// Handler manages WebSocket connections.
type Handler struct {
	coordinator *session.Coordinator
	notifier    *notify.Notifier
	metrics     *monitoring.Metrics
	logger      *logging.Logger
}

// NewHandler creates a new WebSocket handler.
func NewHandler(coordinator *session.Coordinator, notifier *notify.Notifier, metrics *monitoring.Metrics, logger *logging.Logger) *Handler {
	return &Handler{
		coordinator: coordinator,
		notifier:    notifier,
		metrics:     metrics,
		logger:      logger,
	}
}

// HandleConnection upgrades the request and serves one observer until it
// hangs up. Every notifier event is forwarded as a vnc_status message.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.WSConnections.Inc()
		defer h.metrics.WSConnections.Dec()
	}

	// Writes come from both the event pump and command replies.
	var writeMu sync.Mutex
	send := func(payload any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(payload)
	}

	send(map[string]any{"type": "system", "message": "connected to kiosk launcher"})

	// Catch the observer up on current state before streaming.
	if last, ok := h.notifier.Last(); ok {
		send(map[string]any{"type": "vnc_status", "event": last})
	}

	events, cancel := h.notifier.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range events {
			if err := send(map[string]any{"type": "vnc_status", "event": event}); err != nil {
				return
			}
		}
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read ended", zap.Error(err))
			}
			break
		}

		switch msg.Type {
		case "vnc_connect":
			h.handleConnect(send, msg.Request)
		case "vnc_disconnect":
			h.coordinator.Disconnect(c.Request.Context())
			send(map[string]any{"type": "ack", "command": "vnc_disconnect"})
		case "ping":
			send(map[string]any{"type": "pong"})
		default:
			send(map[string]any{"type": "error", "message": "unknown message type"})
		}
	}

	cancel()
	<-done
}

func (h *Handler) handleConnect(send func(any) error, req launch.Request) {
	if err := req.Validate(); err != nil {
		send(map[string]any{"type": "error", "message": err.Error()})
		return
	}

	// The attempt blocks for the grace window; run it off the read loop
	// and let the status stream deliver the verdict.
	go func() {
		if err := h.coordinator.Connect(context.Background(), req); err != nil &&
			!errors.Is(err, session.ErrSuperseded) {
			h.logger.Warn("connect attempt failed", zap.Error(err))
		}
	}()

	send(map[string]any{"type": "ack", "command": "vnc_connect"})
}
