// Package http implements the pairing REST API the phone talks to after
// scanning the kiosk QR code.
package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vncqr/kiosk/internal/domain/client"
	"github.com/vncqr/kiosk/internal/domain/history"
	"github.com/vncqr/kiosk/internal/domain/launch"
	"github.com/vncqr/kiosk/internal/domain/notify"
	"github.com/vncqr/kiosk/internal/domain/session"
	"github.com/vncqr/kiosk/internal/domain/store"
	"github.com/vncqr/kiosk/internal/infrastructure/logging"
	"github.com/vncqr/kiosk/internal/infrastructure/netinfo"
	"github.com/vncqr/kiosk/internal/shared/platform"
)

// History is the slice of the history store the handlers need.
type History interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	coordinator *session.Coordinator
	registry    *client.Registry
	locator     *client.Locator
	notifier    *notify.Notifier
	servers     *store.Store
	history     History
	logger      *logging.Logger
	platform    platform.Family
	port        string
}

// NewHandlers creates the handler set.
func NewHandlers(
	coordinator *session.Coordinator,
	registry *client.Registry,
	locator *client.Locator,
	notifier *notify.Notifier,
	servers *store.Store,
	hist History,
	logger *logging.Logger,
	family platform.Family,
	port string,
) *Handlers {
	return &Handlers{
		coordinator: coordinator,
		registry:    registry,
		locator:     locator,
		notifier:    notifier,
		servers:     servers,
		history:     hist,
		logger:      logger,
		platform:    family,
		port:        port,
	}
}

// Root reports the service banner.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "kiosk-launcher",
	})
}

// Health reports component health.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"state":     h.coordinator.State(),
		"connected": h.coordinator.IsConnected(),
	})
}

// Pairing returns the URL the kiosk QR code encodes.
func (h *Handlers) Pairing(c *gin.Context) {
	ip := netinfo.LocalIP()
	c.JSON(http.StatusOK, gin.H{
		"ip":  ip,
		"url": "http://" + ip + ":" + h.port + "/",
	})
}

// ListClients reports clients installed on this machine.
func (h *Handlers) ListClients(c *gin.Context) {
	installed := h.locator.Installed(h.registry.DescriptorsFor(h.platform))
	c.JSON(http.StatusOK, gin.H{
		"clients":  installed,
		"platform": h.platform,
	})
}

// Status reports the last published session status.
func (h *Handlers) Status(c *gin.Context) {
	resp := gin.H{
		"state":     h.coordinator.State(),
		"connected": h.coordinator.IsConnected(),
	}
	if last, ok := h.notifier.Last(); ok {
		resp["last_event"] = last
	}
	c.JSON(http.StatusOK, resp)
}

// connectBody is the connect request payload, optionally asking for the
// target to be remembered.
type connectBody struct {
	launch.Request
	SaveServer bool `json:"save_server,omitempty"`
}

// Connect starts a connection attempt. The attempt runs in the background;
// callers follow /stream or /api/status for the verdict.
func (h *Handlers) Connect(c *gin.Context) {
	var body connectBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := body.Request.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if body.SaveServer {
		if err := h.servers.Save(store.Server{
			Host:      body.Host,
			Port:      body.Port,
			Principal: body.Principal,
			ClientID:  body.ClientID,
		}); err != nil {
			h.logger.Warn("saving server failed", zap.Error(err))
		}
	}

	go func() {
		if err := h.coordinator.Connect(context.Background(), body.Request); err != nil &&
			!errors.Is(err, session.ErrSuperseded) {
			h.logger.Warn("connect attempt failed", zap.Error(err))
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "connecting"})
}

// Disconnect tears down the active session. A no-op without one.
func (h *Handlers) Disconnect(c *gin.Context) {
	h.coordinator.Disconnect(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}

// ListServers returns the saved server list.
func (h *Handlers) ListServers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"servers": h.servers.Servers()})
}

// SaveServer upserts a saved server.
func (h *Handlers) SaveServer(c *gin.Context) {
	var server store.Server
	if err := c.ShouldBindJSON(&server); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if server.Host == "" || server.Port <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "host and port are required"})
		return
	}
	if err := h.servers.Save(server); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// DeleteServer removes a saved server.
func (h *Handlers) DeleteServer(c *gin.Context) {
	var server store.Server
	if err := c.ShouldBindJSON(&server); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.servers.Delete(server.Host, server.Port); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// GetSettings returns the stored settings.
func (h *Handlers) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.servers.Settings())
}

// SaveSettings replaces the stored settings.
func (h *Handlers) SaveSettings(c *gin.Context) {
	var settings store.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.servers.SaveSettings(settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// History returns recent connection attempts.
func (h *Handlers) History(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := h.history.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts": entries})
}
