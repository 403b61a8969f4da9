// Package server wires the launcher together: domain components, pairing
// API, WebSocket channel, and metrics, behind one HTTP listener.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/vncqr/kiosk/internal/api/http"
	"github.com/vncqr/kiosk/internal/api/middleware"
	"github.com/vncqr/kiosk/internal/api/ws"
	"github.com/vncqr/kiosk/internal/domain/client"
	"github.com/vncqr/kiosk/internal/domain/display"
	"github.com/vncqr/kiosk/internal/domain/history"
	"github.com/vncqr/kiosk/internal/domain/notify"
	"github.com/vncqr/kiosk/internal/domain/session"
	"github.com/vncqr/kiosk/internal/domain/store"
	"github.com/vncqr/kiosk/internal/domain/supervise"
	"github.com/vncqr/kiosk/internal/infrastructure/config"
	"github.com/vncqr/kiosk/internal/infrastructure/logging"
	"github.com/vncqr/kiosk/internal/infrastructure/monitoring"
	"github.com/vncqr/kiosk/internal/shared/platform"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	httpServer  *http.Server
	coordinator *session.Coordinator
	notifier    *notify.Notifier
	history     *history.Store
	logger      *logging.Logger
	config      *config.Config
	stopMetrics func()
}

// New builds a fully wired server from configuration.
func New(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		logger = logging.NewDefault()
	}

	family := platform.Current()
	logger.Info("initializing kiosk launcher",
		zap.String("port", cfg.Server.Port),
		zap.String("platform", family.String()),
	)

	registry := client.NewRegistry()
	if err := registry.LoadOverlay(cfg.Store.ClientsPath); err != nil {
		logger.Warn("client overlay not loaded", zap.Error(err))
	}
	locator := client.NewLocator()

	servers, err := store.Open(cfg.Store.ServersPath)
	if err != nil {
		return nil, fmt.Errorf("open server store: %w", err)
	}

	hist, err := history.Open(context.Background(), cfg.Store.HistoryPath)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	metrics := monitoring.New()
	notifier := notify.New()

	// Metrics track the session through the same channel the phone uses.
	metricsEvents, stopMetrics := notifier.Subscribe()
	go metrics.ObserveStatus(metricsEvents)

	sup := supervise.New(logger, cfg.Supervisor.PollInterval)
	coordinator := session.NewCoordinator(
		registry,
		locator,
		session.WrapSupervisor(sup),
		notifier,
		display.NewLogController(logger),
		hist,
		logger,
		session.Options{
			Platform:        family,
			GraceWindow:     cfg.Supervisor.GraceWindow,
			GracefulTimeout: cfg.Supervisor.GracefulTimeout,
			KillSweep:       cfg.Supervisor.KillSweep,
		},
	)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(coordinator, registry, locator, notifier, servers, hist, logger, family, cfg.Server.Port)
	wsHandler := ws.NewHandler(coordinator, notifier, metrics, logger)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	router.GET("/api/pairing", handlers.Pairing)
	router.GET("/api/clients", handlers.ListClients)
	router.GET("/api/status", handlers.Status)
	router.POST("/api/connect", handlers.Connect)
	router.POST("/api/disconnect", handlers.Disconnect)

	router.GET("/api/servers", handlers.ListServers)
	router.POST("/api/servers", handlers.SaveServer)
	router.DELETE("/api/servers", handlers.DeleteServer)
	router.GET("/api/settings", handlers.GetSettings)
	router.POST("/api/settings", handlers.SaveSettings)
	router.GET("/api/history", handlers.History)

	router.GET("/stream", wsHandler.HandleConnection)
	router.GET("/metrics", monitoring.Handler())

	logger.Info("server initialized")

	return &Server{
		httpServer: &http.Server{
			Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
			Handler: router,
		},
		coordinator: coordinator,
		notifier:    notifier,
		history:     hist,
		logger:      logger,
		config:      cfg,
		stopMetrics: stopMetrics,
	}, nil
}

// Run starts the HTTP listener and blocks until it stops.
func (s *Server) Run() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close tears down any active session and shuts the listener down.
func (s *Server) Close() error {
	s.logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stop the client process before the listener so the phone sees the
	// Disconnected event while the stream is still up.
	s.coordinator.Disconnect(ctx)
	s.stopMetrics()

	err := s.httpServer.Shutdown(ctx)
	if cerr := s.history.Close(); cerr != nil && err == nil {
		err = cerr
	}
	s.logger.Sync()
	return err
}
