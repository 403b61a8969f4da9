// Package monitoring exposes Prometheus metrics for the launcher: HTTP
// traffic, WebSocket observers, and connection attempt outcomes.
package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vncqr/kiosk/internal/domain/notify"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	WSConnections prometheus.Gauge

	ConnectAttempts *prometheus.CounterVec
	SessionActive   prometheus.Gauge
	Uptime          prometheus.Gauge

	startTime time.Time
}

// New creates the metrics collectors on the default registry.
func New() *Metrics {
	return &Metrics{
		startTime: time.Now(),
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kiosk_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kiosk_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kiosk_ws_connections",
				Help: "Connected WebSocket observers",
			},
		),
		ConnectAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kiosk_connect_attempts_total",
				Help: "Connection attempts by terminal outcome",
			},
			[]string{"outcome"},
		),
		SessionActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kiosk_session_active",
				Help: "Whether a remote session is currently confirmed",
			},
		),
		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kiosk_uptime_seconds",
				Help: "Process uptime in seconds",
			},
		),
	}
}

// Middleware records request counts and latencies for every route.
func Middleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		m.RequestsTotal.WithLabelValues(method, path, status).Inc()
		m.RequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// Handler serves the Prometheus exposition endpoint.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// ObserveStatus consumes notifier events and keeps the session collectors
// current. It returns when the events channel closes.
func (m *Metrics) ObserveStatus(events <-chan notify.Event) {
	for event := range events {
		switch event.Status {
		case notify.StatusConnected:
			m.SessionActive.Set(1)
			m.ConnectAttempts.WithLabelValues("connected").Inc()
		case notify.StatusFailed:
			m.SessionActive.Set(0)
			m.ConnectAttempts.WithLabelValues("failed").Inc()
		case notify.StatusDisconnected:
			m.SessionActive.Set(0)
			m.ConnectAttempts.WithLabelValues("disconnected").Inc()
		}
	}
}
