// Package display abstracts the local kiosk screen. The coordinator only
// needs two transitions: show the idle pairing presentation, and get out
// of the way while a remote session is on screen.
package display

import (
	"go.uber.org/zap"

	"github.com/vncqr/kiosk/internal/infrastructure/logging"
)

// Controller is implemented by the local display layer.
type Controller interface {
	// ShowIdle presents the pairing screen.
	ShowIdle()
	// Hide removes the pairing screen while a session is active.
	Hide()
}

// LogController is a headless Controller that only records transitions.
// It stands in wherever no GUI is wired up, including tests.
type LogController struct {
	logger *logging.Logger
}

// NewLogController creates a logging display controller.
func NewLogController(logger *logging.Logger) *LogController {
	return &LogController{logger: logger}
}

func (c *LogController) ShowIdle() {
	c.logger.Info("display: idle presentation", zap.String("state", "shown"))
}

func (c *LogController) Hide() {
	c.logger.Info("display: idle presentation", zap.String("state", "hidden"))
}
