package supervise

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweep kills any process matching the given executable names. It is a
// best-effort catch-all for clients that fork and abandon the tracked
// process; matching is by name, so unrelated same-named processes on the
// host may be killed too. That is an accepted limitation of the sweep,
// which is why callers only run it when explicitly enabled.
func (s *Supervisor) Sweep(ctx context.Context, names []string) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	for _, name := range names {
		if err := killByName(ctx, name); err != nil {
			// pkill/taskkill exit non-zero when nothing matched;
			// that is the common case, log at debug only.
			s.logger.Debug("sweep", zap.String("name", name), zap.Error(err))
			continue
		}
		s.logger.Info("swept processes", zap.String("name", name))
	}
}
