package cache

import (
	"context"
	"time"

	"github.com/jmgilman/go/cache/logging"
)

// Maintain sweeps stale and expired entries and then retunes TTLs once per
// interval, until ctx is done. It blocks, and returns ctx.Err() when it stops.
// The Manager never starts this loop on its own; hosts that prefer another
// cadence can call Sweep and RetuneTTLs directly.
func (m *Manager) Maintain(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errInvalidInput("maintenance interval must be positive", map[string]interface{}{
			"interval": interval.String(),
		})
	}

	logger := m.logger.WithOperation(logging.OpMaintain)
	logger.Debug(ctx, "maintenance started", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug(ctx, "maintenance stopped")
			return ctx.Err()
		case <-ticker.C:
			m.Sweep(ctx)
			m.RetuneTTLs(ctx)
		}
	}
}
