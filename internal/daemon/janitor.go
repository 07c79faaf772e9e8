package daemon

import (
	"context"
	"time"

	"clipfit/internal/logging"
	"clipfit/internal/staging"
)

const janitorInterval = 30 * time.Minute

// runJanitor sweeps stale staging directories and expired run logs until
// ctx is cancelled.
func (d *Daemon) runJanitor(ctx context.Context) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		d.sweep(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *Daemon) sweep(ctx context.Context) {
	result := staging.CleanStale(ctx, d.cfg.Paths.StagingDir, d.cfg.StagingMaxAge(), d.host.InUseDirs(), d.logger)
	if len(result.Removed) > 0 || len(result.Errors) > 0 {
		d.logger.Debug("staging sweep finished",
			logging.Int("removed", len(result.Removed)),
			logging.Int64("reclaimed_bytes", result.Reclaimed),
			logging.Int("errors", len(result.Errors)),
		)
	}
	if days := d.cfg.Logging.RetentionDays; days > 0 {
		logging.PruneOldFiles(d.logger, d.cfg.RunLogDir(), "*.log", time.Duration(days)*24*time.Hour)
	}
}
