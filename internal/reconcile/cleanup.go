package reconcile

import (
	"context"

	"github.com/dan-online/autopulse-sub000/internal/logger"
)

// cleanup implements §4.9: delete NotFound and Failed events whose
// found_at predates cleanup_days. Errors are logged, never abort the
// tick (§7).
func (l *Loop) cleanup(ctx context.Context) {
	if l.opts.CleanupDays <= 0 {
		return
	}

	olderThan := l.clock.Now().AddDate(0, 0, -l.opts.CleanupDays)
	n, err := l.store.Cleanup(ctx, olderThan)
	if err != nil {
		logger.Errorf("reconcile: cleanup failed: %v", err)
		return
	}
	if n > 0 {
		logger.Debugf("reconcile: cleanup removed %d stale events", n)
	}
}
