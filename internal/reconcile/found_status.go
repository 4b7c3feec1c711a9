package reconcile

import (
	"context"
	"time"

	"github.com/dan-online/autopulse-sub000/internal/checksum"
	"github.com/dan-online/autopulse-sub000/internal/domain"
	"github.com/dan-online/autopulse-sub000/internal/logger"
)

// foundStatusSweep implements §4.4: for every pending, not-yet-found
// event, test presence and (if an expected hash is set) the SHA-256
// match, gated behind opts.check_path.
func (l *Loop) foundStatusSweep(ctx context.Context) {
	if !l.opts.CheckPath {
		return
	}

	events, err := l.store.QueryPendingNotFound(ctx)
	if err != nil {
		logger.Errorf("reconcile: found-status query failed: %v", err)
		return
	}
	if len(events) == 0 {
		return
	}

	now := l.clock.Now()
	var newlyFound, newlyMismatched []*domain.ScanEvent

	for _, ev := range events {
		exists, err := l.statFile(ev.FilePath)
		if err != nil {
			logger.Errorf("reconcile: stat %s: %v", ev.FilePath, err)
			continue
		}

		if !exists {
			if err := l.store.Save(ctx, ev); err != nil {
				logger.Errorf("reconcile: saving not-found event %s: %v", ev.ID, err)
			}
			continue
		}

		if ev.FileHash != "" {
			hash, err := checksum.SHA256File(ev.FilePath)
			if err != nil {
				logger.Errorf("reconcile: hashing %s: %v", ev.FilePath, err)
				continue
			}
			if hash == ev.FileHash {
				ev.FoundStatus = domain.FoundFound
				ev.FoundAt = timePtr(now)
				newlyFound = append(newlyFound, ev)
			} else {
				if ev.FoundStatus != domain.FoundHashMismatch {
					newlyMismatched = append(newlyMismatched, ev)
				}
				ev.FoundStatus = domain.FoundHashMismatch
				ev.FoundAt = timePtr(now)
			}
		} else {
			ev.FoundStatus = domain.FoundFound
			ev.FoundAt = timePtr(now)
			newlyFound = append(newlyFound, ev)
		}

		if err := l.store.Save(ctx, ev); err != nil {
			logger.Errorf("reconcile: saving found-status transition for %s: %v", ev.ID, err)
		}
	}

	l.emit(domain.KindFound, newlyFound)
	l.emit(domain.KindHashMismatch, newlyMismatched)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
