package reconcile

import (
	"context"

	"github.com/dan-online/autopulse-sub000/internal/domain"
	"github.com/dan-online/autopulse-sub000/internal/logger"
)

// fanOut implements §4.6 (Target Fan-Out) and §4.7 (Retry Controller):
// every configured target is offered the processable events it hasn't
// already hit and isn't excluded from, and the result drives each
// event's next process_status.
func (l *Loop) fanOut(ctx context.Context) {
	now := l.clock.Now()

	events, err := l.store.QueryProcessable(ctx, now, l.opts.CheckPath)
	if err != nil {
		logger.Errorf("reconcile: processable query failed: %v", err)
		return
	}
	if len(events) == 0 {
		return
	}

	failedIDs := make(map[string]bool)

	for _, target := range l.targets.All() {
		name := target.Name()

		subset := make([]*domain.ScanEvent, 0, len(events))
		for _, ev := range events {
			if ev.HasTargetHit(name) {
				continue
			}
			if l.excluded(ev.EventSource, name) {
				continue
			}
			subset = append(subset, ev)
		}
		if len(subset) == 0 {
			continue
		}

		succeeded, err := target.Process(subset)
		if err != nil {
			logger.Errorf("reconcile: target %s: %v", name, err)
			for _, ev := range subset {
				failedIDs[ev.ID] = true
			}
			continue
		}

		succeededSet := make(map[string]bool, len(succeeded))
		for _, id := range succeeded {
			succeededSet[id] = true
		}
		for _, ev := range subset {
			if succeededSet[ev.ID] {
				ev.AddTargetHit(name)
			} else {
				failedIDs[ev.ID] = true
			}
		}
	}

	var completed, retrying, failed []*domain.ScanEvent

	for _, ev := range events {
		if failedIDs[ev.ID] {
			ev.FailedTimes++
			if ev.FailedTimes >= l.opts.MaxRetries {
				ev.ProcessStatus = domain.StatusFailed
				ev.NextRetryAt = nil
				failed = append(failed, ev)
			} else {
				ev.ProcessStatus = domain.StatusRetry
				ev.NextRetryAt = timePtr(now.Add(domain.NextRetryDelay(ev.FailedTimes)))
				retrying = append(retrying, ev)
			}
		} else {
			ev.ProcessStatus = domain.StatusComplete
			ev.ProcessedAt = timePtr(now)
			completed = append(completed, ev)
		}

		if err := l.store.Save(ctx, ev); err != nil {
			logger.Errorf("reconcile: saving fan-out result for %s: %v", ev.ID, err)
		}
	}

	l.emit(domain.KindProcessed, completed)
	l.emit(domain.KindRetrying, retrying)
	l.emit(domain.KindFailed, failed)
}

// excluded reports whether target is in the excludes list of the trigger
// that produced source, evaluated fresh every tick (§9's open question:
// excludes is resolved per-tick, not at event-creation time). An unknown
// source (e.g. its trigger was removed from configuration) excludes
// nothing.
func (l *Loop) excluded(source, target string) bool {
	trig, ok := l.triggers.Get(source)
	if !ok {
		return false
	}
	for _, ex := range trig.Excludes() {
		if ex == target {
			return true
		}
	}
	return false
}
