// Package reconcile implements the Reconciliation Loop (§4.11): the
// single 1 Hz goroutine that runs the Anchor Gate, the Found-Status
// Checker (§4.4), the Target Fan-Out with the Retry Controller (§4.6,
// §4.7), and Cleanup (§4.9), in that order, skipping every step after the
// Anchor Gate whenever the gate is paused.
package reconcile

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"github.com/dan-online/autopulse-sub000/internal/anchor"
	"github.com/dan-online/autopulse-sub000/internal/bus"
	"github.com/dan-online/autopulse-sub000/internal/checksum"
	"github.com/dan-online/autopulse-sub000/internal/clock"
	"github.com/dan-online/autopulse-sub000/internal/db"
	"github.com/dan-online/autopulse-sub000/internal/domain"
	"github.com/dan-online/autopulse-sub000/internal/logger"
	"github.com/dan-online/autopulse-sub000/internal/targets"
	"github.com/dan-online/autopulse-sub000/internal/triggers"
	"github.com/dan-online/autopulse-sub000/internal/webhook"
)

// Store is the subset of db.Repository the loop drives. Narrowed to an
// interface so Tick can be exercised against a fake in tests that don't
// want a real SQLite file.
type Store interface {
	QueryPendingNotFound(ctx context.Context) ([]*domain.ScanEvent, error)
	QueryProcessable(ctx context.Context, now time.Time, checkPathEnabled bool) ([]*domain.ScanEvent, error)
	Save(ctx context.Context, ev *domain.ScanEvent) error
	Cleanup(ctx context.Context, olderThan time.Time) (int64, error)
}

var _ Store = (*db.Repository)(nil)

// TargetRegistry is the subset of targets.Registry the loop drives.
type TargetRegistry interface {
	All() []targets.Target
}

// TriggerRegistry is the subset of triggers.Registry the loop drives: it
// only needs to resolve a source name to its excludes list.
type TriggerRegistry interface {
	Get(name string) (triggers.Trigger, bool)
}

// Options are the opts.* tunables from §6.4 that shape the loop.
type Options struct {
	CheckPath   bool
	MaxRetries  int
	CleanupDays int
}

// Loop ties the store to the anchor gate, the configured targets and
// triggers (for per-tick excludes resolution, §9's open question), and
// the outbound notification surfaces (webhook batcher, lifecycle bus).
type Loop struct {
	store    Store
	anchors  *anchor.Gate
	targets  TargetRegistry
	triggers TriggerRegistry
	batcher  *webhook.Batcher
	bus      *bus.Bus
	opts     Options
	clock    clock.Clock

	// statFile is overridden in tests to avoid touching the real
	// filesystem for found-status checks.
	statFile func(string) (bool, error)

	lastTickNanos int64 // atomic; duration of the most recently completed Tick
}

// New builds a Loop. clk may be nil to use the real wall clock.
func New(store Store, anchors *anchor.Gate, tgs TargetRegistry, trg TriggerRegistry, batcher *webhook.Batcher, b *bus.Bus, opts Options, clk clock.Clock) *Loop {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &Loop{
		store:    store,
		anchors:  anchors,
		targets:  tgs,
		triggers: trg,
		batcher:  batcher,
		bus:      b,
		opts:     opts,
		clock:    clk,
		statFile: statExists,
	}
}

func statExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Run ticks at 1 Hz until ctx is cancelled (§4.11, §5). Each sub-step
// logs its own errors and carries on, so a failing step never ends the
// loop; a panic inside a tick is not recovered here.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick runs one reconciliation pass: anchor check, found-status sweep,
// fan-out, cleanup. Anchor unavailability skips everything past the
// gate check (§4.8).
func (l *Loop) Tick(ctx context.Context) {
	start := time.Now()
	defer func() {
		atomic.StoreInt64(&l.lastTickNanos, int64(time.Since(start)))
	}()

	available, transitioned := l.anchors.Check()
	if transitioned {
		if available {
			logger.Infof("reconcile: anchors available, resuming")
		} else {
			logger.Warnf("reconcile: anchor missing, pausing reconciliation")
		}
	}
	if !available {
		return
	}

	l.foundStatusSweep(ctx)
	l.fanOut(ctx)
	l.cleanup(ctx)
}

// TickDuration returns how long the most recently completed Tick took,
// surfaced as the "speed" field of GET /stats.
func (l *Loop) TickDuration() time.Duration {
	return time.Duration(atomic.LoadInt64(&l.lastTickNanos))
}

// eventsBySource groups a slice of events' rewritten paths by
// event_source, the shape the webhook batcher's per-(kind,source) map
// wants.
func eventsBySource(evs []*domain.ScanEvent) map[string][]string {
	out := make(map[string][]string)
	for _, ev := range evs {
		out[ev.EventSource] = append(out[ev.EventSource], ev.FilePath)
	}
	return out
}

func (l *Loop) emit(kind domain.EventKind, evs []*domain.ScanEvent) {
	if l.batcher != nil {
		for source, paths := range eventsBySource(evs) {
			l.batcher.Add(kind, source, paths...)
		}
	}
	if l.bus != nil {
		for _, ev := range evs {
			l.bus.Publish(bus.Notification{Kind: kind, Event: ev})
		}
	}
}
