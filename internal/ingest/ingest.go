// Package ingest turns a producer's (path, expect_present) pairs into
// durable scan events (§4.3's handler contract). Both the HTTP trigger
// routes and the filesystem watcher's central consumer (§4.5) funnel
// through here so the NewEvent construction and "New" notification are
// built exactly once.
package ingest

import (
	"context"
	"time"

	"github.com/dan-online/autopulse-sub000/internal/bus"
	"github.com/dan-online/autopulse-sub000/internal/db"
	"github.com/dan-online/autopulse-sub000/internal/domain"
	"github.com/dan-online/autopulse-sub000/internal/logger"
	"github.com/dan-online/autopulse-sub000/internal/rewrite"
	"github.com/dan-online/autopulse-sub000/internal/webhook"
)

// Store is the subset of db.Repository ingest needs, so tests can stub it.
type Store interface {
	Add(ctx context.Context, in domain.NewEvent) (*domain.ScanEvent, error)
}

var _ Store = (*db.Repository)(nil)

// Intake is the shared entry point for every producer: it rewrites each
// offered path, applies the §4.3 mapping to a NewEvent, stores it (which
// performs the §3.1 dedup-or-insert), and queues a "New" webhook entry
// plus a bus notification for each event actually touched.
type Intake struct {
	store   Store
	batcher *webhook.Batcher
	bus     *bus.Bus
}

// New builds an Intake wired to store, the webhook batcher and the
// lifecycle bus.
func New(store Store, batcher *webhook.Batcher, b *bus.Bus) *Intake {
	return &Intake{store: store, batcher: batcher, bus: b}
}

// PathIntent is the minimal shape ingest needs from a producer's output;
// triggers.PathIntent satisfies it structurally.
type PathIntent struct {
	Path          string
	ExpectPresent bool
}

// Source describes the producing trigger's accessors needed to build a
// NewEvent: its name, rewrite rules and debounce timer (§4.3).
type Source struct {
	Name    string
	Rewrite []rewrite.Rule
	Timer   time.Duration
}

// Apply stores one event per intent and returns the stored events in
// order. A store error for one intent is logged and that intent is
// skipped (§7); the rest of the batch still proceeds.
func (in *Intake) Apply(ctx context.Context, src Source, intents []PathIntent) []*domain.ScanEvent {
	out := make([]*domain.ScanEvent, 0, len(intents))
	now := time.Now()

	for _, intent := range intents {
		path := rewrite.Apply(src.Rewrite, intent.Path)

		foundStatus := domain.FoundNotFound
		if !intent.ExpectPresent {
			foundStatus = domain.FoundFound
		}

		ev, err := in.store.Add(ctx, domain.NewEvent{
			EventSource:    src.Name,
			EventTimestamp: now,
			FilePath:       path,
			FoundStatus:    foundStatus,
			CanProcess:     now.Add(src.Timer),
		})
		if err != nil {
			logger.Errorf("ingest: storing event from %s for %s: %v", src.Name, path, err)
			continue
		}

		out = append(out, ev)
	}

	if len(out) > 0 {
		paths := make([]string, len(out))
		for i, ev := range out {
			paths[i] = ev.FilePath
		}
		if in.batcher != nil {
			in.batcher.Add(domain.KindNew, src.Name, paths...)
		}
		if in.bus != nil {
			for _, ev := range out {
				in.bus.Publish(bus.Notification{Kind: domain.KindNew, Event: ev})
			}
		}
	}

	return out
}

// ApplyHashed is Apply with an explicit expected hash applied to every
// intent, for producers (manual) that accept a single hash alongside a
// single path.
func (in *Intake) ApplyHashed(ctx context.Context, src Source, intents []PathIntent, hash string) []*domain.ScanEvent {
	if hash == "" {
		return in.Apply(ctx, src, intents)
	}

	out := make([]*domain.ScanEvent, 0, len(intents))
	now := time.Now()

	for _, intent := range intents {
		path := rewrite.Apply(src.Rewrite, intent.Path)

		foundStatus := domain.FoundNotFound
		if !intent.ExpectPresent {
			foundStatus = domain.FoundFound
		}

		ev, err := in.store.Add(ctx, domain.NewEvent{
			EventSource:    src.Name,
			EventTimestamp: now,
			FilePath:       path,
			FileHash:       hash,
			FoundStatus:    foundStatus,
			CanProcess:     now.Add(src.Timer),
		})
		if err != nil {
			logger.Errorf("ingest: storing event from %s for %s: %v", src.Name, path, err)
			continue
		}
		out = append(out, ev)
	}

	if len(out) > 0 {
		paths := make([]string, len(out))
		for i, ev := range out {
			paths[i] = ev.FilePath
		}
		if in.batcher != nil {
			in.batcher.Add(domain.KindNew, src.Name, paths...)
		}
		if in.bus != nil {
			for _, ev := range out {
				in.bus.Publish(bus.Notification{Kind: domain.KindNew, Event: ev})
			}
		}
	}

	return out
}
