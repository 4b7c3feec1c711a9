// Package webhook implements the Webhook Batcher (§4.10): an in-memory
// map keyed by (EventKind, source) draining on its own ticker into an
// ordered batch that every configured sink receives in full.
package webhook

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dan-online/autopulse-sub000/internal/domain"
	"github.com/dan-online/autopulse-sub000/internal/logger"
)

// Entry is one drained batch line: every path reported under kind for
// source (source is empty for batch-wide entries like HashMismatch).
type Entry struct {
	Kind   domain.EventKind
	Source string
	Paths  []string
}

// Sink delivers a drained batch to one outbound destination.
type Sink interface {
	Send(entries []Entry) error
}

type batchKey struct {
	kind   domain.EventKind
	source string
}

// Batcher accumulates (kind, source) -> paths during a tick and flushes
// on its own ticker, independent of the reconciliation loop's cadence.
type Batcher struct {
	mu       sync.Mutex
	entries  map[batchKey][]string
	sinks    []Sink
	interval time.Duration
}

// New builds a Batcher that flushes every interval (default 10s per
// §4.10 when interval <= 0) to the given sinks.
func New(interval time.Duration, sinks []Sink) *Batcher {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Batcher{
		entries:  make(map[batchKey][]string),
		sinks:    sinks,
		interval: interval,
	}
}

// Add records paths under (kind, source) for the next flush. source may
// be empty for batch-wide kinds such as HashMismatch.
func (b *Batcher) Add(kind domain.EventKind, source string, paths ...string) {
	if len(paths) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	key := batchKey{kind: kind, source: source}
	b.entries[key] = append(b.entries[key], paths...)
}

// drain atomically swaps out the accumulated map and returns it sorted
// by EventKind priority (§4.10: New < HashMismatch < Found < Retrying <
// Processed < Failed).
func (b *Batcher) drain() []Entry {
	b.mu.Lock()
	swapped := b.entries
	b.entries = make(map[batchKey][]string)
	b.mu.Unlock()

	if len(swapped) == 0 {
		return nil
	}

	out := make([]Entry, 0, len(swapped))
	for k, paths := range swapped {
		out = append(out, Entry{Kind: k.kind, Source: k.source, Paths: paths})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind.Priority() != out[j].Kind.Priority() {
			return out[i].Kind.Priority() < out[j].Kind.Priority()
		}
		return out[i].Source < out[j].Source
	})
	return out
}

// Flush drains and delivers the current batch to every sink immediately,
// regardless of the ticker. Used at shutdown so the last tick's events
// aren't lost.
func (b *Batcher) Flush() {
	batch := b.drain()
	if len(batch) == 0 {
		return
	}
	for _, sink := range b.sinks {
		if err := sink.Send(batch); err != nil {
			logger.Errorf("webhook: sink delivery failed: %v", err)
		}
	}
}

// Run ticks at the batcher's interval until ctx is done, flushing on
// every tick and once more before returning.
func (b *Batcher) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.Flush()
			return
		case <-ticker.C:
			b.Flush()
		}
	}
}
