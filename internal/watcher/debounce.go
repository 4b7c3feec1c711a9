package watcher

import (
	"sync"
	"time"

	"github.com/dan-online/autopulse-sub000/internal/clock"
)

// RawKind is the coalesced raw filesystem operation a debounced event
// carries, before it's turned into a NewEvent (§4.5).
type RawKind int

const (
	RawCreate RawKind = iota
	RawRemove
	RawMetadataModify
	RawRename
	RawCloseWrite
)

// Event is one debounced, filtered, rewritten notification ready for the
// central consumer.
type Event struct {
	Path string
	Kind RawKind
}

// debouncer coalesces a burst of raw events per path into a single
// emission once window has elapsed with no further activity — the Go
// stand-in for notify_debouncer_full's debounce timeout (default 2s).
// Remove always wins over any other kind recorded in the same window:
// a file that gets written then deleted before the debounce fires should
// report as removed, not modified.
type debouncer struct {
	mu      sync.Mutex
	pending map[string]*pendingEntry
	window  time.Duration
	clock   clock.Clock
	out     chan Event
}

type pendingEntry struct {
	kind  RawKind
	timer clock.Timer
}

func newDebouncer(window time.Duration, c clock.Clock, out chan Event) *debouncer {
	return &debouncer{
		pending: make(map[string]*pendingEntry),
		window:  window,
		clock:   c,
		out:     out,
	}
}

func (d *debouncer) record(path string, kind RawKind) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.pending[path]
	if ok {
		entry.timer.Stop()
		entry.kind = coalesce(entry.kind, kind)
	} else {
		entry = &pendingEntry{kind: kind}
		d.pending[path] = entry
	}

	entry.timer = d.clock.AfterFunc(d.window, func() { d.flush(path) })
}

// coalesce merges two raw kinds observed for the same path within one
// debounce window. Remove dominates everything else; otherwise the most
// recent kind wins.
func coalesce(prev, next RawKind) RawKind {
	if prev == RawRemove || next == RawRemove {
		return RawRemove
	}
	return next
}

func (d *debouncer) flush(path string) {
	d.mu.Lock()
	entry, ok := d.pending[path]
	if !ok {
		d.mu.Unlock()
		return
	}
	delete(d.pending, path)
	d.mu.Unlock()

	d.out <- Event{Path: path, Kind: entry.kind}
}
