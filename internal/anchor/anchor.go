// Package anchor implements the Anchor Gate (§4.8): the reconciliation
// loop must see every configured anchor path before it touches
// found-status, fan-out, or cleanup, so a temporarily unmounted media
// share doesn't look like a mass deletion.
package anchor

import "os"

// Gate tracks anchor availability across ticks, logging only on
// transition rather than every tick.
type Gate struct {
	paths     []string
	available bool
	checked   bool
}

// NewGate builds a Gate over the configured anchor paths. An empty list
// is always available — no anchors configured means no gate.
func NewGate(paths []string) *Gate {
	return &Gate{paths: append([]string(nil), paths...)}
}

// Check reports whether every anchor currently exists, and whether this
// call changed that from the previous call (transition).
func (g *Gate) Check() (available bool, transitioned bool) {
	available = true
	for _, p := range g.paths {
		if _, err := os.Stat(p); err != nil {
			available = false
			break
		}
	}

	transitioned = !g.checked || available != g.available
	g.available = available
	g.checked = true
	return available, transitioned
}
