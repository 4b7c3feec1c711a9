package triggers

import (
	"github.com/dan-online/autopulse-sub000/internal/config"
)

// Notify is the trigger name the filesystem watcher (§4.5) publishes
// under. It doubles as a QueryParser so the same name is reachable over
// GET /triggers/notify?path=... for manual testing, and additionally
// accepts a dir query to mean "something under this directory changed"
// without pinning a single file.
type Notify struct {
	base
}

// NewNotify builds the notify trigger from its configuration entry.
func NewNotify(name string, cfg config.Trigger, defaultTimerWait int) (*Notify, error) {
	b, err := newBase(name, cfg, secondsToDuration(defaultTimerWait))
	if err != nil {
		return nil, err
	}
	return &Notify{base: b}, nil
}

// ParseQuery implements QueryParser. hash is accepted but unused here —
// the watcher reports a touched path, not an expected checksum; the
// Found-Status Checker computes the real hash once the event lands.
func (n *Notify) ParseQuery(path, hash, dir string) ([]PathIntent, error) {
	if path != "" {
		return []PathIntent{{Path: path, ExpectPresent: true}}, nil
	}
	if dir != "" {
		return []PathIntent{{Path: dir, ExpectPresent: true}}, nil
	}
	return nil, nil
}
