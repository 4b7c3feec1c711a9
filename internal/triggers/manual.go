package triggers

import (
	"github.com/dan-online/autopulse-sub000/internal/config"
)

// Manual is the pure HTTP variant from §4.3: a single path, with an
// optional expected hash, offered via GET query parameters rather than a
// JSON body. Always claims the file is present — a caller hitting
// /triggers/manual is telling Autopulse a file showed up, not that it
// went away.
type Manual struct {
	base
}

// NewManual builds the manual trigger from its configuration entry.
func NewManual(name string, cfg config.Trigger, defaultTimerWait int) (*Manual, error) {
	b, err := newBase(name, cfg, secondsToDuration(defaultTimerWait))
	if err != nil {
		return nil, err
	}
	return &Manual{base: b}, nil
}

// ParseQuery implements QueryParser. dir is accepted but ignored here —
// directory-style expansion belongs to the filesystem-driven "notify"
// variant, which walks a directory rather than trusting a single path.
func (m *Manual) ParseQuery(path, hash, dir string) ([]PathIntent, error) {
	if path == "" {
		return nil, nil
	}
	return []PathIntent{{Path: path, ExpectPresent: true}}, nil
}
