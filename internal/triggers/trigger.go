// Package triggers implements the producers of §4.3: each parses one
// webhook body (or query string, for the manual/notify variants) into a
// list of (path, expect_present) pairs for the handler to turn into
// NewEvents.
package triggers

import (
	"fmt"
	"time"

	"github.com/dan-online/autopulse-sub000/internal/config"
	"github.com/dan-online/autopulse-sub000/internal/rewrite"
)

// PathIntent is one producer-reported path and whether the producer
// claims the file now exists (§4.3).
type PathIntent struct {
	Path          string
	ExpectPresent bool
}

// Trigger is the accessor surface every producer variant shares.
type Trigger interface {
	Name() string
	Rewrite() []rewrite.Rule
	Timer() time.Duration
	Excludes() []string
}

// BodyParser is implemented by producers that parse a webhook POST body
// (sonarr, radarr, lidarr, readarr, a_train, autoscan).
type BodyParser interface {
	Trigger
	ParseBody(body []byte) ([]PathIntent, error)
}

// QueryParser is implemented by producers driven by GET query parameters
// (manual, notify) rather than a JSON body.
type QueryParser interface {
	Trigger
	ParseQuery(path, hash, dir string) ([]PathIntent, error)
}

// base holds the accessor state common to every trigger variant.
type base struct {
	name         string
	rewriteRules []rewrite.Rule
	timer        time.Duration
	excludes     []string
}

func newBase(name string, cfg config.Trigger, defaultTimerWait time.Duration) (base, error) {
	rules, err := rewrite.Compile(cfg.Rewrite)
	if err != nil {
		return base{}, fmt.Errorf("trigger %s: %w", name, err)
	}

	wait := defaultTimerWait
	if cfg.Timer != nil {
		wait = time.Duration(cfg.Timer.WaitSeconds) * time.Second
	}

	excludes := append([]string(nil), cfg.Excludes...)

	return base{name: name, rewriteRules: rules, timer: wait, excludes: excludes}, nil
}

func (b base) Name() string            { return b.name }
func (b base) Rewrite() []rewrite.Rule { return b.rewriteRules }
func (b base) Timer() time.Duration    { return b.timer }
func (b base) Excludes() []string      { return b.excludes }

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
