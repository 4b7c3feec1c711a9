package triggers

import (
	"fmt"

	"github.com/dan-online/autopulse-sub000/internal/config"
)

// Registry holds the constructed trigger set, keyed by the name the
// operator gave it in config (not the type — two sonarr instances can
// coexist under different names, e.g. "sonarr-4k" and "sonarr-1080p").
type Registry struct {
	triggers map[string]Trigger
}

// Build constructs every configured trigger, dispatching on its Type.
func Build(cfg map[string]config.Trigger, defaultTimerWait int) (*Registry, error) {
	reg := &Registry{triggers: make(map[string]Trigger, len(cfg))}

	for name, t := range cfg {
		trigger, err := newTrigger(name, t, defaultTimerWait)
		if err != nil {
			return nil, fmt.Errorf("trigger %s: %w", name, err)
		}
		reg.triggers[name] = trigger
	}

	return reg, nil
}

func newTrigger(name string, cfg config.Trigger, defaultTimerWait int) (Trigger, error) {
	switch cfg.Type {
	case "sonarr":
		return NewSonarr(name, cfg, defaultTimerWait)
	case "radarr":
		return NewRadarr(name, cfg, defaultTimerWait)
	case "lidarr":
		return NewLidarr(name, cfg, defaultTimerWait)
	case "readarr":
		return NewReadarr(name, cfg, defaultTimerWait)
	case "a_train":
		return NewATrain(name, cfg, defaultTimerWait)
	case "autoscan":
		return NewAutoscan(name, cfg, defaultTimerWait)
	case "manual":
		return NewManual(name, cfg, defaultTimerWait)
	case "notify":
		return NewNotify(name, cfg, defaultTimerWait)
	default:
		return nil, fmt.Errorf("unknown trigger type %q", cfg.Type)
	}
}

// Get returns the trigger registered under name, if any.
func (r *Registry) Get(name string) (Trigger, bool) {
	t, ok := r.triggers[name]
	return t, ok
}

// BodyParser returns the named trigger if it accepts webhook bodies.
func (r *Registry) BodyParser(name string) (BodyParser, bool) {
	t, ok := r.triggers[name]
	if !ok {
		return nil, false
	}
	bp, ok := t.(BodyParser)
	return bp, ok
}

// QueryParser returns the named trigger if it accepts query parameters.
func (r *Registry) QueryParser(name string) (QueryParser, bool) {
	t, ok := r.triggers[name]
	if !ok {
		return nil, false
	}
	qp, ok := t.(QueryParser)
	return qp, ok
}

// Names returns every configured trigger name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.triggers))
	for name := range r.triggers {
		names = append(names, name)
	}
	return names
}
