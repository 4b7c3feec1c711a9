package targets

import (
	"fmt"

	"github.com/dan-online/autopulse-sub000/internal/config"
)

// Registry holds the constructed target set, keyed by configuration name.
type Registry struct {
	targets map[string]Target
	names   []string
}

// Build constructs every configured target, dispatching on its Type.
func Build(cfg map[string]config.Target) (*Registry, error) {
	reg := &Registry{targets: make(map[string]Target, len(cfg))}

	for name, t := range cfg {
		target, err := newTarget(name, t)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", name, err)
		}
		reg.targets[name] = target
		reg.names = append(reg.names, name)
	}

	return reg, nil
}

func newTarget(name string, cfg config.Target) (Target, error) {
	switch cfg.Type {
	case "plex":
		return NewPlex(name, cfg)
	case "emby", "jellyfin":
		return NewEmby(name, cfg)
	case "tdarr":
		return NewTdarr(name, cfg)
	case "sonarr":
		return NewSonarr(name, cfg)
	case "radarr":
		return NewRadarr(name, cfg)
	case "command":
		return NewCommand(name, cfg)
	case "autopulse":
		return NewAutopulse(name, cfg)
	default:
		return nil, fmt.Errorf("unknown target type %q", cfg.Type)
	}
}

// Names returns every configured target name, in Build order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// All returns every configured target.
func (r *Registry) All() []Target {
	out := make([]Target, 0, len(r.targets))
	for _, name := range r.names {
		out = append(out, r.targets[name])
	}
	return out
}
