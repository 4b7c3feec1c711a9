package webhook

import (
	"fmt"

	"github.com/dan-online/autopulse-sub000/internal/config"
)

// BuildSinks constructs one Sink per configured webhook entry,
// dispatching "discord" to the bespoke rate-limit-aware sink and
// everything else through shoutrrr.
func BuildSinks(cfg map[string]config.Webhook) ([]Sink, error) {
	sinks := make([]Sink, 0, len(cfg))
	for name, w := range cfg {
		if w.URL == "" {
			return nil, fmt.Errorf("webhook %s: url is required", name)
		}
		switch w.Type {
		case "discord":
			sinks = append(sinks, NewDiscordSink(w.URL))
		default:
			sinks = append(sinks, NewGenericSink(w.URL))
		}
	}
	return sinks, nil
}
