package webhook

import (
	"fmt"
	"strings"

	"github.com/containrrr/shoutrrr"
)

// GenericSink forwards a batch as plain text through shoutrrr, covering
// every provider (Slack, Telegram, Pushover, Gotify, ...) that doesn't
// need Discord's bespoke rate-limit handling.
type GenericSink struct {
	url string
}

// NewGenericSink builds a GenericSink for a shoutrrr service URL (e.g.
// "slack://token@channel", "telegram://token@telegram?chats=...").
func NewGenericSink(url string) *GenericSink {
	return &GenericSink{url: url}
}

// Send implements Sink: the whole batch is rendered as one plain-text
// message rather than chunked, since shoutrrr providers generally don't
// impose Discord's strict 10-embed cap.
func (g *GenericSink) Send(entries []Entry) error {
	var b strings.Builder
	for _, e := range entries {
		title := string(e.Kind)
		if e.Source != "" {
			title = fmt.Sprintf("%s (%s)", e.Kind, e.Source)
		}
		fmt.Fprintf(&b, "%s:\n", title)
		for _, p := range e.Paths {
			fmt.Fprintf(&b, "  %s\n", p)
		}
	}

	return shoutrrr.Send(g.url, b.String())
}
