package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dan-online/autopulse-sub000/internal/domain"
)

// chunkSize is the max entries carried by one outbound Discord message.
const chunkSize = 10

// maxRetries bounds the rate-limit retry loop so a misbehaving webhook
// can't wedge the batcher forever.
const maxRetries = 3

// colorFor mirrors the original implementation's per-kind embed color.
func colorFor(k domain.EventKind) int {
	switch k {
	case domain.KindNew:
		return 0x95a5a6 // grey
	case domain.KindFound:
		return 0x2ecc71 // green
	case domain.KindFailed:
		return 0xe74c3c // red
	case domain.KindProcessed:
		return 0x3498db // blue
	case domain.KindRetrying, domain.KindHashMismatch:
		return 0xf1c40f // yellow
	default:
		return 0x95a5a6
	}
}

const maxFieldLen = 1024

func truncate(s string) string {
	if len(s) <= maxFieldLen {
		return s
	}
	return s[:maxFieldLen-3] + "..."
}

// DiscordSink posts batches to a Discord webhook URL. It bypasses the
// shoutrrr abstraction deliberately: shoutrrr's Send doesn't surface
// response headers, and Discord's rate-limit retry contract (§4.10)
// needs the X-RateLimit-Reset header on a 429 response.
type DiscordSink struct {
	url    string
	client *http.Client
}

// NewDiscordSink builds a DiscordSink posting to url.
func NewDiscordSink(url string) *DiscordSink {
	return &DiscordSink{url: url, client: &http.Client{Timeout: 10 * time.Second}}
}

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

func embedFor(e Entry) discordEmbed {
	title := string(e.Kind)
	if e.Source != "" {
		title = fmt.Sprintf("%s (%s)", e.Kind, e.Source)
	}

	var body bytes.Buffer
	for _, p := range e.Paths {
		fmt.Fprintln(&body, p)
	}

	return discordEmbed{
		Title:       title,
		Description: truncate(body.String()),
		Color:       colorFor(e.Kind),
	}
}

// Send implements Sink: entries are chunked chunkSize at a time, each
// chunk its own message, retried per the rate-limit-reset contract.
func (d *DiscordSink) Send(entries []Entry) error {
	for start := 0; start < len(entries); start += chunkSize {
		end := start + chunkSize
		if end > len(entries) {
			end = len(entries)
		}
		if err := d.sendChunk(entries[start:end], maxRetries); err != nil {
			return err
		}
	}
	return nil
}

func (d *DiscordSink) sendChunk(chunk []Entry, retriesLeft int) error {
	payload := discordPayload{}
	for _, e := range chunk {
		payload.Embeds = append(payload.Embeds, embedFor(e))
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("discord: encoding payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: sending: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests && retriesLeft > 0 {
		if wait, ok := rateLimitWait(resp.Header.Get("X-RateLimit-Reset")); ok {
			time.Sleep(wait)
			return d.sendChunk(chunk, retriesLeft-1)
		}
	}

	return fmt.Errorf("discord: status %d delivering webhook", resp.StatusCode)
}

// rateLimitWait parses a unix-seconds X-RateLimit-Reset header into a
// sleep duration from now. Returns false if the header is missing or
// unparseable, or already in the past.
func rateLimitWait(reset string) (time.Duration, bool) {
	if reset == "" {
		return 0, false
	}
	secs, err := strconv.ParseFloat(reset, 64)
	if err != nil {
		return 0, false
	}
	resetAt := time.Unix(0, int64(secs*float64(time.Second)))
	wait := time.Until(resetAt)
	if wait <= 0 {
		return 0, false
	}
	return wait, true
}
