// Package targets implements the fan-out consumers of §4.6: each target
// is handed the slice of processable events not yet marked as hit by it,
// and returns the subset it successfully delivered. The reconciliation
// loop owns retry/backoff bookkeeping; a target only reports success or
// failure per event.
package targets

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dan-online/autopulse-sub000/internal/config"
	"github.com/dan-online/autopulse-sub000/internal/domain"
	"github.com/dan-online/autopulse-sub000/internal/rewrite"
)

// defaultTimeout is the bounded HTTP timeout from §5 when a target
// doesn't configure its own.
const defaultTimeout = 10 * time.Second

// Target is the fan-out consumer contract: given events, return the ids
// that were successfully delivered. An error fails every event passed in.
type Target interface {
	Name() string
	Process(events []*domain.ScanEvent) ([]string, error)
}

// base holds the rewrite rules and HTTP client shared by every variant.
type base struct {
	name   string
	rules  []rewrite.Rule
	client *http.Client
}

func newBase(name string, cfg config.Target) (base, error) {
	rules, err := rewrite.Compile(cfg.Rewrite)
	if err != nil {
		return base{}, fmt.Errorf("target %s: %w", name, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return base{
		name:   name,
		rules:  rules,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (b base) Name() string { return b.name }

func (b base) rewritePath(p string) string {
	return rewrite.Apply(b.rules, p)
}

// perform sends req and returns its body, wrapping any non-2xx status
// into a uniform error carrying method/url/status/body, the way every
// target's HTTP call should fail the same way regardless of which API
// it's hitting.
func perform(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: reading body: %w", req.Method, req.URL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL, resp.StatusCode, string(body))
	}

	return body, nil
}

// eventIDs returns the ids of every event in evs.
func eventIDs(evs []*domain.ScanEvent) []string {
	ids := make([]string, len(evs))
	for i, e := range evs {
		ids[i] = e.ID
	}
	return ids
}
