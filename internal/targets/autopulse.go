package targets

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dan-online/autopulse-sub000/internal/config"
	"github.com/dan-online/autopulse-sub000/internal/domain"
)

// Autopulse forwards events to the manual trigger of another Autopulse
// instance, for chaining reconciliation across two deployments.
type Autopulse struct {
	base
	url      string
	trigger  string
	username string
	password string
}

// NewAutopulse builds an Autopulse target from its configuration entry.
func NewAutopulse(name string, cfg config.Target) (*Autopulse, error) {
	b, err := newBase(name, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("autopulse target %s: url is required", name)
	}
	return &Autopulse{
		base:     b,
		url:      strings.TrimRight(cfg.URL, "/"),
		trigger:  "manual",
		username: cfg.Username,
		password: cfg.Password,
	}, nil
}

// Process implements Target: one GET per event, each tried
// independently so a single unreachable file doesn't fail the batch.
func (a *Autopulse) Process(events []*domain.ScanEvent) ([]string, error) {
	var succeeded []string

	for _, ev := range events {
		q := url.Values{"path": []string{a.rewritePath(ev.FilePath)}}
		if ev.FileHash != "" {
			q.Set("hash", ev.FileHash)
		}

		req, err := http.NewRequest(http.MethodGet, a.url+"/triggers/"+a.trigger+"?"+q.Encode(), nil)
		if err != nil {
			continue
		}
		if a.username != "" {
			req.SetBasicAuth(a.username, a.password)
		}

		if _, err := perform(a.client, req); err != nil {
			continue
		}
		succeeded = append(succeeded, ev.ID)
	}

	return succeeded, nil
}
