package targets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dan-online/autopulse-sub000/internal/config"
	"github.com/dan-online/autopulse-sub000/internal/domain"
)

// Emby refreshes an Emby or Jellyfin library via the shared
// Library/Media/Updated batch endpoint both servers expose. Unlike Plex
// this needs no library lookup: the server resolves the path itself.
type Emby struct {
	base
	url             string
	token           string
	refreshMetadata bool
}

// NewEmby builds an Emby/Jellyfin target from its configuration entry.
func NewEmby(name string, cfg config.Target) (*Emby, error) {
	b, err := newBase(name, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("emby target %s: url is required", name)
	}
	return &Emby{
		base:            b,
		url:             strings.TrimRight(cfg.URL, "/"),
		token:           cfg.Token,
		refreshMetadata: cfg.RefreshMetadata,
	}, nil
}

type embyUpdate struct {
	Path       string `json:"Path"`
	UpdateType string `json:"UpdateType"`
}

type embyUpdatedBody struct {
	Updates []embyUpdate `json:"Updates"`
}

// Process implements Target: one batch call covers every event, so
// success or failure is all-or-nothing for this tick (the server gives
// no per-path acknowledgement).
func (e *Emby) Process(events []*domain.ScanEvent) ([]string, error) {
	if len(events) == 0 {
		return nil, nil
	}

	updateType := "Modified"
	if e.refreshMetadata {
		updateType = "Created"
	}

	body := embyUpdatedBody{}
	for _, ev := range events {
		body.Updates = append(body.Updates, embyUpdate{
			Path:       e.rewritePath(ev.FilePath),
			UpdateType: updateType,
		})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("emby: encoding body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, e.url+"/Library/Media/Updated", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Emby-Token", e.token)

	if _, err := perform(e.client, req); err != nil {
		return nil, fmt.Errorf("emby: refreshing: %w", err)
	}

	return eventIDs(events), nil
}
