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

// Radarr batches every matched movie id into a single RefreshMovie
// command. Coarser than Sonarr's per-series calls: if that one call
// fails, none of the matched events succeed this tick.
type Radarr struct {
	base
	url   string
	token string
}

// NewRadarr builds a Radarr target from its configuration entry.
func NewRadarr(name string, cfg config.Target) (*Radarr, error) {
	b, err := newBase(name, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("radarr target %s: url is required", name)
	}
	return &Radarr{base: b, url: strings.TrimRight(cfg.URL, "/"), token: cfg.Token}, nil
}

type radarrMovie struct {
	ID   int    `json:"id"`
	Path string `json:"path"`
}

// Process implements Target.
func (r *Radarr) Process(events []*domain.ScanEvent) ([]string, error) {
	req, err := http.NewRequest(http.MethodGet, r.url+"/api/v3/movie", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", r.token)
	body, err := perform(r.client, req)
	if err != nil {
		return nil, fmt.Errorf("radarr: listing movies: %w", err)
	}

	var movies []radarrMovie
	if err := json.Unmarshal(body, &movies); err != nil {
		return nil, fmt.Errorf("radarr: decoding movies: %w", err)
	}

	var matched []*domain.ScanEvent
	movieIDs := make(map[int]struct{})
	for _, ev := range events {
		path := r.rewritePath(ev.FilePath)
		for _, m := range movies {
			if strings.HasPrefix(path, m.Path) {
				matched = append(matched, ev)
				movieIDs[m.ID] = struct{}{}
				break
			}
		}
	}
	if len(matched) == 0 {
		return nil, nil
	}

	ids := make([]int, 0, len(movieIDs))
	for id := range movieIDs {
		ids = append(ids, id)
	}

	payload, err := json.Marshal(map[string]interface{}{"name": "RefreshMovie", "movieIds": ids})
	if err != nil {
		return nil, fmt.Errorf("radarr: encoding command: %w", err)
	}
	cmdReq, err := http.NewRequest(http.MethodPost, r.url+"/api/v3/command", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	cmdReq.Header.Set("Content-Type", "application/json")
	cmdReq.Header.Set("X-Api-Key", r.token)

	if _, err := perform(r.client, cmdReq); err != nil {
		return nil, fmt.Errorf("radarr: refreshing movies: %w", err)
	}

	return eventIDs(matched), nil
}
