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

// Sonarr refreshes series by id, one RefreshSeries command per matched
// series so a failure in one series never blocks the rest.
type Sonarr struct {
	base
	url   string
	token string
}

// NewSonarr builds a Sonarr target from its configuration entry.
func NewSonarr(name string, cfg config.Target) (*Sonarr, error) {
	b, err := newBase(name, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("sonarr target %s: url is required", name)
	}
	return &Sonarr{base: b, url: strings.TrimRight(cfg.URL, "/"), token: cfg.Token}, nil
}

type sonarrSeries struct {
	ID   int    `json:"id"`
	Path string `json:"path"`
}

func (s *Sonarr) apiGet(path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, s.url+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", s.token)
	body, err := perform(s.client, req)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func (s *Sonarr) apiPost(body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("sonarr: encoding command: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, s.url+"/api/v3/command", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", s.token)
	_, err = perform(s.client, req)
	return err
}

// Process implements Target: groups events by their enclosing series
// path prefix, issues one RefreshSeries command per series, and only
// events whose series refreshed successfully are reported as succeeded.
func (s *Sonarr) Process(events []*domain.ScanEvent) ([]string, error) {
	var series []sonarrSeries
	if err := s.apiGet("/api/v3/series", &series); err != nil {
		return nil, fmt.Errorf("sonarr: listing series: %w", err)
	}

	bySeries := make(map[int][]*domain.ScanEvent)
	for _, ev := range events {
		path := s.rewritePath(ev.FilePath)
		for _, sr := range series {
			if strings.HasPrefix(path, sr.Path) {
				bySeries[sr.ID] = append(bySeries[sr.ID], ev)
				break
			}
		}
	}

	var succeeded []string
	for id, evs := range bySeries {
		err := s.apiPost(map[string]interface{}{"name": "RefreshSeries", "seriesId": id})
		if err != nil {
			continue
		}
		succeeded = append(succeeded, eventIDs(evs)...)
	}

	return succeeded, nil
}
