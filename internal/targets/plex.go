package targets

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dan-online/autopulse-sub000/internal/config"
	"github.com/dan-online/autopulse-sub000/internal/domain"
)

// Plex refreshes a Plex library section by path, matching each event to
// its enclosing section by longest path-prefix.
type Plex struct {
	base
	url   string
	token string
}

// NewPlex builds a Plex target from its configuration entry.
func NewPlex(name string, cfg config.Target) (*Plex, error) {
	b, err := newBase(name, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("plex target %s: url is required", name)
	}
	return &Plex{base: b, url: strings.TrimRight(cfg.URL, "/"), token: cfg.Token}, nil
}

type plexSection struct {
	Key       string `json:"key"`
	Locations []struct {
		Path string `json:"path"`
	} `json:"Location"`
}

type plexSectionsResponse struct {
	MediaContainer struct {
		Directory []plexSection `json:"Directory"`
	} `json:"MediaContainer"`
}

func (p *Plex) newRequest(method, path string, query url.Values) (*http.Request, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("X-Plex-Token", p.token)

	req, err := http.NewRequest(method, p.url+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// sections returns every library section, longest location path first so
// nested mounts match their most specific section.
func (p *Plex) sections() ([]plexSection, error) {
	req, err := p.newRequest(http.MethodGet, "/library/sections", nil)
	if err != nil {
		return nil, err
	}
	body, err := perform(p.client, req)
	if err != nil {
		return nil, fmt.Errorf("plex: listing sections: %w", err)
	}

	var parsed plexSectionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("plex: decoding sections: %w", err)
	}

	secs := parsed.MediaContainer.Directory
	sort.Slice(secs, func(i, j int) bool {
		return longestLocation(secs[i]) > longestLocation(secs[j])
	})
	return secs, nil
}

func longestLocation(s plexSection) int {
	max := 0
	for _, l := range s.Locations {
		if len(l.Path) > max {
			max = len(l.Path)
		}
	}
	return max
}

func (p *Plex) matchSection(secs []plexSection, path string) (plexSection, bool) {
	for _, s := range secs {
		for _, l := range s.Locations {
			if strings.HasPrefix(path, l.Path) {
				return s, true
			}
		}
	}
	return plexSection{}, false
}

func (p *Plex) refresh(key, dir string) error {
	req, err := p.newRequest(http.MethodGet, "/library/sections/"+key+"/refresh", url.Values{"path": []string{dir}})
	if err != nil {
		return err
	}
	_, err = perform(p.client, req)
	return err
}

// Process implements Target: every event whose rewritten path falls
// under a known section's location is refreshed; events with no
// matching section fail.
func (p *Plex) Process(events []*domain.ScanEvent) ([]string, error) {
	secs, err := p.sections()
	if err != nil {
		return nil, err
	}

	// Dedup refresh calls per directory so a burst of events in one
	// folder triggers a single scan.
	refreshed := make(map[string]error)
	var succeeded []string

	for _, ev := range events {
		path := p.rewritePath(ev.FilePath)
		sec, ok := p.matchSection(secs, path)
		if !ok {
			continue
		}

		dir := filepath.Dir(path)
		cacheKey := sec.Key + "|" + dir
		if _, done := refreshed[cacheKey]; !done {
			refreshed[cacheKey] = p.refresh(sec.Key, dir)
		}
		if refreshed[cacheKey] == nil {
			succeeded = append(succeeded, ev.ID)
		}
	}

	return succeeded, nil
}
