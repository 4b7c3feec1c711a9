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

// Tdarr fires a single fire-and-forget batch scan at Tdarr's
// scan-files endpoint. There is no per-path acknowledgement, so every
// event either all succeeds or all fails together.
type Tdarr struct {
	base
	url string
}

// NewTdarr builds a Tdarr target from its configuration entry.
func NewTdarr(name string, cfg config.Target) (*Tdarr, error) {
	b, err := newBase(name, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("tdarr target %s: url is required", name)
	}
	return &Tdarr{base: b, url: strings.TrimRight(cfg.URL, "/")}, nil
}

type tdarrScanConfig struct {
	DBID        string   `json:"dbID"`
	ArrayOrPath []string `json:"arrayOrPath"`
	Mode        string   `json:"mode"`
}

type tdarrScanBody struct {
	Data struct {
		ScanConfig tdarrScanConfig `json:"scanConfig"`
	} `json:"data"`
}

// Process implements Target.
func (t *Tdarr) Process(events []*domain.ScanEvent) ([]string, error) {
	if len(events) == 0 {
		return nil, nil
	}

	body := tdarrScanBody{}
	body.Data.ScanConfig.DBID = "db"
	body.Data.ScanConfig.Mode = "scanFolderWatcher"
	for _, ev := range events {
		body.Data.ScanConfig.ArrayOrPath = append(body.Data.ScanConfig.ArrayOrPath, t.rewritePath(ev.FilePath))
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("tdarr: encoding body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, t.url+"/api/v2/scan-files", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	if _, err := perform(t.client, req); err != nil {
		return nil, fmt.Errorf("tdarr: scanning: %w", err)
	}

	return eventIDs(events), nil
}
