package triggers

import (
	"encoding/json"
	"fmt"

	"github.com/dan-online/autopulse-sub000/internal/config"
)

// autoscanPayload is the least-common-denominator shape: a single path,
// nothing else.
type autoscanPayload struct {
	Path string `json:"path"`
}

// Autoscan is the producer for tools that speak the cloudbox/autoscan
// convention of posting a bare {"path": "..."} body.
type Autoscan struct {
	base
}

// NewAutoscan builds the autoscan trigger from its configuration entry.
func NewAutoscan(name string, cfg config.Trigger, defaultTimerWait int) (*Autoscan, error) {
	b, err := newBase(name, cfg, secondsToDuration(defaultTimerWait))
	if err != nil {
		return nil, err
	}
	return &Autoscan{base: b}, nil
}

// ParseBody implements BodyParser.
func (a *Autoscan) ParseBody(body []byte) ([]PathIntent, error) {
	var p autoscanPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("autoscan: decoding body: %w", err)
	}
	if p.Path == "" {
		return nil, nil
	}
	return []PathIntent{{Path: p.Path, ExpectPresent: true}}, nil
}
