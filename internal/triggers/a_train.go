package triggers

import (
	"encoding/json"
	"fmt"

	"github.com/dan-online/autopulse-sub000/internal/config"
)

// aTrainPayload is the least-structured shape this producer accepts: a
// flat list of paths that all showed up together, with no per-path
// present/absent distinction.
type aTrainPayload struct {
	Paths []string `json:"paths"`
}

// ATrain is the producer for single-payload tools that only ever report
// "these N paths changed", with no episode/movie/track modeling of
// their own (Bazarr and similar single-file subtitle/metadata tools).
type ATrain struct {
	base
}

// NewATrain builds the a_train trigger from its configuration entry.
func NewATrain(name string, cfg config.Trigger, defaultTimerWait int) (*ATrain, error) {
	b, err := newBase(name, cfg, secondsToDuration(defaultTimerWait))
	if err != nil {
		return nil, err
	}
	return &ATrain{base: b}, nil
}

// ParseBody implements BodyParser. Every path in the payload is treated
// as present — this producer has no delete notion.
func (a *ATrain) ParseBody(body []byte) ([]PathIntent, error) {
	var p aTrainPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("a_train: decoding body: %w", err)
	}

	intents := make([]PathIntent, 0, len(p.Paths))
	for _, path := range p.Paths {
		if path == "" {
			continue
		}
		intents = append(intents, PathIntent{Path: path, ExpectPresent: true})
	}
	return intents, nil
}
