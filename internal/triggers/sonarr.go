package triggers

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/dan-online/autopulse-sub000/internal/config"
)

// sonarrPayload covers the Sonarr webhook event types Download, Rename,
// EpisodeFileDelete and Test (§8.2/§8.3 S1, S2).
type sonarrPayload struct {
	EventType string `json:"eventType"`
	Series    struct {
		Path string `json:"path"`
	} `json:"series"`
	EpisodeFile struct {
		RelativePath string `json:"relativePath"`
	} `json:"episodeFile"`
	RenamedEpisodeFiles []struct {
		PreviousPath string `json:"previousPath"`
		RelativePath string `json:"relativePath"`
	} `json:"renamedEpisodeFiles"`
	DeletedFiles []struct {
		RelativePath string `json:"relativePath"`
	} `json:"deletedFiles"`
}

// Sonarr is the producer for Sonarr's Connect webhook.
type Sonarr struct {
	base
}

// NewSonarr builds a Sonarr trigger from its configuration entry.
func NewSonarr(name string, cfg config.Trigger, defaultTimerWait int) (*Sonarr, error) {
	b, err := newBase(name, cfg, secondsToDuration(defaultTimerWait))
	if err != nil {
		return nil, err
	}
	return &Sonarr{base: b}, nil
}

// ParseBody implements BodyParser for the Sonarr webhook shape (S1, S2).
func (s *Sonarr) ParseBody(body []byte) ([]PathIntent, error) {
	var p sonarrPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("sonarr: decoding body: %w", err)
	}

	switch p.EventType {
	case "Download":
		if p.EpisodeFile.RelativePath == "" {
			return nil, nil
		}
		return []PathIntent{{
			Path:          filepath.Join(p.Series.Path, p.EpisodeFile.RelativePath),
			ExpectPresent: true,
		}}, nil

	case "Rename":
		intents := make([]PathIntent, 0, len(p.RenamedEpisodeFiles)*2)
		for _, r := range p.RenamedEpisodeFiles {
			if r.PreviousPath != "" {
				intents = append(intents, PathIntent{Path: r.PreviousPath, ExpectPresent: false})
			}
			if r.RelativePath != "" {
				intents = append(intents, PathIntent{
					Path:          filepath.Join(p.Series.Path, r.RelativePath),
					ExpectPresent: true,
				})
			}
		}
		return intents, nil

	case "EpisodeFileDelete":
		intents := make([]PathIntent, 0, len(p.DeletedFiles)+1)
		if p.EpisodeFile.RelativePath != "" {
			intents = append(intents, PathIntent{
				Path:          filepath.Join(p.Series.Path, p.EpisodeFile.RelativePath),
				ExpectPresent: false,
			})
		}
		for _, d := range p.DeletedFiles {
			intents = append(intents, PathIntent{
				Path:          filepath.Join(p.Series.Path, d.RelativePath),
				ExpectPresent: false,
			})
		}
		return intents, nil

	case "Test":
		return nil, nil

	default:
		return nil, nil
	}
}
