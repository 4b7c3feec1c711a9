package triggers

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/dan-online/autopulse-sub000/internal/config"
)

type lidarrPayload struct {
	EventType string `json:"eventType"`
	Artist    struct {
		Path string `json:"path"`
	} `json:"artist"`
	TrackFiles []struct {
		RelativePath string `json:"relativePath"`
	} `json:"trackFiles"`
	RenamedTrackFiles []struct {
		PreviousPath string `json:"previousPath"`
		RelativePath string `json:"relativePath"`
	} `json:"renamedTrackFiles"`
	DeletedFiles []struct {
		RelativePath string `json:"relativePath"`
	} `json:"deletedFiles"`
}

// Lidarr is the producer for Lidarr's Connect webhook.
type Lidarr struct {
	base
}

// NewLidarr builds a Lidarr trigger from its configuration entry.
func NewLidarr(name string, cfg config.Trigger, defaultTimerWait int) (*Lidarr, error) {
	b, err := newBase(name, cfg, secondsToDuration(defaultTimerWait))
	if err != nil {
		return nil, err
	}
	return &Lidarr{base: b}, nil
}

// ParseBody implements BodyParser for the Lidarr webhook shape, the
// track-oriented sibling of Sonarr's episode mapping.
func (l *Lidarr) ParseBody(body []byte) ([]PathIntent, error) {
	var p lidarrPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("lidarr: decoding body: %w", err)
	}

	switch p.EventType {
	case "Download", "TrackFileImport":
		intents := make([]PathIntent, 0, len(p.TrackFiles))
		for _, f := range p.TrackFiles {
			if f.RelativePath == "" {
				continue
			}
			intents = append(intents, PathIntent{
				Path:          filepath.Join(p.Artist.Path, f.RelativePath),
				ExpectPresent: true,
			})
		}
		return intents, nil

	case "Rename":
		intents := make([]PathIntent, 0, len(p.RenamedTrackFiles)*2)
		for _, r := range p.RenamedTrackFiles {
			if r.PreviousPath != "" {
				intents = append(intents, PathIntent{Path: r.PreviousPath, ExpectPresent: false})
			}
			if r.RelativePath != "" {
				intents = append(intents, PathIntent{
					Path:          filepath.Join(p.Artist.Path, r.RelativePath),
					ExpectPresent: true,
				})
			}
		}
		return intents, nil

	case "TrackFileDelete":
		intents := make([]PathIntent, 0, len(p.DeletedFiles))
		for _, d := range p.DeletedFiles {
			intents = append(intents, PathIntent{
				Path:          filepath.Join(p.Artist.Path, d.RelativePath),
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
