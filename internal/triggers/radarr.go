package triggers

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/dan-online/autopulse-sub000/internal/config"
)

type radarrPayload struct {
	EventType string `json:"eventType"`
	Movie     struct {
		Path string `json:"path"`
	} `json:"movie"`
	MovieFile struct {
		RelativePath string `json:"relativePath"`
	} `json:"movieFile"`
	RenamedMovieFiles []struct {
		PreviousPath string `json:"previousPath"`
		RelativePath string `json:"relativePath"`
	} `json:"renamedMovieFiles"`
	DeletedFiles []struct {
		RelativePath string `json:"relativePath"`
	} `json:"deletedFiles"`
}

// Radarr is the producer for Radarr's Connect webhook.
type Radarr struct {
	base
}

// NewRadarr builds a Radarr trigger from its configuration entry.
func NewRadarr(name string, cfg config.Trigger, defaultTimerWait int) (*Radarr, error) {
	b, err := newBase(name, cfg, secondsToDuration(defaultTimerWait))
	if err != nil {
		return nil, err
	}
	return &Radarr{base: b}, nil
}

// ParseBody implements BodyParser for the Radarr webhook shape, the
// movie-oriented sibling of Sonarr's episode mapping.
func (r *Radarr) ParseBody(body []byte) ([]PathIntent, error) {
	var p radarrPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("radarr: decoding body: %w", err)
	}

	switch p.EventType {
	case "Download":
		if p.MovieFile.RelativePath == "" {
			return nil, nil
		}
		return []PathIntent{{
			Path:          filepath.Join(p.Movie.Path, p.MovieFile.RelativePath),
			ExpectPresent: true,
		}}, nil

	case "Rename":
		intents := make([]PathIntent, 0, len(p.RenamedMovieFiles)*2)
		for _, rn := range p.RenamedMovieFiles {
			if rn.PreviousPath != "" {
				intents = append(intents, PathIntent{Path: rn.PreviousPath, ExpectPresent: false})
			}
			if rn.RelativePath != "" {
				intents = append(intents, PathIntent{
					Path:          filepath.Join(p.Movie.Path, rn.RelativePath),
					ExpectPresent: true,
				})
			}
		}
		return intents, nil

	case "MovieFileDelete":
		intents := make([]PathIntent, 0, len(p.DeletedFiles)+1)
		if p.MovieFile.RelativePath != "" {
			intents = append(intents, PathIntent{
				Path:          filepath.Join(p.Movie.Path, p.MovieFile.RelativePath),
				ExpectPresent: false,
			})
		}
		for _, d := range p.DeletedFiles {
			intents = append(intents, PathIntent{
				Path:          filepath.Join(p.Movie.Path, d.RelativePath),
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
