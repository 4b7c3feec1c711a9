package triggers

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/dan-online/autopulse-sub000/internal/config"
)

type readarrPayload struct {
	EventType string `json:"eventType"`
	Author    struct {
		Path string `json:"path"`
	} `json:"author"`
	BookFiles []struct {
		RelativePath string `json:"relativePath"`
	} `json:"bookFiles"`
	RenamedBookFiles []struct {
		PreviousPath string `json:"previousPath"`
		RelativePath string `json:"relativePath"`
	} `json:"renamedBookFiles"`
	DeletedFiles []struct {
		RelativePath string `json:"relativePath"`
	} `json:"deletedFiles"`
}

// Readarr is the producer for Readarr's Connect webhook.
type Readarr struct {
	base
}

// NewReadarr builds a Readarr trigger from its configuration entry.
func NewReadarr(name string, cfg config.Trigger, defaultTimerWait int) (*Readarr, error) {
	b, err := newBase(name, cfg, secondsToDuration(defaultTimerWait))
	if err != nil {
		return nil, err
	}
	return &Readarr{base: b}, nil
}

// ParseBody implements BodyParser for the Readarr webhook shape, the
// book-oriented sibling of Sonarr's episode mapping.
func (r *Readarr) ParseBody(body []byte) ([]PathIntent, error) {
	var p readarrPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("readarr: decoding body: %w", err)
	}

	switch p.EventType {
	case "Download", "BookFileImport":
		intents := make([]PathIntent, 0, len(p.BookFiles))
		for _, f := range p.BookFiles {
			if f.RelativePath == "" {
				continue
			}
			intents = append(intents, PathIntent{
				Path:          filepath.Join(p.Author.Path, f.RelativePath),
				ExpectPresent: true,
			})
		}
		return intents, nil

	case "Rename":
		intents := make([]PathIntent, 0, len(p.RenamedBookFiles)*2)
		for _, rn := range p.RenamedBookFiles {
			if rn.PreviousPath != "" {
				intents = append(intents, PathIntent{Path: rn.PreviousPath, ExpectPresent: false})
			}
			if rn.RelativePath != "" {
				intents = append(intents, PathIntent{
					Path:          filepath.Join(p.Author.Path, rn.RelativePath),
					ExpectPresent: true,
				})
			}
		}
		return intents, nil

	case "BookFileDelete":
		intents := make([]PathIntent, 0, len(p.DeletedFiles))
		for _, d := range p.DeletedFiles {
			intents = append(intents, PathIntent{
				Path:          filepath.Join(p.Author.Path, d.RelativePath),
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
