package narrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"narrator/pkg/gradio"

	"github.com/google/uuid"
)

type Narration struct {
	ID      uuid.UUID      `json:"id"`
	EventID gradio.EventID `json:"event_id"`

	Title    string `json:"title"`
	Language string `json:"language"`
	Voice    string `json:"voice"`

	AudioPath  string `json:"audio_path"`
	AudioURL   string `json:"audio_url"`
	Text       string `json:"text"`
	ArchiveKey string `json:"archive_key,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

var ErrNoAudio = errors.New("no audio produced")

// fileData is how newer servers describe an output file.
type fileData struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// parseOutput reads the positional job output: the audio file first, the
// narration text second.
func parseOutput(out []json.RawMessage) (audioPath string, audioURL string, text string, err error) {
	if len(out) < 2 {
		return "", "", "", fmt.Errorf("%w: expected 2 outputs, got %d", gradio.ErrInvalidResponse, len(out))
	}

	if err := json.Unmarshal(out[1], &text); err != nil {
		return "", "", "", fmt.Errorf("%w: text output is not a string", gradio.ErrInvalidResponse)
	}

	if err := json.Unmarshal(out[0], &audioPath); err != nil {
		var file fileData
		if err := json.Unmarshal(out[0], &file); err != nil || file.Path == "" {
			return "", "", "", fmt.Errorf("%w: audio output is neither a path nor a file", gradio.ErrInvalidResponse)
		}

		audioPath, audioURL = file.Path, file.URL
	}

	// the app reports its own failures as a missing audio plus a message
	if audioPath == "" {
		if text != "" {
			return "", "", "", fmt.Errorf("%w: %s", ErrNoAudio, text)
		}

		return "", "", "", ErrNoAudio
	}

	return audioPath, audioURL, text, nil
}
