package narrator

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	DefaultLanguage = "es"
	DefaultVoice    = "Aaron Dreschner"
)

// Languages lists the codes the narration voices can speak.
var Languages = []string{"en", "es", "fr", "de", "it", "pt", "pl", "tr", "ru", "nl", "cs", "ar", "zh-cn", "hu", "ko", "ja", "hi"}

var ErrInvalidRequest = errors.New("invalid request")

// FileRef points the remote app at a media file by server path or URL.
type FileRef struct {
	Path string `json:"path"`
	URL  string `json:"url,omitempty"`
}

// Request holds the inputs of one plant narration.
type Request struct {
	Title       string  `json:"title"`
	Location    string  `json:"location"`
	PlantImage  FileRef `json:"plant_image"`
	Description string  `json:"description"`
	Tasks       string  `json:"tasks"`
	Comments    string  `json:"comments"`
	Language    string  `json:"language"`
	Voice       string  `json:"voice"`
}

// SampleRequest is the request the bundled web page fires on click.
func SampleRequest() Request {
	return Request{
		Title:       "Hello!!",
		Location:    "Hello!!",
		PlantImage:  FileRef{Path: "https://external-content.duckduckgo.com/iu/?u=https%3A%2F%2Fnatursan.net%2Fwp-content%2Fbeneficios-tomate.jpg"},
		Description: "Hello!!",
		Tasks:       "Hello!!",
		Comments:    "Hello!!",
		Language:    "en",
		Voice:       DefaultVoice,
	}
}

// Normalize trims the text fields and fills the language and voice defaults.
func (r *Request) Normalize() {
	for _, field := range []*string{&r.Title, &r.Location, &r.Description, &r.Tasks, &r.Comments, &r.Language, &r.Voice, &r.PlantImage.Path, &r.PlantImage.URL} {
		*field = strings.TrimSpace(*field)
	}

	// the app resolves media by path, which also accepts an address
	if r.PlantImage.Path == "" {
		r.PlantImage.Path = r.PlantImage.URL
	}

	if r.Language == "" {
		r.Language = DefaultLanguage
	}

	if r.Voice == "" {
		r.Voice = DefaultVoice
	}
}

func (r *Request) Validate() error {
	var missing []string

	if r.Title == "" {
		missing = append(missing, "title")
	}
	if r.Location == "" {
		missing = append(missing, "location")
	}
	if r.PlantImage.Path == "" && r.PlantImage.URL == "" {
		missing = append(missing, "plant_image")
	}
	if r.Description == "" {
		missing = append(missing, "description")
	}
	if r.Tasks == "" {
		missing = append(missing, "tasks")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}

	if !slices.Contains(Languages, r.Language) {
		return fmt.Errorf("%w: unsupported language %q", ErrInvalidRequest, r.Language)
	}

	return nil
}

// Data lays the request out in the parameter order of the remote
// process_inputs function.
func (r *Request) Data() []any {
	return []any{
		r.Title,
		r.Location,
		r.PlantImage,
		r.Description,
		r.Tasks,
		r.Comments,
		r.Language,
		r.Voice,
	}
}

// LegacyData is the shorter layout accepted by /api/predict, which takes the
// image as a plain path and leaves language and voice to server defaults.
func (r *Request) LegacyData() []any {
	image := r.PlantImage.Path
	if image == "" {
		image = r.PlantImage.URL
	}

	return []any{
		r.Title,
		r.Location,
		image,
		r.Description,
		r.Tasks,
		r.Comments,
	}
}
