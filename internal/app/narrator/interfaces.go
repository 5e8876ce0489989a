package narrator

import (
	"context"
	"encoding/json"

	"narrator/pkg/gradio"
)

// GradioClient is the remote app the narrations are generated by.
type GradioClient interface {
	Submit(ctx context.Context, data []any) (gradio.EventID, error)
	Result(ctx context.Context, eventID gradio.EventID) ([]json.RawMessage, error)
	Predict(ctx context.Context, data []any) ([]json.RawMessage, error)
	FileURL(path string) string
}

// Archiver copies generated audio somewhere durable and returns its key.
type Archiver interface {
	Archive(ctx context.Context, audioURL string, eventID gradio.EventID) (string, error)
}

// History records finished narrations.
type History interface {
	InsertNarration(ctx context.Context, narration *Narration) error
	ListNarrations(ctx context.Context, limit int) ([]*Narration, error)
}
