package narrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

var ErrHistoryDisabled = errors.New("narration history is not configured")

type Service struct {
	logger   *slog.Logger
	gradio   GradioClient
	archiver Archiver
	history  History

	now func() time.Time
}

// NewService wires the narration flow. archiver and history may be nil.
func NewService(logger *slog.Logger, gradio GradioClient, archiver Archiver, history History) *Service {
	return &Service{
		logger:   logger,
		gradio:   gradio,
		archiver: archiver,
		history:  history,
		now:      time.Now,
	}
}

func (s *Service) HistoryEnabled() bool {
	return s.history != nil
}

// Generate submits the request and fetches its output, one call after the
// other. The submit and poll errors are returned as they are so callers can
// show them.
func (s *Service) Generate(ctx context.Context, req Request) (*Narration, error) {
	req.Normalize()

	if err := req.Validate(); err != nil {
		metrics.Generations.WithLabelValues("invalid").Inc()
		return nil, err
	}

	logger := s.logger.With("title", req.Title, "language", req.Language, "voice", req.Voice)

	eventID, err := s.gradio.Submit(ctx, req.Data())
	if err != nil {
		metrics.Generations.WithLabelValues("submit_failed").Inc()
		logger.Error("failed to submit narration", "err", err)

		return nil, err
	}

	logger = logger.With("event_id", eventID)
	logger.Info("narration submitted")

	out, err := s.gradio.Result(ctx, eventID)
	if err != nil {
		metrics.Generations.WithLabelValues("result_failed").Inc()
		logger.Error("failed to retrieve narration", "err", err)

		return nil, err
	}

	audioPath, audioURL, text, err := parseOutput(out)
	if err != nil {
		metrics.Generations.WithLabelValues("bad_output").Inc()
		logger.Error("failed to parse narration output", "err", err)

		return nil, err
	}

	if audioURL == "" {
		audioURL = s.gradio.FileURL(audioPath)
	}

	narration := &Narration{
		ID:        uuid.New(),
		EventID:   eventID,
		Title:     req.Title,
		Language:  req.Language,
		Voice:     req.Voice,
		AudioPath: audioPath,
		AudioURL:  audioURL,
		Text:      text,
		CreatedAt: s.now().UTC(),
	}

	if s.archiver != nil {
		key, err := s.archiver.Archive(ctx, narration.AudioURL, eventID)
		if err != nil {
			logger.Warn("failed to archive narration audio", "err", err)
		} else {
			narration.ArchiveKey = key
		}
	}

	if s.history != nil {
		if err := s.history.InsertNarration(ctx, narration); err != nil {
			logger.Warn("failed to store narration", "err", err)
		}
	}

	metrics.Generations.WithLabelValues("ok").Inc()
	logger.Info("narration generated", "audio_url", narration.AudioURL)

	return narration, nil
}

// Predict runs the request through the single call endpoint and returns the
// raw outputs.
func (s *Service) Predict(ctx context.Context, req Request) ([]json.RawMessage, error) {
	req.Normalize()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	out, err := s.gradio.Predict(ctx, req.LegacyData())
	if err != nil {
		s.logger.Error("failed to run prediction", "title", req.Title, "err", err)
		return nil, err
	}

	return out, nil
}

func (s *Service) History(ctx context.Context, limit int) ([]*Narration, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}

	narrations, err := s.history.ListNarrations(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list narrations: %w", err)
	}

	return narrations, nil
}
