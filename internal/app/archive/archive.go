package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"narrator/pkg/gradio"
	"narrator/pkg/tools"
)

const (
	defaultMaxSize = 50 << 20
	defaultExt     = ".wav"
)

type Config struct {
	Enabled bool   `yaml:"enabled"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
	MaxSize int64  `yaml:"max_size"`
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type ObjectStore interface {
	PutObject(ctx context.Context, bucket string, objectName string, reader io.Reader, size int64, contentType string) error
}

// Archiver downloads generated audio from the inference server, which only
// keeps it around for a while, and stores a copy in object storage.
type Archiver struct {
	httpClient HTTPClient
	store      ObjectStore
	cfg        *Config
}

func New(httpClient HTTPClient, store ObjectStore, cfg *Config) *Archiver {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Archiver{
		httpClient: httpClient,
		store:      store,
		cfg:        cfg,
	}
}

func (a *Archiver) maxSize() int64 {
	if a.cfg.MaxSize <= 0 {
		return defaultMaxSize
	}

	return a.cfg.MaxSize
}

// Archive stores the audio behind audioURL and returns its object key.
func (a *Archiver) Archive(ctx context.Context, audioURL string, eventID gradio.EventID) (string, error) {
	if a.cfg.Bucket == "" {
		return "", fmt.Errorf("archive bucket is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create audio request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download audio: %w", err)
	}
	defer tools.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download audio: %s", resp.Status)
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, a.maxSize()+1))
	if err != nil {
		return "", fmt.Errorf("failed to read audio: %w", err)
	}

	if int64(len(audio)) > a.maxSize() {
		return "", fmt.Errorf("audio is larger than %d bytes", a.maxSize())
	}

	ext := audioExt(audioURL)

	contentType := resp.Header.Get("Content-Type")
	// file servers often guess a generic type for audio
	if !strings.HasPrefix(contentType, "audio/") {
		contentType = audioContentType(ext)
	}

	key := a.cfg.Prefix + string(eventID) + ext

	if err := a.store.PutObject(ctx, a.cfg.Bucket, key, bytes.NewReader(audio), int64(len(audio)), contentType); err != nil {
		return "", fmt.Errorf("failed to store audio: %w", err)
	}

	return key, nil
}

// audioExt takes the extension from a file URL, which for gradio looks like
// {base}/file=/tmp/gradio/xyz/audio.wav.
func audioExt(audioURL string) string {
	p := audioURL
	if u, err := url.Parse(audioURL); err == nil {
		p = u.Path
	}

	if _, after, ok := strings.Cut(p, "file="); ok {
		p = after
	}

	ext := strings.ToLower(path.Ext(p))
	if ext == "" || len(ext) > 5 {
		return defaultExt
	}

	return ext
}

var audioTypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
}

func audioContentType(ext string) string {
	if ct, ok := audioTypes[ext]; ok {
		return ct
	}

	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}

	return "application/octet-stream"
}
