package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"narrator/internal/app/api"
	"narrator/internal/app/narrator"
	"narrator/pkg/gradio"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type memHistory struct {
	narrations []*narrator.Narration
}

func (h *memHistory) InsertNarration(ctx context.Context, n *narrator.Narration) error {
	h.narrations = append([]*narrator.Narration{n}, h.narrations...)
	return nil
}

func (h *memHistory) ListNarrations(ctx context.Context, limit int) ([]*narrator.Narration, error) {
	if limit < len(h.narrations) {
		return h.narrations[:limit], nil
	}

	return h.narrations, nil
}

// newTestServer starts a fake gradio app answering submit with submitCode
// and poll with pollCode, and an API in front of it.
func newTestServer(t *testing.T, submitCode, pollCode int, history narrator.History) (*httptest.Server, string) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/gradio_api/call/process_inputs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(submitCode)
		_, _ = w.Write([]byte(`{"event_id":"abc123"}`))
	})
	mux.HandleFunc("/gradio_api/call/process_inputs/abc123", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(pollCode)
		_, _ = w.Write([]byte(`{"data":["out/audio.wav","Hello world"]}`))
	})
	mux.HandleFunc("/api/predict", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":["out/audio.wav","Hello world"],"duration":0.5}`))
	})

	remote := httptest.NewServer(mux)
	t.Cleanup(remote.Close)

	client := gradio.New(remote.Client(), &gradio.Config{URL: remote.URL})
	service := narrator.NewService(discardLogger, client, nil, history)

	reg := prometheus.NewRegistry()
	narrator.RegisterMetrics(reg)

	a := api.NewAPI(&api.Config{Timeout: 10 * time.Second}, discardLogger, service, reg)

	srv := httptest.NewServer(a.NewRouter())
	t.Cleanup(srv.Close)

	return srv, remote.URL
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return string(body)
}

func sampleForm() url.Values {
	req := narrator.SampleRequest()

	return url.Values{
		"title":       {req.Title},
		"location":    {req.Location},
		"plant_image": {req.PlantImage.Path},
		"description": {req.Description},
		"tasks":       {req.Tasks},
		"comments":    {req.Comments},
		"language":    {req.Language},
		"voice":       {req.Voice},
	}
}

func TestHome(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, http.StatusOK, nil)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)

	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Generar Narración")
	require.Contains(t, body, "Aaron Dreschner")
	require.Contains(t, body, `<option value="en" selected>`)
}

func TestNarrateForm(t *testing.T) {
	srv, remoteURL := newTestServer(t, http.StatusOK, http.StatusOK, nil)

	resp, err := http.PostForm(srv.URL+"/narrate", sampleForm())
	require.NoError(t, err)

	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `src="`+remoteURL+`/file=out/audio.wav"`)
	require.Contains(t, body, "Hello world")
}

func TestNarrateFormRetrievalError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, http.StatusNotFound, nil)

	resp, err := http.PostForm(srv.URL+"/narrate", sampleForm())
	require.NoError(t, err)

	body := readBody(t, resp)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	require.Contains(t, body, "Error: retrieval failed (404)")
	require.NotContains(t, body, "<audio")
}

func TestNarrateJSON(t *testing.T) {
	srv, remoteURL := newTestServer(t, http.StatusOK, http.StatusOK, nil)

	payload, err := json.Marshal(narrator.SampleRequest())
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/api/narrate", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "abc123", out["event_id"])
	require.Equal(t, remoteURL+"/file=out/audio.wav", out["audio_url"])
	require.Equal(t, "Hello world", out["text"])
	require.NotEmpty(t, out["id"])
}

func TestNarrateJSONSubmitError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusInternalServerError, http.StatusOK, nil)

	payload, err := json.Marshal(narrator.SampleRequest())
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/api/narrate", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "submission failed (500)", out["error"])
}

func TestNarrateJSONBadRequest(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, http.StatusOK, nil)

	for name, payload := range map[string]string{
		"not json":      `{`,
		"unknown field": `{"titel":"x"}`,
		"missing":       `{"title":"x"}`,
	} {
		resp, err := http.Post(srv.URL+"/api/narrate", "application/json", strings.NewReader(payload))
		require.NoError(t, err, name)

		body := readBody(t, resp)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, name)
		require.Contains(t, body, "error", name)
	}
}

func TestPredictJSON(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, http.StatusOK, nil)

	payload, err := json.Marshal(narrator.SampleRequest())
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/api/predict", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)

	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"data":["out/audio.wav","Hello world"]}`, body)
}

func TestHistoryDisabled(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, http.StatusOK, nil)

	resp, err := http.Get(srv.URL + "/history")
	require.NoError(t, err)
	readBody(t, resp)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/history")
	require.NoError(t, err)
	readBody(t, resp)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHistory(t *testing.T) {
	history := &memHistory{}
	srv, _ := newTestServer(t, http.StatusOK, http.StatusOK, history)

	resp, err := http.PostForm(srv.URL+"/narrate", sampleForm())
	require.NoError(t, err)
	readBody(t, resp)
	require.Len(t, history.narrations, 1)

	resp, err = http.Get(srv.URL + "/history")
	require.NoError(t, err)

	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Hello world")

	resp, err = http.Get(srv.URL + "/api/history?limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()

	var narrations []narrator.Narration
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&narrations))
	require.Len(t, narrations, 1)
	require.Equal(t, gradio.EventID("abc123"), narrations[0].EventID)
}

func TestMetrics(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, http.StatusOK, nil)

	resp, err := http.PostForm(srv.URL+"/narrate", sampleForm())
	require.NoError(t, err)
	readBody(t, resp)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)

	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `narrator_generate_total{status="ok"}`)
}

func TestHistoryNavLink(t *testing.T) {
	for name, tc := range map[string]struct {
		history narrator.History
		shown   bool
	}{
		"disabled": {nil, false},
		"enabled":  {&memHistory{}, true},
	} {
		tc := tc

		t.Run(name, func(t *testing.T) {
			srv, _ := newTestServer(t, http.StatusOK, http.StatusOK, tc.history)

			resp, err := http.Get(srv.URL + "/")
			require.NoError(t, err)

			body := readBody(t, resp)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.Equal(t, tc.shown, strings.Contains(body, `href="/history"`))
		})
	}
}
