package api

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"narrator/internal/app/narrator"
	"narrator/pkg/gradio"
	"narrator/pkg/slg"
)

const (
	maxBodySize         = 1 << 20
	defaultHistoryLimit = 50
)

func formFields(req narrator.Request) narrationFields {
	image := req.PlantImage.Path
	if image == "" {
		image = req.PlantImage.URL
	}

	return narrationFields{
		Title:       req.Title,
		Location:    req.Location,
		PlantImage:  image,
		Description: req.Description,
		Tasks:       req.Tasks,
		Comments:    req.Comments,
		Language:    req.Language,
		Voice:       req.Voice,
	}
}

func formContent(req narrator.Request) template.HTML {
	return getHtml("form.html", &narrationForm{
		Request:   formFields(req),
		Languages: narrator.Languages,
	})
}

func (api *API) home(w http.ResponseWriter, r *http.Request) {
	submitPage(w, http.StatusOK, api.createPage(formContent(narrator.SampleRequest())))
}

// narrate is the page trigger: it runs one narration and shows the audio
// and text, or the error in place of the text.
func (api *API) narrate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	if err := r.ParseForm(); err != nil {
		submitPage(w, http.StatusBadRequest, api.createPage(getHtml("result.html", &narrationResult{
			Text:    "Error: invalid form: " + err.Error(),
			IsError: true,
		})))

		return
	}

	req := narrator.Request{
		Title:       r.PostForm.Get("title"),
		Location:    r.PostForm.Get("location"),
		PlantImage:  narrator.FileRef{Path: r.PostForm.Get("plant_image")},
		Description: r.PostForm.Get("description"),
		Tasks:       r.PostForm.Get("tasks"),
		Comments:    r.PostForm.Get("comments"),
		Language:    r.PostForm.Get("language"),
		Voice:       r.PostForm.Get("voice"),
	}

	status := http.StatusOK
	result := &narrationResult{}

	narration, err := api.narrator.Generate(r.Context(), req)
	if err != nil {
		status = errStatus(err)
		result.Text = "Error: " + err.Error()
		result.IsError = true
	} else {
		result.AudioURL = narration.AudioURL
		result.Text = narration.Text
	}

	submitPage(w, status, api.createPage(formContent(req)+getHtml("result.html", result)))
}

type narrateResponse struct {
	ID       string         `json:"id,omitempty"`
	EventID  gradio.EventID `json:"event_id,omitempty"`
	AudioURL string         `json:"audio_url,omitempty"`
	Text     string         `json:"text,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func (api *API) narrateJSON(w http.ResponseWriter, r *http.Request) {
	var req narrator.Request
	if !api.decodeJSON(w, r, &req) {
		return
	}

	narration, err := api.narrator.Generate(r.Context(), req)
	if err != nil {
		writeJSON(w, errStatus(err), &narrateResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, &narrateResponse{
		ID:       narration.ID.String(),
		EventID:  narration.EventID,
		AudioURL: narration.AudioURL,
		Text:     narration.Text,
	})
}

type predictResponse struct {
	Data  []json.RawMessage `json:"data,omitempty"`
	Error string            `json:"error,omitempty"`
}

func (api *API) predictJSON(w http.ResponseWriter, r *http.Request) {
	var req narrator.Request
	if !api.decodeJSON(w, r, &req) {
		return
	}

	out, err := api.narrator.Predict(r.Context(), req)
	if err != nil {
		writeJSON(w, errStatus(err), &predictResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, &predictResponse{Data: out})
}

func (api *API) historyPage(w http.ResponseWriter, r *http.Request) {
	narrations, err := api.narrator.History(r.Context(), historyLimit(r))
	if err != nil {
		status := errStatus(err)
		submitPage(w, status, api.createPage(getHtml("result.html", &narrationResult{
			Text:    "Error: " + err.Error(),
			IsError: true,
		})))

		return
	}

	submitPage(w, http.StatusOK, api.createPage(getHtml("history.html", &historyData{Narrations: narrations})))
}

func (api *API) historyJSON(w http.ResponseWriter, r *http.Request) {
	narrations, err := api.narrator.History(r.Context(), historyLimit(r))
	if err != nil {
		writeJSON(w, errStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if narrations == nil {
		narrations = []*narrator.Narration{}
	}

	writeJSON(w, http.StatusOK, narrations)
}

func historyLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return defaultHistoryLimit
	}

	return limit
}

func (api *API) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		slg.GetSlog(r.Context()).Warn("failed to decode request body", "err", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})

		return false
	}

	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errStatus maps a narration failure to the status the caller sees.
func errStatus(err error) int {
	switch {
	case errors.Is(err, narrator.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, narrator.ErrHistoryDisabled):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
