package api

import (
	"embed"
	"html/template"
	"net/http"
	"strings"

	"narrator/internal/app/narrator"

	"github.com/jritsema/gotoolbox/web"
)

var (
	//go:embed all:static/*
	staticFS embed.FS

	//go:embed all:templates/*
	templateFS embed.FS

	//parsed templates
	html *template.Template
)

func init() {
	var err error
	html, err = web.TemplateParseFSRecursive(templateFS, ".html", true, nil)
	if err != nil {
		panic(err)
	}
}

func getString(templateName string, data any) string {
	sb := &strings.Builder{}
	err := html.ExecuteTemplate(sb, templateName, data)
	if err != nil {
		return err.Error()
	}

	return sb.String()
}

func getHtml(templateName string, data any) template.HTML {
	return template.HTML(getString(templateName, data))
}

type page struct {
	Title       string
	ShowHistory bool
	Content     template.HTML
}

func (api *API) createPage(content template.HTML) *page {
	return &page{
		Title:       "Narrador de Plantas",
		ShowHistory: api.narrator.HistoryEnabled(),
		Content:     content,
	}
}

func submitPage(w http.ResponseWriter, status int, page *page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = html.ExecuteTemplate(w, "page.html", page)
}

type narrationForm struct {
	Request   narrationFields
	Languages []string
}

// narrationFields mirrors the request with the image flattened into a single
// input.
type narrationFields struct {
	Title       string
	Location    string
	PlantImage  string
	Description string
	Tasks       string
	Comments    string
	Language    string
	Voice       string
}

type narrationResult struct {
	AudioURL string
	Text     string
	IsError  bool
}

type historyData struct {
	Narrations []*narrator.Narration
}
