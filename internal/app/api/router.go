package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"narrator/internal/app/narrator"
	"narrator/pkg/slg"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogchi "github.com/samber/slog-chi"
)

type Config struct {
	Port    int           `yaml:"port"`
	Timeout time.Duration `yaml:"timeout"`
}

// Narrator is the narration flow the pages and endpoints trigger.
type Narrator interface {
	Generate(ctx context.Context, req narrator.Request) (*narrator.Narration, error)
	Predict(ctx context.Context, req narrator.Request) ([]json.RawMessage, error)
	History(ctx context.Context, limit int) ([]*narrator.Narration, error)
	HistoryEnabled() bool
}

type API struct {
	logger *slog.Logger

	cfg *Config

	narrator Narrator

	gatherer prometheus.Gatherer
}

func NewAPI(cfg *Config, logger *slog.Logger, service Narrator, gatherer prometheus.Gatherer) *API {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &API{
		cfg:      cfg,
		logger:   logger,
		narrator: service,
		gatherer: gatherer,
	}
}

func (api *API) NewRouter() *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(slogchi.New(api.logger))
	router.Use(api.requestLogger)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))
	router.Use(middleware.StripSlashes)

	router.Use(middleware.Recoverer)

	if api.cfg.Timeout > 0 {
		router.Use(middleware.Timeout(api.cfg.Timeout))
	}

	router.Handle("/metrics", promhttp.HandlerFor(api.gatherer, promhttp.HandlerOpts{}))

	router.Get("/", api.home)
	router.Post("/narrate", api.narrate)
	router.Get("/history", api.historyPage)

	router.Route("/api", func(router chi.Router) {
		router.Post("/narrate", api.narrateJSON)
		router.Post("/predict", api.predictJSON)
		router.Get("/history", api.historyJSON)
	})

	router.Handle("/static/*", http.FileServer(http.FS(staticFS)))

	return router
}

// requestLogger stores a logger tagged with the request id in the request
// context.
func (api *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := api.logger.With("request_id", middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(slg.WithSlog(r.Context(), logger)))
	})
}
