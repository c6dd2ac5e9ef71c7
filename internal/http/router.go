package http

import (
	"context"
	"net/http"

	"clinical-visit-service/internal/app"
	"clinical-visit-service/internal/models"
	"clinical-visit-service/internal/observability"
	"clinical-visit-service/internal/observability/metrics"
	"clinical-visit-service/internal/service/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const defaultMaxAudioBytes = 25 * 1024 * 1024

// Orchestrator runs the provider requests for a visit.
type Orchestrator interface {
	Transcribe(ctx context.Context, visitID string, upload *models.AudioUpload) models.TranscriptionResult
	Extract(ctx context.Context, visitID, transcript string) models.VisitReport
	Provider() string
}

type handlers struct {
	app           *app.Application
	orchestrator  Orchestrator
	sessions      *session.Store
	maxAudioBytes int64
	cookieSecure  bool
}

// NewRouter constructs the HTTP router for the service: the browser shell
// under / and /visits, and the JSON API under /v1.
func NewRouter(application *app.Application, orchestrator Orchestrator, sessions *session.Store) http.Handler {
	h := &handlers{
		app:           application,
		orchestrator:  orchestrator,
		sessions:      sessions,
		maxAudioBytes: defaultMaxAudioBytes,
	}
	if application != nil && application.Cfg != nil {
		if n := application.Cfg.Upload.MaxAudioBytes; n > 0 {
			h.maxAudioBytes = n
		}
		h.cookieSecure = application.Cfg.Session.CookieSecure
	}

	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.HTTPMiddleware(metrics.DefaultMetrics))

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", h.readiness)

	// Browser shell
	r.Get("/", h.page)
	r.Route("/visits", func(r chi.Router) {
		r.Post("/transcribe", h.shellTranscribe)
		r.Post("/report", h.shellReport)
		r.Post("/reset", h.shellReset)
		r.Get("/report.md", h.downloadReport)
	})

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Post("/transcriptions", h.apiTranscribe)
		r.Post("/reports", h.apiReport)
		r.Post("/transcript-lines", h.apiTranscriptLines)
	})

	return r
}

// readiness reports ready once the application has started.
func (h *handlers) readiness(w http.ResponseWriter, _ *http.Request) {
	if h.app != nil && h.app.Ready() != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("starting"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
