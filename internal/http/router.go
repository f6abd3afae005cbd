package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"voxguardian/internal/app"
)

// multipartOverhead is allowed on top of the upload limit for form framing.
const multipartOverhead = 1 << 20

// NewRouter constructs the HTTP router for the service.
func NewRouter(application *app.Application) http.Handler {
	h := &handlers{app: application}

	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(application.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: application.Cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", h.readiness)

	// API routes
	r.Route("/v1", func(r chi.Router) {
		h.mount(r)
	})

	// Unversioned aliases used by the dashboard.
	r.Post("/analyze", h.analyze)
	r.Get("/recent-calls", h.recentCalls)
	r.Get("/audio/{filename}", h.audioFile)

	return r
}

func (h *handlers) mount(r chi.Router) {
	r.Post("/analyze", h.analyze)
	r.Post("/score", h.score)
	r.Post("/classify", h.classify)
	r.Get("/recent-calls", h.recentCalls)
	r.Get("/audio/{filename}", h.audioFile)
}
