package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/medassist-ai/intake-platform/internal/booking"
	httpmiddleware "github.com/medassist-ai/intake-platform/internal/http/middleware"
	"github.com/medassist-ai/intake-platform/internal/media"
	"github.com/medassist-ai/intake-platform/internal/survey"
	"github.com/medassist-ai/intake-platform/internal/tickets"
	"github.com/medassist-ai/intake-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	BookingHandler *booking.Handler
	TicketsHandler *tickets.Handler
	SurveyHandler  *survey.Handler
	MediaHandler   *media.Handler

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	RateLimiter        httpmiddleware.RateLimiter

	// DefaultOrgID is applied when a request carries no X-Org-Id header.
	// Single-tenant deployments set this instead of forcing the header.
	DefaultOrgID string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (health checks, metrics)
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Tenant-scoped API routes
	r.Route("/api", func(api chi.Router) {
		if cfg.RateLimiter != nil {
			api.Use(httpmiddleware.RateLimit(cfg.RateLimiter, cfg.Logger))
		}
		api.Use(resolveOrgID(cfg.DefaultOrgID))

		if cfg.BookingHandler != nil {
			api.Mount("/booking", cfg.BookingHandler.Routes())
		}
		if cfg.TicketsHandler != nil {
			api.Mount("/tickets", cfg.TicketsHandler.Routes())
		}
		if cfg.SurveyHandler != nil {
			api.Mount("/surveys", cfg.SurveyHandler.Routes())
		}
		if cfg.MediaHandler != nil {
			api.Mount("/media", cfg.MediaHandler.Routes())
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
