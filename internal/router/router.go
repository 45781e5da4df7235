package router

import (
	"shelfsync-api/internal/handler"
	"shelfsync-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	WebhookHandler *handler.WebhookHandler
	QueueHandler   *handler.QueueHandler
	AdminHandler   *handler.AdminHandler
	TriggerKey     string
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Trigger-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// PUBLIC routes
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Health check endpoints
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		// Webhook ingress. Always open: the hardware platform cannot
		// send custom headers, and the body is validated by the ingestor.
		if cfg.WebhookHandler != nil {
			r.Post("/webhook/button", cfg.WebhookHandler.HandleButtonEvent)
			r.Get("/webhook/button", cfg.WebhookHandler.Describe)
		}

		// Trigger-key protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.TriggerKey(cfg.TriggerKey))

			if cfg.QueueHandler != nil {
				r.Post("/queue/process", cfg.QueueHandler.Process)
				r.Post("/sync", cfg.QueueHandler.Sync)
			}

			if cfg.AdminHandler != nil {
				r.Get("/admin/stats", cfg.AdminHandler.GetStats)
			}
		})
	})

	return r
}
