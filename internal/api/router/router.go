package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tvamit/aya-helthcare-demo/internal/http/handlers"
	httpmiddleware "github.com/tvamit/aya-helthcare-demo/internal/http/middleware"
	"github.com/tvamit/aya-helthcare-demo/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	AI                 *handlers.AIHandler
	ChatSocket         *handlers.ChatSocket
	Admin              *handlers.AdminHandler
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	// RateLimiter throttles the /ai endpoints per client IP when set.
	RateLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Get("/health", handlers.Liveness)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.AI != nil {
		r.Route("/ai", func(ai chi.Router) {
			ai.Get("/health", cfg.AI.Health)
			ai.Post("/health", cfg.AI.Health)
			ai.Group(func(limited chi.Router) {
				if cfg.RateLimiter != nil {
					limited.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
				}
				limited.Post("/text-query", cfg.AI.TextQuery)
				limited.Post("/voice-query", cfg.AI.VoiceQuery)
				limited.Post("/reset-session", cfg.AI.ResetSession)
				limited.Get("/session/{id}/language", cfg.AI.SessionLanguage)
				if cfg.ChatSocket != nil {
					limited.Get("/ws", cfg.ChatSocket.ServeHTTP)
				}
			})
		})
	}

	// Admin routes are only mounted when a signing secret is configured.
	if cfg.Admin != nil && cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			cfg.Admin.Routes(admin)
		})
	}

	return r
}
