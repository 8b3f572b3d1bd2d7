package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pbel78/scratch2/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health and metrics (no auth required for basic monitoring)
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.With(s.require(auth.PermSessionRead)).Get("/vocabulary", s.handleVocabulary)

			r.Route("/session", func(r chi.Router) {
				r.With(s.require(auth.PermSessionRead)).Get("/", s.handleGetSession)
				r.With(s.require(auth.PermSessionManage)).Post("/connect", s.handleConnect)
				r.With(s.require(auth.PermSessionManage)).Post("/disconnect", s.handleDisconnect)
			})

			r.Route("/lamps/{id}", func(r chi.Router) {
				r.Use(s.require(auth.PermLampOperate))
				r.Post("/on", s.handlePowerOn)
				r.Post("/off", s.handlePowerOff)
				r.Post("/brightness", s.handleBrightness)
				r.Post("/color", s.handleColor)
			})

			r.Route("/mqtt", func(r chi.Router) {
				r.Use(s.require(auth.PermRelayPublish))
				r.Post("/publish", s.handlePublish)
				r.Post("/subscribe", s.handleSubscribe)
			})

			r.With(s.require(auth.PermHistoryRead)).Get("/commands", s.handleListCommands)

			r.With(s.require(auth.PermEventsSubscribe)).Get("/ws", s.handleWebSocket)
		})
	})

	if s.panel != nil {
		r.Handle("/*", s.panel)
	}

	return r
}
