// Package httpapi exposes the dev server's JSON API over chi.
package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/stackpad/internal/logging"
	"github.com/dmitrijs2005/stackpad/internal/server/services"
)

// Handler bundles the services behind the HTTP endpoints.
type Handler struct {
	users   *services.UserService
	events  *services.EventService
	storage *services.StorageService
	logger  logging.Logger
}

// NewHandler returns a Handler over the given services.
func NewHandler(u *services.UserService, e *services.EventService, s *services.StorageService, logger logging.Logger) *Handler {
	return &Handler{users: u, events: e, storage: s, logger: logger}
}

// Routes builds the API router. Everything under the authenticated group
// requires a valid Bearer access token.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", h.ping)
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/refresh", h.refresh)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware)
			r.Post("/events", h.pushEvents)
			r.Get("/events", h.pullEvents)
			r.Post("/attachments", h.uploadTarget)
			r.Get("/attachments/url", h.downloadURL)
		})
	})

	return r
}
