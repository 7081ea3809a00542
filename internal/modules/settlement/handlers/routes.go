package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all settlement routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/settlement", func(r chi.Router) {
		r.Get("/", h.HandleGetSettlement)
		r.Post("/calculate", h.HandleCalculate) // What-if, nothing stored
		r.Get("/config", h.HandleGetConfig)
		r.Put("/config", h.HandleUpdateConfig)
	})
}
