package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/", h.HandleGetHoldings)       // Holdings with derived figures
		r.Get("/summary", h.HandleGetSummary) // Totals, allocation and per-class details
		r.Get("/performance", h.HandleGetPerformance)
		r.Get("/snapshot", h.HandleGetSnapshot) // Full state export

		r.Post("/buy", h.HandleBuy)
		r.Post("/import", h.HandleImport)
		r.Post("/sell/preview", h.HandlePreviewSell)
		r.Post("/sell", h.HandleSell)
		r.Put("/cash", h.HandleSetCash)
		r.Post("/loss", h.HandleRecordLoss)
		r.Post("/refresh", h.HandleRefreshPrices)

		r.Get("/holdings/{id}", h.HandleGetHolding)
		r.Delete("/holdings/{id}", h.HandleDeleteHolding)
	})
}
