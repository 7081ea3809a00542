// Package handlers provides HTTP handlers for the allocation comparator and target strategy.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aristath/alphaseeker/internal/domain"
	"github.com/aristath/alphaseeker/internal/modules/portfolio"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles allocation HTTP requests
type Handler struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new allocation handler
func NewHandler(service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "allocation").Logger(),
	}
}

// RegisterRoutes registers all allocation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/allocation", func(r chi.Router) {
		r.Get("/", h.HandleGetReport) // Deviation rows plus investable cash
		r.Get("/strategy", h.HandleGetStrategy)
		r.Put("/strategy", h.HandleUpdateStrategy)
	})
}

// HandleGetReport returns the deviation report against the target strategy
func (h *Handler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Allocation())
}

// HandleGetStrategy returns the target strategy
func (h *Handler) HandleGetStrategy(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Strategy())
}

// HandleUpdateStrategy replaces the target strategy. Classes missing from the
// request target zero.
func (h *Handler) HandleUpdateStrategy(w http.ResponseWriter, r *http.Request) {
	var strategy domain.TargetStrategy
	if err := json.NewDecoder(r.Body).Decode(&strategy); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strategy.Allocations == nil {
		h.writeError(w, http.StatusBadRequest, "allocations are required")
		return
	}

	if err := h.service.UpdateStrategy(r.Context(), strategy); err != nil {
		if portfolio.IsValidationError(err) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Failed to update strategy")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.log.Info().Float64("max_deviation", strategy.MaxDeviation).Msg("Target strategy updated")
	h.writeJSON(w, http.StatusOK, h.service.Allocation())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
