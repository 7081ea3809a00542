// Package handlers provides HTTP handlers for the settlement calculator.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aristath/alphaseeker/internal/domain"
	"github.com/aristath/alphaseeker/internal/modules/portfolio"
	"github.com/aristath/alphaseeker/internal/modules/settlement"
	"github.com/rs/zerolog"
)

// Handler handles settlement HTTP requests
type Handler struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new settlement handler
func NewHandler(service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "settlement").Logger(),
	}
}

// HandleGetSettlement evaluates the stored config against the live portfolio
func (h *Handler) HandleGetSettlement(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Settlement())
}

// calculateRequest carries an ad-hoc config. When TotalCost is set the formula runs
// against that hypothetical cost and return instead of the live portfolio.
type calculateRequest struct {
	Config      *domain.SettlementConfig `json:"config"`
	TotalCost   *float64                 `json:"total_cost"`
	TotalReturn float64                  `json:"total_return"`
}

// HandleCalculate evaluates an ad-hoc config without storing it
func (h *Handler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cfg := h.service.SettlementConfig()
	if req.Config != nil {
		cfg = *req.Config
	}
	if err := domain.ValidateSettlementConfig(cfg); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.TotalCost != nil {
		if *req.TotalCost < 0 {
			h.writeError(w, http.StatusBadRequest, "total_cost must not be negative")
			return
		}
		h.writeJSON(w, http.StatusOK, settlement.Scenario(*req.TotalCost, req.TotalReturn, cfg))
		return
	}

	result, err := h.service.SettlementWith(cfg)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleGetConfig returns the stored settlement config
func (h *Handler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.SettlementConfig())
}

// HandleUpdateConfig validates and stores a settlement config
func (h *Handler) HandleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg domain.SettlementConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.UpdateSettlementConfig(r.Context(), cfg); err != nil {
		if portfolio.IsValidationError(err) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Failed to update settlement config")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, h.service.Settlement())
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
