// Package handlers provides HTTP handlers for portfolio management.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/aristath/alphaseeker/internal/domain"
	"github.com/aristath/alphaseeker/internal/modules/portfolio"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const maxImportBytes = 1 << 20

// Handler handles portfolio HTTP requests
type Handler struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetHoldings returns every holding with market value and unrealized P&L
func (h *Handler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Holdings())
}

// HandleGetHolding returns one holding
func (h *Handler) HandleGetHolding(w http.ResponseWriter, r *http.Request) {
	holding, err := h.service.Holding(chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, holding)
}

// HandleGetSummary returns the portfolio summary
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Summary())
}

// HandleGetPerformance returns the per-class performance chart rows
func (h *Handler) HandleGetPerformance(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Performance())
}

// HandleBuy adds to or opens a holding
func (h *Handler) HandleBuy(w http.ResponseWriter, r *http.Request) {
	var req portfolio.BuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	holding, err := h.service.Buy(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, holding)
}

type importRequest struct {
	Text string `json:"text"`
}

// HandleImport applies batch CSV text, one holding per line:
// name, asset class, code, unit cost, quantity
// Accepts a JSON body {"text": "..."} or the raw text.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	text := string(body)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req importRequest
		if err := json.Unmarshal(body, &req); err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		text = req.Text
	}

	result, err := h.service.BatchImport(r.Context(), text)
	if errors.Is(err, domain.ErrNothingImported) {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   err.Error(),
			"skipped": result.Skipped,
		})
		return
	}
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandlePreviewSell reports what a sell would do without applying it
func (h *Handler) HandlePreviewSell(w http.ResponseWriter, r *http.Request) {
	var req portfolio.SellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	preview, err := h.service.PreviewSell(req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, preview)
}

// HandleSell applies a sell. Over-sells answer 409 with the preview unless
// allow_oversell is set.
func (h *Handler) HandleSell(w http.ResponseWriter, r *http.Request) {
	var req portfolio.SellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.Sell(r.Context(), req)
	if errors.Is(err, domain.ErrOverSell) {
		h.writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":   err.Error(),
			"preview": result,
		})
		return
	}
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

type amountRequest struct {
	Amount *float64 `json:"amount"`
}

// HandleSetCash overrides the cash balance
func (h *Handler) HandleSetCash(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount == nil {
		h.writeError(w, http.StatusBadRequest, "amount is required")
		return
	}

	if err := h.service.SetCash(r.Context(), *req.Amount); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.service.Summary())
}

// HandleRecordLoss books an out-of-band loss
func (h *Handler) HandleRecordLoss(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount == nil {
		h.writeError(w, http.StatusBadRequest, "amount is required")
		return
	}

	if err := h.service.RecordLoss(r.Context(), *req.Amount); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.service.Summary())
}

// HandleDeleteHolding removes a holding
func (h *Handler) HandleDeleteHolding(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.DeleteHolding(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, removed)
}

// HandleRefreshPrices looks up fresh prices for every holding
func (h *Handler) HandleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RefreshPrices(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Price refresh failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleGetSnapshot exports the full state as JSON or, with ?format=msgpack, as msgpack
func (h *Handler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	format := portfolio.FormatJSON
	if r.URL.Query().Get("format") == string(portfolio.FormatMsgpack) {
		format = portfolio.FormatMsgpack
	}

	data, err := portfolio.EncodeSnapshot(h.service.Snapshot(), format)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	contentType := "application/json"
	if format == portfolio.FormatMsgpack {
		contentType = "application/msgpack"
		w.Header().Set("Content-Disposition", `attachment; filename="portfolio.msgpack"`)
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to write snapshot response")
	}
}

// writeServiceError maps service errors to HTTP statuses
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrHoldingNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case portfolio.IsValidationError(err):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Portfolio operation failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
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
