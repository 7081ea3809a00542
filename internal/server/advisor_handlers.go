package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/aristath/alphaseeker/internal/clients/advisor"
	"github.com/aristath/alphaseeker/internal/modules/portfolio"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// AdvisorHandlers serves the generated strategy report
type AdvisorHandlers struct {
	advisor   ReportGenerator
	portfolio *portfolio.Service
	log       zerolog.Logger
}

// NewAdvisorHandlers creates the advisor handlers
func NewAdvisorHandlers(generator ReportGenerator, service *portfolio.Service, log zerolog.Logger) *AdvisorHandlers {
	return &AdvisorHandlers{
		advisor:   generator,
		portfolio: service,
		log:       log.With().Str("handler", "advisor").Logger(),
	}
}

// RegisterRoutes registers the advisor routes
func (h *AdvisorHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/advisor/report", h.HandleReport)
}

type reportRequest struct {
	Objective string `json:"objective"`
	Thesis    string `json:"thesis"`
}

// HandleReport generates a Markdown strategy report for the current portfolio.
// The body is optional and overrides the objective and market thesis.
func (h *AdvisorHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(h.log, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snapshot := h.portfolio.Snapshot()
	report, err := h.advisor.GenerateReport(r.Context(), advisor.Input{
		Summary:   h.portfolio.Summary(),
		Holdings:  snapshot.Ledger.Holdings,
		Strategy:  snapshot.Strategy,
		Objective: req.Objective,
		Thesis:    req.Thesis,
	})
	if err != nil {
		writeError(h.log, w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(h.log, w, http.StatusOK, map[string]interface{}{
		"model":        h.advisor.Model(),
		"report":       report,
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	})
}
