package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/alphaseeker/internal/reliability"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// BackupHandlers exposes the snapshot backups
type BackupHandlers struct {
	backups BackupManager
	log     zerolog.Logger
}

// NewBackupHandlers creates the backup handlers
func NewBackupHandlers(backups BackupManager, log zerolog.Logger) *BackupHandlers {
	return &BackupHandlers{
		backups: backups,
		log:     log.With().Str("handler", "backups").Logger(),
	}
}

// RegisterRoutes registers the backup routes
func (h *BackupHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/backups", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Post("/restore", h.HandleRestore)
	})
}

// HandleList returns the stored backups, newest first
func (h *BackupHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	backups, err := h.backups.ListBackups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		writeError(h.log, w, http.StatusBadGateway, err.Error())
		return
	}
	if backups == nil {
		backups = []reliability.BackupInfo{}
	}
	writeJSON(h.log, w, http.StatusOK, map[string]interface{}{
		"backups": backups,
		"count":   len(backups),
	})
}

// HandleCreate takes a backup immediately
func (h *BackupHandlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	info, err := h.backups.BackupNow(r.Context())
	if err != nil {
		writeError(h.log, w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(h.log, w, http.StatusCreated, info)
}

type restoreRequest struct {
	Key string `json:"key"`
}

// HandleRestore replaces the portfolio with a stored backup
func (h *BackupHandlers) HandleRestore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		writeError(h.log, w, http.StatusBadRequest, "key is required")
		return
	}

	snapshot, err := h.backups.Restore(r.Context(), req.Key)
	if err != nil {
		if errors.Is(err, reliability.ErrInvalidBackupKey) {
			writeError(h.log, w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("key", req.Key).Msg("Restore failed")
		writeError(h.log, w, http.StatusInternalServerError, err.Error())
		return
	}

	h.log.Info().Str("key", req.Key).Int("holdings", len(snapshot.Ledger.Holdings)).Msg("Portfolio restored from backup")
	writeJSON(h.log, w, http.StatusOK, map[string]interface{}{
		"key":      req.Key,
		"holdings": len(snapshot.Ledger.Holdings),
		"saved_at": snapshot.SavedAt,
	})
}
