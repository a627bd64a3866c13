package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/sigepol/sigepol-engine/pkg/models"
	"github.com/sigepol/sigepol-engine/pkg/services"
)

// FreshnessHandler serves the data freshness ledger.
type FreshnessHandler struct {
	freshnessService *services.FreshnessService
	logger           *zap.Logger
}

func NewFreshnessHandler(freshnessService *services.FreshnessService, logger *zap.Logger) *FreshnessHandler {
	return &FreshnessHandler{freshnessService: freshnessService, logger: logger}
}

// RegisterRoutes registers the freshness handler's routes on the given mux.
func (h *FreshnessHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/freshness/stats", h.Stats)
	mux.HandleFunc("GET /api/freshness/overdue", h.Overdue)
	mux.HandleFunc("GET /api/freshness/{rut}", h.State)
}

// State handles GET /api/freshness/{rut}.
func (h *FreshnessHandler) State(w http.ResponseWriter, r *http.Request) {
	rut := r.PathValue("rut")
	state, err := h.freshnessService.State(r.Context(), rut)
	if err != nil {
		h.logger.Error("Failed to get freshness state", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "freshness_failed", err.Error())
		return
	}
	if state == nil {
		writeError(w, h.logger, http.StatusNotFound, "freshness_not_found", "client has no freshness record")
		return
	}
	if err := WriteJSON(w, http.StatusOK, state); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Overdue handles GET /api/freshness/overdue?dias=30.
func (h *FreshnessHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("dias"))
	overdue, err := h.freshnessService.ClientsOverdue(r.Context(), days)
	if err != nil {
		h.logger.Error("Failed to list overdue clients", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "overdue_failed", err.Error())
		return
	}
	if overdue == nil {
		overdue = make([]*models.DataFreshness, 0)
	}
	if err := WriteJSON(w, http.StatusOK, overdue); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Stats handles GET /api/freshness/stats.
func (h *FreshnessHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.freshnessService.Stats(r.Context())
	if err != nil {
		h.logger.Error("Failed to get freshness stats", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "freshness_stats_failed", err.Error())
		return
	}
	if err := WriteJSON(w, http.StatusOK, stats); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
