package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sigepol/sigepol-engine/pkg/apperrors"
	"github.com/sigepol/sigepol-engine/pkg/models"
	"github.com/sigepol/sigepol-engine/pkg/services"
)

// AlertHandler handles alert HTTP requests.
type AlertHandler struct {
	alertService *services.AlertService
	logger       *zap.Logger
}

func NewAlertHandler(alertService *services.AlertService, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{alertService: alertService, logger: logger}
}

// RegisterRoutes registers the alert handler's routes on the given mux.
func (h *AlertHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/alerts", h.ListAlerts)
	mux.HandleFunc("GET /api/alerts/stats", h.Stats)
	mux.HandleFunc("GET /api/alerts/{id}", h.GetAlert)
	mux.HandleFunc("POST /api/alerts/{id}/read", h.MarkRead)
	mux.HandleFunc("POST /api/alerts/{id}/resolve", h.Resolve)
}

// ListAlerts handles GET /api/alerts.
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	filters := models.AlertFilters{
		Status:   q.Get("estado"),
		Severity: q.Get("severidad"),
		Type:     q.Get("tipo"),
		Limit:    limit,
		Offset:   offset,
	}

	alerts, err := h.alertService.ListAlerts(r.Context(), filters)
	if err != nil {
		h.logger.Error("Failed to list alerts", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "list_alerts_failed", err.Error())
		return
	}
	if alerts == nil {
		alerts = make([]*models.Alert, 0)
	}
	if err := WriteJSON(w, http.StatusOK, alerts); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Stats handles GET /api/alerts/stats.
func (h *AlertHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.alertService.Stats(r.Context())
	if err != nil {
		h.logger.Error("Failed to get alert stats", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "alert_stats_failed", err.Error())
		return
	}
	if err := WriteJSON(w, http.StatusOK, stats); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetAlert handles GET /api/alerts/{id}.
func (h *AlertHandler) GetAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseAlertID(w, r)
	if !ok {
		return
	}
	alert, err := h.alertService.GetAlert(r.Context(), id)
	if err != nil {
		h.handleAlertError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, alert); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// MarkRead handles POST /api/alerts/{id}/read.
func (h *AlertHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseAlertID(w, r)
	if !ok {
		return
	}
	if err := h.alertService.MarkRead(r.Context(), id); err != nil {
		h.handleAlertError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Resolve handles POST /api/alerts/{id}/resolve.
func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseAlertID(w, r)
	if !ok {
		return
	}
	if err := h.alertService.Resolve(r.Context(), id); err != nil {
		h.handleAlertError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AlertHandler) parseAlertID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_alert_id", "alert id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *AlertHandler) handleAlertError(w http.ResponseWriter, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		writeError(w, h.logger, http.StatusNotFound, "alert_not_found", "alert not found")
		return
	}
	h.logger.Error("Alert request failed", zap.Error(err))
	writeError(w, h.logger, http.StatusInternalServerError, "alert_failed", err.Error())
}
