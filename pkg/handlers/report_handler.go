package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/sigepol/sigepol-engine/pkg/services"
)

// ReportHandler serves the policy reports.
type ReportHandler struct {
	reportService *services.ReportService
	logger        *zap.Logger
}

func NewReportHandler(reportService *services.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reportService: reportService, logger: logger}
}

// RegisterRoutes registers the report handler's routes on the given mux.
func (h *ReportHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/reports/expired", h.Expired)
	mux.HandleFunc("GET /api/reports/expiring", h.Expiring)
	mux.HandleFunc("GET /api/reports/top-clients", h.TopClients)
}

// Expired handles GET /api/reports/expired.
func (h *ReportHandler) Expired(w http.ResponseWriter, r *http.Request) {
	report, err := h.reportService.ExpiredPolicies(r.Context())
	if err != nil {
		h.logger.Error("Failed to build expired report", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "expired_report_failed", err.Error())
		return
	}
	if err := WriteJSON(w, http.StatusOK, report); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Expiring handles GET /api/reports/expiring?dias=30.
func (h *ReportHandler) Expiring(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("dias"))
	report, err := h.reportService.ExpiringPolicies(r.Context(), days)
	if err != nil {
		h.logger.Error("Failed to build expiring report", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "expiring_report_failed", err.Error())
		return
	}
	if err := WriteJSON(w, http.StatusOK, report); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// TopClients handles GET /api/reports/top-clients.
func (h *ReportHandler) TopClients(w http.ResponseWriter, r *http.Request) {
	report, err := h.reportService.TopClients(r.Context())
	if err != nil {
		h.logger.Error("Failed to build top clients report", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "top_clients_failed", err.Error())
		return
	}
	if err := WriteJSON(w, http.StatusOK, report); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
