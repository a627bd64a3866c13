package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sigepol/sigepol-engine/pkg/apperrors"
	"github.com/sigepol/sigepol-engine/pkg/repositories"
	"github.com/sigepol/sigepol-engine/pkg/services/rules"
)

// RuleHandler exposes the rule engine: listing, running all rules, and
// running one by code.
type RuleHandler struct {
	ruleRepo repositories.RuleRepository
	executor *rules.Executor
	logger   *zap.Logger
}

func NewRuleHandler(ruleRepo repositories.RuleRepository, executor *rules.Executor, logger *zap.Logger) *RuleHandler {
	return &RuleHandler{ruleRepo: ruleRepo, executor: executor, logger: logger}
}

// RegisterRoutes registers the rule handler's routes on the given mux.
func (h *RuleHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/rules", h.ListRules)
	mux.HandleFunc("POST /api/rules/run", h.RunAll)
	mux.HandleFunc("POST /api/rules/{code}/run", h.RunOne)
}

// ListRules handles GET /api/rules.
func (h *RuleHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("activas") == "true"
	ruleList, err := h.ruleRepo.ListOrdered(r.Context(), activeOnly)
	if err != nil {
		h.logger.Error("Failed to list rules", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "list_rules_failed", err.Error())
		return
	}
	if err := WriteJSON(w, http.StatusOK, ruleList); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// RunAll handles POST /api/rules/run.
func (h *RuleHandler) RunAll(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("todas") != "true"
	summary, err := h.executor.RunAll(r.Context(), activeOnly)
	if err != nil {
		h.logger.Error("Failed to run rules", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "run_rules_failed", err.Error())
		return
	}
	if err := WriteJSON(w, http.StatusOK, summary); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// RunOne handles POST /api/rules/{code}/run.
func (h *RuleHandler) RunOne(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	outcome, err := h.executor.RunOne(r.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrRuleNotFound):
			writeError(w, h.logger, http.StatusNotFound, "rule_not_found", outcome.Message)
		case errors.Is(err, apperrors.ErrRuleUnregistered):
			writeError(w, h.logger, http.StatusConflict, "rule_unregistered", outcome.Message)
		default:
			h.logger.Error("Failed to run rule", zap.String("codigo", code), zap.Error(err))
			writeError(w, h.logger, http.StatusInternalServerError, "run_rule_failed", err.Error())
		}
		return
	}
	if err := WriteJSON(w, http.StatusOK, outcome); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
