package rules

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/sigepol/sigepol-engine/pkg/apperrors"
	"github.com/sigepol/sigepol-engine/pkg/database"
	"github.com/sigepol/sigepol-engine/pkg/models"
	"github.com/sigepol/sigepol-engine/pkg/repositories"
)

// Executor runs business rules. Each rule executes inside its own
// transaction so one rule's failure never taints the others, and every
// invocation leaves an audit row behind, success or not.
type Executor struct {
	db       *database.DB
	ruleRepo repositories.RuleRepository
	registry *Registry
	logger   *zap.Logger
}

func NewExecutor(db *database.DB, ruleRepo repositories.RuleRepository, registry *Registry, logger *zap.Logger) *Executor {
	return &Executor{
		db:       db,
		ruleRepo: ruleRepo,
		registry: registry,
		logger:   logger.Named("rule_executor"),
	}
}

// Outcome is the per-rule entry of a run summary.
type Outcome struct {
	Status          string         `json:"status"`
	Result          map[string]any `json:"resultado,omitempty"`
	Error           string         `json:"error,omitempty"`
	Message         string         `json:"mensaje,omitempty"`
	DurationSeconds float64        `json:"duracion_segundos,omitempty"`
}

// RunSummary aggregates one executor pass.
type RunSummary struct {
	Executed  int                `json:"ejecutadas"`
	Succeeded int                `json:"exitosas"`
	Failed    int                `json:"fallidas"`
	Rules     map[string]Outcome `json:"reglas"`
}

// RunAll executes every rule in execution order. Rules without a registered
// handler are reported in the summary but do not touch the rule's counters
// or the executed total.
func (e *Executor) RunAll(ctx context.Context, activeOnly bool) (*RunSummary, error) {
	ruleList, err := e.ruleRepo.ListOrdered(ctx, activeOnly)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{Rules: make(map[string]Outcome)}
	for _, rule := range ruleList {
		handler, ok := e.registry.Lookup(rule.Code)
		if !ok {
			summary.Rules[rule.Code] = Outcome{
				Status:  models.ExecutionStatusError,
				Message: fmt.Sprintf("Regla %s no está registrada", rule.Code),
			}
			continue
		}

		outcome := e.execute(ctx, rule, handler)
		summary.Rules[rule.Code] = outcome
		summary.Executed++
		if outcome.Status == models.ExecutionStatusSuccess {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	e.logger.Info("rule pass finished",
		zap.Int("ejecutadas", summary.Executed),
		zap.Int("exitosas", summary.Succeeded),
		zap.Int("fallidas", summary.Failed))
	return summary, nil
}

// RunOne executes a single rule by code, registered handlers only.
func (e *Executor) RunOne(ctx context.Context, code string) (Outcome, error) {
	rule, err := e.ruleRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrRuleNotFound) {
			return Outcome{
				Status:  models.ExecutionStatusError,
				Message: fmt.Sprintf("Regla %s no encontrada", code),
			}, err
		}
		return Outcome{}, err
	}

	handler, ok := e.registry.Lookup(code)
	if !ok {
		return Outcome{
			Status:  models.ExecutionStatusError,
			Message: fmt.Sprintf("Regla %s no está registrada", code),
		}, apperrors.ErrRuleUnregistered
	}

	return e.execute(ctx, rule, handler), nil
}

// execute runs one rule in its own transaction. A handler error rolls back
// the rule's own writes; the failure bookkeeping (counters plus execution
// row) is then written outside the doomed transaction so it always lands.
func (e *Executor) execute(ctx context.Context, rule *models.Rule, handler Handler) Outcome {
	started := time.Now()

	tx, err := e.db.Begin(ctx)
	if err != nil {
		e.logger.Error("failed to begin rule transaction",
			zap.String("codigo", rule.Code), zap.Error(err))
		return e.recordFailure(ctx, rule, started, err)
	}
	txCtx := database.WithTx(ctx, tx)

	result, runErr := runHandler(txCtx, rule, handler)
	if runErr != nil {
		_ = tx.Rollback(ctx)
		return e.recordFailure(ctx, rule, started, runErr)
	}

	finished := time.Now()
	duration := finished.Sub(started).Seconds()
	nextRun := finished.AddDate(0, 0, 1)

	if err := e.ruleRepo.RecordSuccess(txCtx, rule, result, finished, nextRun); err != nil {
		_ = tx.Rollback(ctx)
		return e.recordFailure(ctx, rule, started, err)
	}
	exec := &models.RuleExecution{
		RuleID:          rule.ID,
		StartedAt:       started,
		FinishedAt:      &finished,
		DurationSeconds: &duration,
		Status:          models.ExecutionStatusSuccess,
		Result:          result,
		ParametersUsed:  rule.Parameters,
	}
	if err := e.ruleRepo.CreateExecution(txCtx, exec); err != nil {
		_ = tx.Rollback(ctx)
		return e.recordFailure(ctx, rule, started, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return e.recordFailure(ctx, rule, started, err)
	}

	e.logger.Info("rule executed",
		zap.String("codigo", rule.Code),
		zap.Float64("duracion_segundos", duration))
	return Outcome{
		Status:          models.ExecutionStatusSuccess,
		Result:          result,
		DurationSeconds: duration,
	}
}

// panicError wraps a recovered handler panic together with the stack at the
// moment of recovery, so the execution row can store the full traceback.
type panicError struct {
	code  string
	value any
	stack []byte
}

func (p *panicError) Error() string {
	return fmt.Sprintf("rule %s panicked: %v", p.code, p.value)
}

// runHandler converts a handler panic into an error so a buggy rule cannot
// take down the whole pass.
func runHandler(ctx context.Context, rule *models.Rule, handler Handler) (result map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{code: rule.Code, value: r, stack: debug.Stack()}
		}
	}()
	return handler(ctx, rule)
}

func (e *Executor) recordFailure(ctx context.Context, rule *models.Rule, started time.Time, runErr error) Outcome {
	finished := time.Now()
	duration := finished.Sub(started).Seconds()
	errMsg := runErr.Error()

	traceback := fmt.Sprintf("%+v", runErr)
	var pe *panicError
	if errors.As(runErr, &pe) {
		traceback = string(pe.stack)
	}

	e.logger.Warn("rule failed",
		zap.String("codigo", rule.Code), zap.Error(runErr))

	if err := e.ruleRepo.RecordFailure(ctx, rule, errMsg, finished); err != nil {
		e.logger.Error("failed to record rule failure",
			zap.String("codigo", rule.Code), zap.Error(err))
	}
	exec := &models.RuleExecution{
		RuleID:          rule.ID,
		StartedAt:       started,
		FinishedAt:      &finished,
		DurationSeconds: &duration,
		Status:          models.ExecutionStatusError,
		ErrorMessage:    errMsg,
		ErrorTraceback:  traceback,
		ParametersUsed:  rule.Parameters,
	}
	if err := e.ruleRepo.CreateExecution(ctx, exec); err != nil {
		e.logger.Error("failed to record rule execution",
			zap.String("codigo", rule.Code), zap.Error(err))
	}

	return Outcome{
		Status: models.ExecutionStatusError,
		Error:  errMsg,
	}
}
