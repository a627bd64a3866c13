package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sigepol/sigepol-engine/pkg/apperrors"
	"github.com/sigepol/sigepol-engine/pkg/database"
	"github.com/sigepol/sigepol-engine/pkg/models"
)

// RuleRepository provides data access for business rules and their
// execution audit trail.
type RuleRepository interface {
	ListOrdered(ctx context.Context, activeOnly bool) ([]*models.Rule, error)
	GetByCode(ctx context.Context, code string) (*models.Rule, error)
	// Seed inserts a rule definition if its code is not yet present. It
	// never overwrites operator edits to an existing rule.
	Seed(ctx context.Context, rule *models.Rule) (bool, error)
	RecordSuccess(ctx context.Context, rule *models.Rule, result map[string]any, executedAt, nextRun time.Time) error
	RecordFailure(ctx context.Context, rule *models.Rule, errMsg string, executedAt time.Time) error
	SetActive(ctx context.Context, code string, active bool) error

	CreateExecution(ctx context.Context, exec *models.RuleExecution) error
	ListExecutions(ctx context.Context, ruleID int64, limit int) ([]*models.RuleExecution, error)
}

type ruleRepository struct {
	db *database.DB
}

func NewRuleRepository(db *database.DB) RuleRepository {
	return &ruleRepository{db: db}
}

var _ RuleRepository = (*ruleRepository)(nil)

const ruleColumns = `
	id, nombre, descripcion, tipo, codigo, activa, orden_ejecucion, parametros,
	creada_en, modificada_en, ultima_ejecucion, proxima_ejecucion,
	ultimo_resultado, ultimo_error, total_ejecuciones,
	ejecuciones_exitosas, ejecuciones_fallidas`

func scanRule(row pgx.Row) (*models.Rule, error) {
	rule := &models.Rule{}
	err := row.Scan(
		&rule.ID, &rule.Name, &rule.Description, &rule.Type, &rule.Code,
		&rule.Active, &rule.ExecutionOrder, &rule.Parameters,
		&rule.CreatedAt, &rule.ModifiedAt, &rule.LastExecution, &rule.NextExecution,
		&rule.LastResult, &rule.LastError, &rule.TotalExecutions,
		&rule.SuccessfulRuns, &rule.FailedRuns,
	)
	if err != nil {
		return nil, err
	}
	return rule, nil
}

func (r *ruleRepository) ListOrdered(ctx context.Context, activeOnly bool) ([]*models.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM reglas`
	if activeOnly {
		query += ` WHERE activa`
	}
	query += ` ORDER BY orden_ejecucion ASC, id ASC`

	rows, err := r.db.Querier(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var out []*models.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *ruleRepository) GetByCode(ctx context.Context, code string) (*models.Rule, error) {
	row := r.db.Querier(ctx).QueryRow(ctx, `
		SELECT `+ruleColumns+`
		FROM reglas
		WHERE codigo = $1`, code)

	rule, err := scanRule(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrRuleNotFound
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

func (r *ruleRepository) Seed(ctx context.Context, rule *models.Rule) (bool, error) {
	tag, err := r.db.Querier(ctx).Exec(ctx, `
		INSERT INTO reglas (nombre, descripcion, tipo, codigo, activa, orden_ejecucion, parametros)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (codigo) DO NOTHING`,
		rule.Name, rule.Description, rule.Type, rule.Code, rule.Active,
		rule.ExecutionOrder, rule.Parameters)
	if err != nil {
		return false, fmt.Errorf("failed to seed rule: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ruleRepository) RecordSuccess(ctx context.Context, rule *models.Rule, result map[string]any, executedAt, nextRun time.Time) error {
	_, err := r.db.Querier(ctx).Exec(ctx, `
		UPDATE reglas
		SET ultima_ejecucion     = $1,
		    proxima_ejecucion    = $2,
		    ultimo_resultado     = $3,
		    ultimo_error         = NULL,
		    total_ejecuciones    = total_ejecuciones + 1,
		    ejecuciones_exitosas = ejecuciones_exitosas + 1,
		    modificada_en        = now()
		WHERE id = $4`,
		executedAt, nextRun, result, rule.ID)
	if err != nil {
		return fmt.Errorf("failed to record rule success: %w", err)
	}
	rule.LastExecution = &executedAt
	rule.NextExecution = &nextRun
	rule.LastResult = result
	rule.LastError = nil
	rule.TotalExecutions++
	rule.SuccessfulRuns++
	return nil
}

func (r *ruleRepository) RecordFailure(ctx context.Context, rule *models.Rule, errMsg string, executedAt time.Time) error {
	_, err := r.db.Querier(ctx).Exec(ctx, `
		UPDATE reglas
		SET ultima_ejecucion     = $1,
		    ultimo_error         = $2,
		    total_ejecuciones    = total_ejecuciones + 1,
		    ejecuciones_fallidas = ejecuciones_fallidas + 1,
		    modificada_en        = now()
		WHERE id = $3`,
		executedAt, errMsg, rule.ID)
	if err != nil {
		return fmt.Errorf("failed to record rule failure: %w", err)
	}
	rule.LastExecution = &executedAt
	rule.LastError = &errMsg
	rule.TotalExecutions++
	rule.FailedRuns++
	return nil
}

func (r *ruleRepository) SetActive(ctx context.Context, code string, active bool) error {
	tag, err := r.db.Querier(ctx).Exec(ctx, `
		UPDATE reglas
		SET activa = $1, modificada_en = now()
		WHERE codigo = $2`, active, code)
	if err != nil {
		return fmt.Errorf("failed to set rule active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrRuleNotFound
	}
	return nil
}

func (r *ruleRepository) CreateExecution(ctx context.Context, exec *models.RuleExecution) error {
	if exec.Status == "" {
		exec.Status = models.ExecutionStatusPending
	}
	err := r.db.Querier(ctx).QueryRow(ctx, `
		INSERT INTO reglas_ejecuciones
			(regla_id, inicio, fin, duracion_segundos, estado, resultado,
			 error_mensaje, error_traceback, parametros_utilizados)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		exec.RuleID, exec.StartedAt, exec.FinishedAt, exec.DurationSeconds, exec.Status,
		exec.Result, exec.ErrorMessage, exec.ErrorTraceback, exec.ParametersUsed,
	).Scan(&exec.ID)
	if err != nil {
		return fmt.Errorf("failed to create rule execution: %w", err)
	}
	return nil
}

func (r *ruleRepository) ListExecutions(ctx context.Context, ruleID int64, limit int) ([]*models.RuleExecution, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Querier(ctx).Query(ctx, `
		SELECT id, regla_id, inicio, fin, duracion_segundos, estado, resultado,
		       error_mensaje, error_traceback, parametros_utilizados
		FROM reglas_ejecuciones
		WHERE regla_id = $1
		ORDER BY inicio DESC
		LIMIT $2`, ruleID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list rule executions: %w", err)
	}
	defer rows.Close()

	var out []*models.RuleExecution
	for rows.Next() {
		exec := &models.RuleExecution{}
		err := rows.Scan(
			&exec.ID, &exec.RuleID, &exec.StartedAt, &exec.FinishedAt,
			&exec.DurationSeconds, &exec.Status, &exec.Result,
			&exec.ErrorMessage, &exec.ErrorTraceback, &exec.ParametersUsed)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule execution: %w", err)
		}
		out = append(out, exec)
	}
	return out, rows.Err()
}
