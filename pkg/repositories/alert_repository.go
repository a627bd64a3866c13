package repositories

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sigepol/sigepol-engine/pkg/apperrors"
	"github.com/sigepol/sigepol-engine/pkg/database"
	"github.com/sigepol/sigepol-engine/pkg/models"
)

// AlertRepository provides data access for alerts and their history mirror.
type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Alert, error)
	// FindActiveByTypeAndPolicy looks for a PENDIENTE or LEIDA alert of the
	// given type bound to the given policy. Used for deduplication.
	FindActiveByTypeAndPolicy(ctx context.Context, alertType string, policyID int64) (*models.Alert, error)
	List(ctx context.Context, filters models.AlertFilters) ([]*models.Alert, error)
	MarkRead(ctx context.Context, id uuid.UUID, now time.Time) error
	Resolve(ctx context.Context, id uuid.UUID, now time.Time) error
	Stats(ctx context.Context, now time.Time) (*models.AlertStats, error)

	CreateHistory(ctx context.Context, h *models.AlertHistory) error
	SetHistoryState(ctx context.Context, alertID uuid.UUID, state string, resolvedAt *time.Time) error
}

type alertRepository struct {
	db *database.DB
}

func NewAlertRepository(db *database.DB) AlertRepository {
	return &alertRepository{db: db}
}

var _ AlertRepository = (*alertRepository)(nil)

const alertColumns = `
	id, tipo, severidad, titulo, mensaje, estado, confiable, razon_no_confiable,
	poliza_id, cliente_id, creada_por, fecha_creacion, fecha_lectura,
	fecha_resolucion, fecha_limite, metadata`

func scanAlert(row pgx.Row) (*models.Alert, error) {
	a := &models.Alert{}
	err := row.Scan(
		&a.ID, &a.Type, &a.Severity, &a.Title, &a.Message, &a.Status,
		&a.Confident, &a.UnreliableReason,
		&a.PolicyID, &a.ClientID, &a.CreatedBy, &a.CreatedAt, &a.ReadAt,
		&a.ResolvedAt, &a.Deadline, &a.Metadata,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *alertRepository) Create(ctx context.Context, alert *models.Alert) error {
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	if alert.Status == "" {
		alert.Status = models.AlertStatusPending
	}
	err := r.db.Querier(ctx).QueryRow(ctx, `
		INSERT INTO alertas
			(id, tipo, severidad, titulo, mensaje, estado, confiable, razon_no_confiable,
			 poliza_id, cliente_id, creada_por, fecha_limite, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING fecha_creacion`,
		alert.ID, alert.Type, alert.Severity, alert.Title, alert.Message, alert.Status,
		alert.Confident, alert.UnreliableReason,
		alert.PolicyID, alert.ClientID, alert.CreatedBy, alert.Deadline, alert.Metadata,
	).Scan(&alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

func (r *alertRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	row := r.db.Querier(ctx).QueryRow(ctx, `
		SELECT `+alertColumns+`
		FROM alertas
		WHERE id = $1`, id)

	a, err := scanAlert(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return a, nil
}

func (r *alertRepository) FindActiveByTypeAndPolicy(ctx context.Context, alertType string, policyID int64) (*models.Alert, error) {
	row := r.db.Querier(ctx).QueryRow(ctx, `
		SELECT `+alertColumns+`
		FROM alertas
		WHERE tipo = $1 AND poliza_id = $2 AND estado IN ($3, $4)
		ORDER BY fecha_creacion DESC
		LIMIT 1`,
		alertType, policyID, models.AlertStatusPending, models.AlertStatusRead)

	a, err := scanAlert(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active alert: %w", err)
	}
	return a, nil
}

func (r *alertRepository) List(ctx context.Context, filters models.AlertFilters) ([]*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alertas`

	var conds []string
	var args []any
	addCond := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conds = append(conds, column+" = $"+strconv.Itoa(len(args)))
	}
	addCond("estado", filters.Status)
	addCond("severidad", filters.Severity)
	addCond("tipo", filters.Type)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += " ORDER BY fecha_creacion DESC LIMIT $" + strconv.Itoa(len(args))
	args = append(args, filters.Offset)
	query += " OFFSET $" + strconv.Itoa(len(args))

	rows, err := r.db.Querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var out []*models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *alertRepository) MarkRead(ctx context.Context, id uuid.UUID, now time.Time) error {
	tag, err := r.db.Querier(ctx).Exec(ctx, `
		UPDATE alertas
		SET estado = $1, fecha_lectura = $2
		WHERE id = $3 AND estado = $4`,
		models.AlertStatusRead, now, id, models.AlertStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark alert read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *alertRepository) Resolve(ctx context.Context, id uuid.UUID, now time.Time) error {
	tag, err := r.db.Querier(ctx).Exec(ctx, `
		UPDATE alertas
		SET estado = $1, fecha_resolucion = $2
		WHERE id = $3 AND estado IN ($4, $5)`,
		models.AlertStatusResolved, now, id, models.AlertStatusPending, models.AlertStatusRead)
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *alertRepository) Stats(ctx context.Context, now time.Time) (*models.AlertStats, error) {
	stats := &models.AlertStats{}
	err := r.db.Querier(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE estado = $1),
		       COUNT(*) FILTER (WHERE estado = $2),
		       COUNT(*) FILTER (WHERE estado = $3),
		       COUNT(*) FILTER (WHERE severidad = $4 AND estado IN ($1, $2)),
		       COUNT(*) FILTER (WHERE estado = $1 AND fecha_limite IS NOT NULL AND fecha_limite < $5)
		FROM alertas`,
		models.AlertStatusPending, models.AlertStatusRead, models.AlertStatusResolved,
		models.AlertSeverityCritical, now).Scan(
		&stats.Total, &stats.Pending, &stats.Read, &stats.Resolved, &stats.Critical, &stats.Overdue)
	if err != nil {
		return nil, fmt.Errorf("failed to get alert stats: %w", err)
	}
	return stats, nil
}

func (r *alertRepository) CreateHistory(ctx context.Context, h *models.AlertHistory) error {
	if h.FinalState == "" {
		h.FinalState = models.HistoryStateNew
	}
	err := r.db.Querier(ctx).QueryRow(ctx, `
		INSERT INTO alertas_historial
			(alerta_id, tipo, severidad, titulo, mensaje, cliente_id, poliza_id,
			 estado_final, resuelta_en, resuelta_por, notas, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, creada_en`,
		h.AlertID, h.Type, h.Severity, h.Title, h.Message, h.ClientID, h.PolicyID,
		h.FinalState, h.ResolvedAt, h.ResolvedBy, h.Notes, h.Metadata,
	).Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create alert history: %w", err)
	}
	return nil
}

func (r *alertRepository) SetHistoryState(ctx context.Context, alertID uuid.UUID, state string, resolvedAt *time.Time) error {
	_, err := r.db.Querier(ctx).Exec(ctx, `
		UPDATE alertas_historial
		SET estado_final = $1, resuelta_en = $2
		WHERE alerta_id = $3`,
		state, resolvedAt, alertID)
	if err != nil {
		return fmt.Errorf("failed to update alert history state: %w", err)
	}
	return nil
}
