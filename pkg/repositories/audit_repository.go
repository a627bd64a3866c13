package repositories

import (
	"context"
	"fmt"

	"github.com/sigepol/sigepol-engine/pkg/database"
	"github.com/sigepol/sigepol-engine/pkg/models"
)

// AuditRepository is the append-only operation trail.
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, limit int) ([]*models.AuditLog, error)
}

type auditRepository struct {
	db *database.DB
}

func NewAuditRepository(db *database.DB) AuditRepository {
	return &auditRepository{db: db}
}

var _ AuditRepository = (*auditRepository)(nil)

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	err := r.db.Querier(ctx).QueryRow(ctx, `
		INSERT INTO audit_logs (usuario, accion, descripcion, detalles)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		entry.User, entry.Action, entry.Description, entry.Details,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context, limit int) ([]*models.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Querier(ctx).Query(ctx, `
		SELECT id, usuario, accion, descripcion, detalles, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var out []*models.AuditLog
	for rows.Next() {
		entry := &models.AuditLog{}
		if err := rows.Scan(&entry.ID, &entry.User, &entry.Action, &entry.Description, &entry.Details, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
