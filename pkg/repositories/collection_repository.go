package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sigepol/sigepol-engine/pkg/database"
	"github.com/sigepol/sigepol-engine/pkg/models"
)

// CollectionRepository provides data access for policy collections.
type CollectionRepository interface {
	Create(ctx context.Context, c *models.Collection) error
	ListByPolicy(ctx context.Context, policyID int64) ([]*models.Collection, error)
	// ListPoliciesNeedingCollection returns active, billable policies that
	// have no open or paid collection yet.
	ListPoliciesNeedingCollection(ctx context.Context) ([]*models.Policy, error)
	// MarkOverdue flips unpaid past-due collections to VENCIDA and refreshes
	// their day counters. Returns the number of rows touched.
	MarkOverdue(ctx context.Context, today time.Time) (int, error)
	CountOpen(ctx context.Context) (int, error)
}

type collectionRepository struct {
	db *database.DB
}

func NewCollectionRepository(db *database.DB) CollectionRepository {
	return &collectionRepository{db: db}
}

var _ CollectionRepository = (*collectionRepository)(nil)

const collectionColumns = `
	co.id, co.poliza_id, p.numero, co.monto_uf, co.fecha_emision, co.fecha_vencimiento,
	co.fecha_pago, co.dias_atraso, co.estado, co.tipo_cobranza, co.fuente_etl,
	co.observaciones, co.created_at, co.updated_at`

func scanCollection(row pgx.Row) (*models.Collection, error) {
	c := &models.Collection{}
	err := row.Scan(
		&c.ID, &c.PolicyID, &c.PolicyNumber, &c.AmountUF, &c.IssueDate, &c.DueDate,
		&c.PaidDate, &c.DaysOverdue, &c.Status, &c.Type, &c.FromETL,
		&c.Notes, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *collectionRepository) Create(ctx context.Context, c *models.Collection) error {
	if c.Status == "" {
		c.Status = models.CollectionStatusPending
	}
	err := r.db.Querier(ctx).QueryRow(ctx, `
		INSERT INTO cobranzas
			(poliza_id, monto_uf, fecha_emision, fecha_vencimiento, estado,
			 tipo_cobranza, fuente_etl, observaciones)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		c.PolicyID, c.AmountUF, c.IssueDate, c.DueDate, c.Status,
		c.Type, c.FromETL, c.Notes,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func (r *collectionRepository) ListByPolicy(ctx context.Context, policyID int64) ([]*models.Collection, error) {
	rows, err := r.db.Querier(ctx).Query(ctx, `
		SELECT `+collectionColumns+`
		FROM cobranzas co
		JOIN polizas p ON p.id = co.poliza_id
		WHERE co.poliza_id = $1
		ORDER BY co.fecha_vencimiento ASC`, policyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	var out []*models.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *collectionRepository) ListPoliciesNeedingCollection(ctx context.Context) ([]*models.Policy, error) {
	rows, err := r.db.Querier(ctx).Query(ctx, `
		SELECT `+policyColumns+`
		FROM polizas p
		JOIN clientes c ON c.id = p.cliente_id
		WHERE p.estado = $1
		  AND p.monto_uf > 0
		  AND NOT EXISTS (
			SELECT 1 FROM cobranzas co
			WHERE co.poliza_id = p.id
			  AND co.estado IN ($2, $3, $4)
		  )
		ORDER BY p.fecha_inicio ASC`,
		models.PolicyStatusActive,
		models.CollectionStatusPending, models.CollectionStatusInProgress, models.CollectionStatusPaid)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies needing collection: %w", err)
	}
	defer rows.Close()
	return collectPolicies(rows)
}

func (r *collectionRepository) MarkOverdue(ctx context.Context, today time.Time) (int, error) {
	tag, err := r.db.Querier(ctx).Exec(ctx, `
		UPDATE cobranzas
		SET estado = $1,
		    dias_atraso = GREATEST(0, (EXTRACT(EPOCH FROM ($2::timestamptz - fecha_vencimiento)) / 86400)::int),
		    updated_at = now()
		WHERE estado IN ($3, $4) AND fecha_vencimiento < $2`,
		models.CollectionStatusOverdue, today,
		models.CollectionStatusPending, models.CollectionStatusInProgress)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue collections: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *collectionRepository) CountOpen(ctx context.Context) (int, error) {
	var n int
	err := r.db.Querier(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM cobranzas
		WHERE estado IN ($1, $2, $3)`,
		models.CollectionStatusPending, models.CollectionStatusInProgress,
		models.CollectionStatusOverdue).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count open collections: %w", err)
	}
	return n, nil
}
