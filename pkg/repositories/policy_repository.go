package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sigepol/sigepol-engine/pkg/database"
	"github.com/sigepol/sigepol-engine/pkg/models"
)

// PolicyRepository provides data access for policies and the aggregate
// queries the rule engine and reports run against them.
type PolicyRepository interface {
	GetByNumber(ctx context.Context, number string) (*models.Policy, error)
	// Upsert inserts a policy or updates the existing row with the same
	// number. The bool reports whether a new row was created.
	Upsert(ctx context.Context, policy *models.Policy) (bool, error)

	Count(ctx context.Context) (int, error)
	CountStartedBetween(ctx context.Context, from, to time.Time) (int, error)

	ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.Policy, error)
	ListExpiredOpen(ctx context.Context, before time.Time) ([]*models.Policy, error)
	MarkExpired(ctx context.Context, before time.Time) (int, error)

	ProductionByClient(ctx context.Context, minTotalUF float64, limit int) ([]models.ClientProduction, error)
	RenewalsSince(ctx context.Context, since time.Time, minPolicies int) ([]models.ClientRenewals, error)

	CountZeroAmount(ctx context.Context) (int, error)
	CountInconsistentExpired(ctx context.Context, today time.Time) (int, error)
}

type policyRepository struct {
	db *database.DB
}

func NewPolicyRepository(db *database.DB) PolicyRepository {
	return &policyRepository{db: db}
}

var _ PolicyRepository = (*policyRepository)(nil)

const policyColumns = `
	p.id, p.numero, p.cliente_id, c.rut, c.nombre,
	p.fecha_inicio, p.fecha_vencimiento, p.monto_uf, p.estado, p.cluster,
	p.created_at, p.updated_at`

func scanPolicy(row pgx.Row) (*models.Policy, error) {
	p := &models.Policy{}
	err := row.Scan(
		&p.ID, &p.Number, &p.ClientID, &p.ClientRUT, &p.ClientName,
		&p.StartDate, &p.EndDate, &p.AmountUF, &p.Status, &p.Cluster,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *policyRepository) GetByNumber(ctx context.Context, number string) (*models.Policy, error) {
	row := r.db.Querier(ctx).QueryRow(ctx, `
		SELECT `+policyColumns+`
		FROM polizas p
		JOIN clientes c ON c.id = p.cliente_id
		WHERE p.numero = $1`, number)

	p, err := scanPolicy(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	return p, nil
}

func (r *policyRepository) Upsert(ctx context.Context, policy *models.Policy) (bool, error) {
	row := r.db.Querier(ctx).QueryRow(ctx, `
		INSERT INTO polizas (numero, cliente_id, fecha_inicio, fecha_vencimiento, monto_uf, estado)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (numero) DO UPDATE SET
			cliente_id        = EXCLUDED.cliente_id,
			fecha_inicio      = EXCLUDED.fecha_inicio,
			fecha_vencimiento = EXCLUDED.fecha_vencimiento,
			monto_uf          = EXCLUDED.monto_uf,
			estado            = EXCLUDED.estado,
			updated_at        = now()
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted`,
		policy.Number, policy.ClientID, policy.StartDate, policy.EndDate, policy.AmountUF, policy.Status)

	var inserted bool
	if err := row.Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt, &inserted); err != nil {
		return false, fmt.Errorf("failed to upsert policy: %w", err)
	}
	return inserted, nil
}

func (r *policyRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Querier(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM polizas`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count policies: %w", err)
	}
	return n, nil
}

func (r *policyRepository) CountStartedBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := r.db.Querier(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM polizas
		WHERE fecha_inicio >= $1 AND fecha_inicio <= $2`, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count policies by start date: %w", err)
	}
	return n, nil
}

func (r *policyRepository) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.Policy, error) {
	rows, err := r.db.Querier(ctx).Query(ctx, `
		SELECT `+policyColumns+`
		FROM polizas p
		JOIN clientes c ON c.id = p.cliente_id
		WHERE p.estado = $1
		  AND p.fecha_vencimiento >= $2
		  AND p.fecha_vencimiento <= $3
		ORDER BY p.fecha_vencimiento ASC`,
		models.PolicyStatusActive, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring policies: %w", err)
	}
	defer rows.Close()
	return collectPolicies(rows)
}

func (r *policyRepository) ListExpiredOpen(ctx context.Context, before time.Time) ([]*models.Policy, error) {
	rows, err := r.db.Querier(ctx).Query(ctx, `
		SELECT `+policyColumns+`
		FROM polizas p
		JOIN clientes c ON c.id = p.cliente_id
		WHERE p.estado = $1 AND p.fecha_vencimiento < $2
		ORDER BY p.fecha_vencimiento ASC`,
		models.PolicyStatusActive, before)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired policies: %w", err)
	}
	defer rows.Close()
	return collectPolicies(rows)
}

func (r *policyRepository) MarkExpired(ctx context.Context, before time.Time) (int, error) {
	tag, err := r.db.Querier(ctx).Exec(ctx, `
		UPDATE polizas
		SET estado = $1, updated_at = now()
		WHERE estado = $2 AND fecha_vencimiento < $3`,
		models.PolicyStatusExpired, models.PolicyStatusActive, before)
	if err != nil {
		return 0, fmt.Errorf("failed to mark expired policies: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *policyRepository) ProductionByClient(ctx context.Context, minTotalUF float64, limit int) ([]models.ClientProduction, error) {
	rows, err := r.db.Querier(ctx).Query(ctx, `
		SELECT c.id, c.rut, c.nombre, SUM(p.monto_uf) AS total_uf, COUNT(*) AS polizas
		FROM polizas p
		JOIN clientes c ON c.id = p.cliente_id
		WHERE p.estado = $1
		GROUP BY c.id, c.rut, c.nombre
		HAVING SUM(p.monto_uf) >= $2
		ORDER BY total_uf DESC
		LIMIT $3`,
		models.PolicyStatusActive, minTotalUF, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate production by client: %w", err)
	}
	defer rows.Close()

	var out []models.ClientProduction
	for rows.Next() {
		var cp models.ClientProduction
		if err := rows.Scan(&cp.ClientID, &cp.RUT, &cp.Name, &cp.TotalUF, &cp.Policies); err != nil {
			return nil, fmt.Errorf("failed to scan client production: %w", err)
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

func (r *policyRepository) RenewalsSince(ctx context.Context, since time.Time, minPolicies int) ([]models.ClientRenewals, error) {
	rows, err := r.db.Querier(ctx).Query(ctx, `
		SELECT c.id, c.rut, c.nombre, COUNT(*) AS polizas
		FROM polizas p
		JOIN clientes c ON c.id = p.cliente_id
		WHERE p.fecha_inicio >= $1
		GROUP BY c.id, c.rut, c.nombre
		HAVING COUNT(*) >= $2
		ORDER BY polizas DESC`,
		since, minPolicies)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate renewals: %w", err)
	}
	defer rows.Close()

	var out []models.ClientRenewals
	for rows.Next() {
		var cr models.ClientRenewals
		if err := rows.Scan(&cr.ClientID, &cr.RUT, &cr.Name, &cr.Renewals); err != nil {
			return nil, fmt.Errorf("failed to scan client renewals: %w", err)
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

func (r *policyRepository) CountZeroAmount(ctx context.Context) (int, error) {
	var n int
	err := r.db.Querier(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM polizas WHERE monto_uf <= 0`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count zero-amount policies: %w", err)
	}
	return n, nil
}

func (r *policyRepository) CountInconsistentExpired(ctx context.Context, today time.Time) (int, error) {
	var n int
	err := r.db.Querier(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM polizas
		WHERE estado = $1 AND fecha_vencimiento < $2`,
		models.PolicyStatusActive, today).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count inconsistent policies: %w", err)
	}
	return n, nil
}

func collectPolicies(rows pgx.Rows) ([]*models.Policy, error) {
	var out []*models.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
