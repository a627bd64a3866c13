package repositories

import (
	"context"
	"fmt"

	"github.com/sigepol/sigepol-engine/pkg/database"
	"github.com/sigepol/sigepol-engine/pkg/models"
)

// DatasetRepository builds the flattened per-policy rows of the ML
// training extract.
type DatasetRepository interface {
	ListRows(ctx context.Context) ([]models.DatasetRow, error)
}

type datasetRepository struct {
	db *database.DB
}

func NewDatasetRepository(db *database.DB) DatasetRepository {
	return &datasetRepository{db: db}
}

var _ DatasetRepository = (*datasetRepository)(nil)

func (r *datasetRepository) ListRows(ctx context.Context) ([]models.DatasetRow, error) {
	rows, err := r.db.Querier(ctx).Query(ctx, `
		SELECT p.numero,
		       p.cliente_id,
		       c.nombre,
		       p.monto_uf,
		       p.estado,
		       to_char(p.fecha_inicio, 'YYYY-MM-DD'),
		       to_char(p.fecha_vencimiento, 'YYYY-MM-DD'),
		       GREATEST(0, p.fecha_vencimiento::date - p.fecha_inicio::date),
		       (SELECT COUNT(*) FROM cobranzas co WHERE co.poliza_id = p.id),
		       (SELECT COUNT(*) FROM cobranzas co WHERE co.poliza_id = p.id AND co.estado = 'PAGADA'),
		       (SELECT COUNT(*) FROM cobranzas co WHERE co.poliza_id = p.id AND co.estado = 'PENDIENTE'),
		       (SELECT COUNT(*) FROM alertas a WHERE a.poliza_id = p.id),
		       (SELECT COUNT(*) FROM alertas a WHERE a.poliza_id = p.id AND a.severidad = 'critical')
		FROM polizas p
		JOIN clientes c ON c.id = p.cliente_id
		ORDER BY p.numero ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset rows: %w", err)
	}
	defer rows.Close()

	var out []models.DatasetRow
	for rows.Next() {
		var dr models.DatasetRow
		err := rows.Scan(
			&dr.PolicyNumber, &dr.ClientID, &dr.ClientName, &dr.AmountUF, &dr.Status,
			&dr.StartDate, &dr.EndDate, &dr.TermDays,
			&dr.TotalCollections, &dr.PaidCollections, &dr.PendingCollections,
			&dr.TotalAlerts, &dr.CriticalAlerts,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset row: %w", err)
		}
		out = append(out, dr)
	}
	return out, rows.Err()
}
