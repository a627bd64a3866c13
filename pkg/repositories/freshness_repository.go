package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sigepol/sigepol-engine/pkg/database"
	"github.com/sigepol/sigepol-engine/pkg/models"
)

// FreshnessRepository tracks per-client data freshness state.
type FreshnessRepository interface {
	GetByRUT(ctx context.Context, rut string) (*models.DataFreshness, error)
	// RegisterLoad upserts the freshness row for a client, resetting its
	// staleness counters and recording who loaded how many records.
	RegisterLoad(ctx context.Context, rut, user string, records int, now time.Time) (*models.DataFreshness, error)
	Save(ctx context.Context, f *models.DataFreshness) error
	ListOverdue(ctx context.Context, before time.Time) ([]*models.DataFreshness, error)
	Stats(ctx context.Context, staleBefore time.Time, criticalBefore time.Time) (*models.FreshnessStats, error)
}

type freshnessRepository struct {
	db *database.DB
}

func NewFreshnessRepository(db *database.DB) FreshnessRepository {
	return &freshnessRepository{db: db}
}

var _ FreshnessRepository = (*freshnessRepository)(nil)

const freshnessColumns = `
	id, cliente_rut, ultima_actualizacion, dias_sin_actualizacion, alerta_frescura,
	fecha_ultima_carga, usuario_ultima_carga, registros_actualizados, fecha_registro`

func scanFreshness(row pgx.Row) (*models.DataFreshness, error) {
	f := &models.DataFreshness{}
	err := row.Scan(
		&f.ID, &f.ClientRUT, &f.LastUpdate, &f.DaysSinceUpdate, &f.StaleAlert,
		&f.LastLoadDate, &f.LastLoadUser, &f.RecordsUpdated, &f.RegisteredAt,
	)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *freshnessRepository) GetByRUT(ctx context.Context, rut string) (*models.DataFreshness, error) {
	row := r.db.Querier(ctx).QueryRow(ctx, `
		SELECT `+freshnessColumns+`
		FROM data_freshness
		WHERE cliente_rut = $1`, rut)

	f, err := scanFreshness(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get freshness: %w", err)
	}
	return f, nil
}

func (r *freshnessRepository) RegisterLoad(ctx context.Context, rut, user string, records int, now time.Time) (*models.DataFreshness, error) {
	row := r.db.Querier(ctx).QueryRow(ctx, `
		INSERT INTO data_freshness
			(cliente_rut, ultima_actualizacion, dias_sin_actualizacion, alerta_frescura,
			 fecha_ultima_carga, usuario_ultima_carga, registros_actualizados)
		VALUES ($1, $2, 0, false, $2, $3, $4)
		ON CONFLICT (cliente_rut) DO UPDATE SET
			ultima_actualizacion   = EXCLUDED.ultima_actualizacion,
			dias_sin_actualizacion = 0,
			alerta_frescura        = false,
			fecha_ultima_carga     = EXCLUDED.fecha_ultima_carga,
			usuario_ultima_carga   = EXCLUDED.usuario_ultima_carga,
			registros_actualizados = EXCLUDED.registros_actualizados
		RETURNING `+freshnessColumns,
		rut, now, user, records)

	f, err := scanFreshness(row)
	if err != nil {
		return nil, fmt.Errorf("failed to register data load: %w", err)
	}
	return f, nil
}

func (r *freshnessRepository) Save(ctx context.Context, f *models.DataFreshness) error {
	_, err := r.db.Querier(ctx).Exec(ctx, `
		UPDATE data_freshness
		SET dias_sin_actualizacion = $1, alerta_frescura = $2
		WHERE id = $3`,
		f.DaysSinceUpdate, f.StaleAlert, f.ID)
	if err != nil {
		return fmt.Errorf("failed to save freshness: %w", err)
	}
	return nil
}

func (r *freshnessRepository) ListOverdue(ctx context.Context, before time.Time) ([]*models.DataFreshness, error) {
	rows, err := r.db.Querier(ctx).Query(ctx, `
		SELECT `+freshnessColumns+`
		FROM data_freshness
		WHERE ultima_actualizacion < $1
		ORDER BY ultima_actualizacion ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue clients: %w", err)
	}
	defer rows.Close()

	var out []*models.DataFreshness
	for rows.Next() {
		f, err := scanFreshness(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan freshness: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *freshnessRepository) Stats(ctx context.Context, staleBefore, criticalBefore time.Time) (*models.FreshnessStats, error) {
	stats := &models.FreshnessStats{}
	var avgDays *float64
	err := r.db.Querier(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE ultima_actualizacion >= $1),
		       COUNT(*) FILTER (WHERE ultima_actualizacion <  $1),
		       COUNT(*) FILTER (WHERE ultima_actualizacion <  $2),
		       AVG(EXTRACT(EPOCH FROM (now() - ultima_actualizacion)) / 86400)
		FROM data_freshness`, staleBefore, criticalBefore).Scan(
		&stats.TotalClients, &stats.FreshClients, &stats.StaleClients, &stats.CriticalClients, &avgDays)
	if err != nil {
		return nil, fmt.Errorf("failed to get freshness stats: %w", err)
	}
	if avgDays != nil {
		stats.AverageDays = *avgDays
	}
	if stats.TotalClients > 0 {
		stats.FreshPercent = float64(stats.FreshClients) * 100 / float64(stats.TotalClients)
	}
	return stats, nil
}
