package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sigepol/sigepol-engine/pkg/database"
	"github.com/sigepol/sigepol-engine/pkg/models"
)

// ClientRepository provides data access for clients.
type ClientRepository interface {
	GetByRUT(ctx context.Context, rut string) (*models.Client, error)
	// GetOrCreate resolves a client by RUT, creating it with the given name
	// when absent. The bool reports whether a row was created.
	GetOrCreate(ctx context.Context, rut, name string) (*models.Client, bool, error)
	Count(ctx context.Context) (int, error)
}

type clientRepository struct {
	db *database.DB
}

func NewClientRepository(db *database.DB) ClientRepository {
	return &clientRepository{db: db}
}

var _ ClientRepository = (*clientRepository)(nil)

func (r *clientRepository) GetByRUT(ctx context.Context, rut string) (*models.Client, error) {
	row := r.db.Querier(ctx).QueryRow(ctx, `
		SELECT id, rut, nombre, created_at, updated_at
		FROM clientes
		WHERE rut = $1`, rut)

	client := &models.Client{}
	err := row.Scan(&client.ID, &client.RUT, &client.Name, &client.CreatedAt, &client.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return client, nil
}

func (r *clientRepository) GetOrCreate(ctx context.Context, rut, name string) (*models.Client, bool, error) {
	if name == "" {
		name = models.UnnamedClient
	}
	if len(name) > 200 {
		name = name[:200]
	}

	q := r.db.Querier(ctx)

	// Insert-first upsert: ON CONFLICT DO NOTHING followed by a read keeps
	// this race-safe without locking. xmax = 0 distinguishes a fresh insert.
	row := q.QueryRow(ctx, `
		INSERT INTO clientes (rut, nombre)
		VALUES ($1, $2)
		ON CONFLICT (rut) DO UPDATE SET updated_at = now()
		RETURNING id, rut, nombre, created_at, updated_at, (xmax = 0) AS inserted`,
		rut, name)

	client := &models.Client{}
	var inserted bool
	if err := row.Scan(&client.ID, &client.RUT, &client.Name, &client.CreatedAt, &client.UpdatedAt, &inserted); err != nil {
		return nil, false, fmt.Errorf("failed to get or create client: %w", err)
	}
	return client, inserted, nil
}

func (r *clientRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Querier(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clientes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count clients: %w", err)
	}
	return n, nil
}
