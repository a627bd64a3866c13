package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigepol/sigepol-engine/pkg/models"
	"github.com/sigepol/sigepol-engine/pkg/testhelpers"
)

func TestClientRepositoryGetOrCreate(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	testhelpers.TruncateAll(t, engineDB.DB)

	repo := NewClientRepository(engineDB.DB)
	ctx := context.Background()

	client, created, err := repo.GetOrCreate(ctx, "12.345.678-9", "ACME LTDA")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, client.ID)
	assert.Equal(t, "ACME LTDA", client.Name)

	again, created, err := repo.GetOrCreate(ctx, "12.345.678-9", "ACME LTDA RENOMBRADA")
	require.NoError(t, err)
	assert.False(t, created, "second upsert of the same RUT is not a creation")
	assert.Equal(t, client.ID, again.ID)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClientRepositoryGetByRUTMissing(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	testhelpers.TruncateAll(t, engineDB.DB)

	repo := NewClientRepository(engineDB.DB)
	client, err := repo.GetByRUT(context.Background(), "99.999.999-9")
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestClientRepositoryDefaultsEmptyName(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	testhelpers.TruncateAll(t, engineDB.DB)

	repo := NewClientRepository(engineDB.DB)
	client, _, err := repo.GetOrCreate(context.Background(), "11.111.111-1", "")
	require.NoError(t, err)
	assert.Equal(t, "SIN_NOMBRE", client.Name)
}

func TestPolicyRepositoryUpsert(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	testhelpers.TruncateAll(t, engineDB.DB)

	ctx := context.Background()
	clients := NewClientRepository(engineDB.DB)
	policies := NewPolicyRepository(engineDB.DB)

	client, _, err := clients.GetOrCreate(ctx, "12.345.678-9", "ACME LTDA")
	require.NoError(t, err)

	policy := &models.Policy{
		Number:    "POL-1",
		ClientID:  client.ID,
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		AmountUF:  150.5,
		Status:    models.PolicyStatusActive,
	}
	created, err := policies.Upsert(ctx, policy)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, policy.ID)

	// Same number again: update, not insert.
	policy2 := &models.Policy{
		Number:    "POL-1",
		ClientID:  client.ID,
		StartDate: policy.StartDate,
		EndDate:   policy.EndDate,
		AmountUF:  200,
		Status:    models.PolicyStatusActive,
	}
	created, err = policies.Upsert(ctx, policy2)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, policy.ID, policy2.ID)

	stored, err := policies.GetByNumber(ctx, "POL-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.InDelta(t, 200, stored.AmountUF, 0.0001)
	assert.Equal(t, "12.345.678-9", stored.ClientRUT)

	total, err := policies.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestPolicyRepositoryExpirationQueries(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	testhelpers.TruncateAll(t, engineDB.DB)

	ctx := context.Background()
	clients := NewClientRepository(engineDB.DB)
	policies := NewPolicyRepository(engineDB.DB)

	client, _, err := clients.GetOrCreate(ctx, "12.345.678-9", "ACME LTDA")
	require.NoError(t, err)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	mk := func(number string, end time.Time) {
		_, err := policies.Upsert(ctx, &models.Policy{
			Number:    number,
			ClientID:  client.ID,
			StartDate: end.AddDate(-1, 0, 0),
			EndDate:   end,
			AmountUF:  100,
			Status:    models.PolicyStatusActive,
		})
		require.NoError(t, err)
	}
	mk("EXPIRING-10", today.AddDate(0, 0, 10))
	mk("EXPIRING-40", today.AddDate(0, 0, 40))
	mk("EXPIRED-5", today.AddDate(0, 0, -5))

	expiring, err := policies.ListExpiringBetween(ctx, today, today.AddDate(0, 0, 30))
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, "EXPIRING-10", expiring[0].Number)

	expired, err := policies.ListExpiredOpen(ctx, today)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "EXPIRED-5", expired[0].Number)

	updated, err := policies.MarkExpired(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	expired, err = policies.ListExpiredOpen(ctx, today)
	require.NoError(t, err)
	assert.Empty(t, expired, "marked policies leave the open-expired set")
}

func TestPolicyRepositoryProductionByClient(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	testhelpers.TruncateAll(t, engineDB.DB)

	ctx := context.Background()
	clients := NewClientRepository(engineDB.DB)
	policies := NewPolicyRepository(engineDB.DB)

	big, _, err := clients.GetOrCreate(ctx, "11.111.111-1", "GRANDE")
	require.NoError(t, err)
	small, _, err := clients.GetOrCreate(ctx, "22.222.222-2", "CHICO")
	require.NoError(t, err)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, amount := range []float64{400, 300} {
		_, err := policies.Upsert(ctx, &models.Policy{
			Number:    "BIG-" + string(rune('A'+i)),
			ClientID:  big.ID,
			StartDate: start,
			EndDate:   start.AddDate(1, 0, 0),
			AmountUF:  amount,
			Status:    models.PolicyStatusActive,
		})
		require.NoError(t, err)
	}
	_, err = policies.Upsert(ctx, &models.Policy{
		Number:    "SMALL-A",
		ClientID:  small.ID,
		StartDate: start,
		EndDate:   start.AddDate(1, 0, 0),
		AmountUF:  50,
		Status:    models.PolicyStatusActive,
	})
	require.NoError(t, err)

	top, err := policies.ProductionByClient(ctx, 500, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "11.111.111-1", top[0].RUT)
	assert.InDelta(t, 700, top[0].TotalUF, 0.0001)
	assert.Equal(t, 2, top[0].Policies)
}
