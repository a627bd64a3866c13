package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigepol/sigepol-engine/pkg/testhelpers"
)

func TestFreshnessRepositoryRegisterLoad(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	testhelpers.TruncateAll(t, engineDB.DB)

	repo := NewFreshnessRepository(engineDB.DB)
	ctx := context.Background()

	missing, err := repo.GetByRUT(ctx, "12.345.678-9")
	require.NoError(t, err)
	assert.Nil(t, missing)

	now := time.Now()
	f, err := repo.RegisterLoad(ctx, "12.345.678-9", "analista", 50, now)
	require.NoError(t, err)
	assert.NotZero(t, f.ID)
	assert.Equal(t, 50, f.RecordsUpdated)
	assert.Equal(t, 0, f.DaysSinceUpdate)
	assert.False(t, f.StaleAlert)

	// A second load for the same client updates the single row.
	later := now.Add(time.Hour)
	f2, err := repo.RegisterLoad(ctx, "12.345.678-9", "otro", 10, later)
	require.NoError(t, err)
	assert.Equal(t, f.ID, f2.ID)
	assert.Equal(t, 10, f2.RecordsUpdated)
	require.NotNil(t, f2.LastLoadUser)
	assert.Equal(t, "otro", *f2.LastLoadUser)
}

func TestFreshnessRepositorySaveAndListOverdue(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	testhelpers.TruncateAll(t, engineDB.DB)

	repo := NewFreshnessRepository(engineDB.DB)
	ctx := context.Background()
	now := time.Now()

	_, err := repo.RegisterLoad(ctx, "11.111.111-1", "sistema", 5, now)
	require.NoError(t, err)

	stale, err := repo.RegisterLoad(ctx, "22.222.222-2", "sistema", 5, now.AddDate(0, 0, -40))
	require.NoError(t, err)
	stale.Recalculate(now)
	require.NoError(t, repo.Save(ctx, stale))

	overdue, err := repo.ListOverdue(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "22.222.222-2", overdue[0].ClientRUT)

	stats, err := repo.Stats(ctx, now.AddDate(0, 0, -30), now.AddDate(0, 0, -45))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalClients)
	assert.Equal(t, 1, stats.FreshClients)
	assert.Equal(t, 1, stats.StaleClients)
	assert.InDelta(t, 50.0, stats.FreshPercent, 0.01)
}
