package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sigepol/sigepol-engine/pkg/models"
)

func TestFreshnessServiceRegisterLoad(t *testing.T) {
	repo := &mockFreshnessRepo{}
	svc := NewFreshnessService(repo, zap.NewNop())

	f, err := svc.RegisterLoad(context.Background(), "12.345.678-9", "analista", 42)
	require.NoError(t, err)
	assert.Equal(t, "12.345.678-9", f.ClientRUT)
	assert.Equal(t, 42, f.RecordsUpdated)
	require.NotNil(t, f.LastLoadUser)
	assert.Equal(t, "analista", *f.LastLoadUser)
}

func TestFreshnessServiceIsFresh(t *testing.T) {
	tests := []struct {
		name      string
		ageDays   int
		threshold int
		fresh     bool
	}{
		{"recien cargado", 0, 30, true},
		{"un dia antes del limite", 29, 30, true},
		{"en el limite", 30, 30, false},
		{"vencido", 31, 30, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockFreshnessRepo{rows: map[string]*models.DataFreshness{
				"1.111.111-1": {ClientRUT: "1.111.111-1", LastUpdate: time.Now().AddDate(0, 0, -tt.ageDays)},
			}}
			svc := NewFreshnessService(repo, zap.NewNop())

			fresh, err := svc.IsFresh(context.Background(), "1.111.111-1", tt.threshold)
			require.NoError(t, err)
			assert.Equal(t, tt.fresh, fresh)
		})
	}
}

func TestFreshnessServiceIsFreshUnknownClient(t *testing.T) {
	svc := NewFreshnessService(&mockFreshnessRepo{}, zap.NewNop())

	fresh, err := svc.IsFresh(context.Background(), "9.999.999-9", 30)
	require.NoError(t, err)
	assert.False(t, fresh, "a client without a ledger row is never fresh")
}

func TestFreshnessServiceStateRecalculates(t *testing.T) {
	repo := &mockFreshnessRepo{rows: map[string]*models.DataFreshness{
		"1.111.111-1": {ClientRUT: "1.111.111-1", LastUpdate: time.Now().AddDate(0, 0, -40)},
	}}
	svc := NewFreshnessService(repo, zap.NewNop())

	state, err := svc.State(context.Background(), "1.111.111-1")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, models.FreshnessWarning, state.Status)
	assert.Equal(t, 40, state.Days)
	assert.False(t, state.Confident)

	// The derived counter is written back through Save.
	assert.Equal(t, 40, repo.rows["1.111.111-1"].DaysSinceUpdate)
}

func TestFreshnessServiceStateUnknownClient(t *testing.T) {
	svc := NewFreshnessService(&mockFreshnessRepo{}, zap.NewNop())

	state, err := svc.State(context.Background(), "9.999.999-9")
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestFreshnessServiceClientsOverdue(t *testing.T) {
	repo := &mockFreshnessRepo{rows: map[string]*models.DataFreshness{
		"1.111.111-1": {ClientRUT: "1.111.111-1", LastUpdate: time.Now().AddDate(0, 0, -40)},
		"2.222.222-2": {ClientRUT: "2.222.222-2", LastUpdate: time.Now().AddDate(0, 0, -5)},
	}}
	svc := NewFreshnessService(repo, zap.NewNop())

	overdue, err := svc.ClientsOverdue(context.Background(), 0) // defaults to 30 days
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "1.111.111-1", overdue[0].ClientRUT)
	assert.Equal(t, 40, overdue[0].DaysSinceUpdate)
}
