package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sigepol/sigepol-engine/pkg/models"
)

type mockCollectionRepo struct {
	pending   []*models.Policy
	created   []*models.Collection
	failFor   string
	marked    int
	markedErr error
}

func (m *mockCollectionRepo) Create(_ context.Context, c *models.Collection) error {
	for _, p := range m.pending {
		if p.ID == c.PolicyID && p.Number == m.failFor {
			return errors.New("insert failed")
		}
	}
	m.created = append(m.created, c)
	return nil
}

func (m *mockCollectionRepo) ListByPolicy(_ context.Context, policyID int64) ([]*models.Collection, error) {
	var out []*models.Collection
	for _, c := range m.created {
		if c.PolicyID == policyID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCollectionRepo) ListPoliciesNeedingCollection(_ context.Context) ([]*models.Policy, error) {
	return m.pending, nil
}

func (m *mockCollectionRepo) MarkOverdue(_ context.Context, _ time.Time) (int, error) {
	return m.marked, m.markedErr
}

func (m *mockCollectionRepo) CountOpen(_ context.Context) (int, error) {
	return len(m.created), nil
}

func TestSweepFromETLCreatesPendingCollections(t *testing.T) {
	today := dateOnly(time.Now())
	repo := &mockCollectionRepo{
		pending: []*models.Policy{
			{ID: 1, Number: "POL-1", AmountUF: 100, StartDate: today.AddDate(0, 0, -10), EndDate: today.AddDate(1, 0, 0)},
			{ID: 2, Number: "POL-2", AmountUF: 50, StartDate: today.AddDate(-1, 0, -10), EndDate: today.AddDate(0, 0, -5)},
		},
		marked: 3,
	}
	svc := NewCollectionService(repo, zap.NewNop())

	result, err := svc.SweepFromETL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Errors)
	assert.Equal(t, 3, result.MarkedLate)

	require.Len(t, repo.created, 2)
	current := repo.created[0]
	assert.Equal(t, models.CollectionStatusPending, current.Status)
	assert.Equal(t, models.CollectionTypeCurrent, current.Type)
	assert.True(t, current.FromETL)
	assert.Equal(t, current.DueDate, repo.pending[0].StartDate.AddDate(0, 0, collectionTermDays))

	// A policy already past its end date starts life as cobranza vencida.
	assert.Equal(t, models.CollectionTypeOverduePayment, repo.created[1].Type)
}

func TestSweepFromETLCountsPerPolicyFailures(t *testing.T) {
	today := dateOnly(time.Now())
	repo := &mockCollectionRepo{
		pending: []*models.Policy{
			{ID: 1, Number: "POL-1", StartDate: today, EndDate: today.AddDate(1, 0, 0)},
			{ID: 2, Number: "POL-2", StartDate: today, EndDate: today.AddDate(1, 0, 0)},
		},
		failFor: "POL-1",
	}
	svc := NewCollectionService(repo, zap.NewNop())

	result, err := svc.SweepFromETL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Errors)
}

func TestSweepFromETLOverdueRefreshFailureIsNotFatal(t *testing.T) {
	repo := &mockCollectionRepo{markedErr: errors.New("deadlock")}
	svc := NewCollectionService(repo, zap.NewNop())

	result, err := svc.SweepFromETL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.MarkedLate)
}
