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

func newTestReportService(policyRepo *mockPolicyRepo, alertRepo *mockAlertRepo) *ReportService {
	logger := zap.NewNop()
	freshness := NewFreshnessService(&mockFreshnessRepo{}, logger)
	alerts := NewAlertService(alertRepo, policyRepo, freshness, NopNotifier{}, logger)
	return NewReportService(policyRepo, alerts, logger)
}

func TestExpiredPoliciesReport(t *testing.T) {
	today := dateOnly(time.Now())
	policyRepo := &mockPolicyRepo{expired: []*models.Policy{
		{ID: 1, Number: "POL-1", ClientName: "ACME", ClientRUT: "1.111.111-1",
			EndDate: today.AddDate(0, 0, -10), Status: models.PolicyStatusActive, AmountUF: 100},
		{ID: 2, Number: "POL-2", ClientName: "OTRA", ClientRUT: "2.222.222-2",
			EndDate: today.AddDate(0, 0, -3), Status: models.PolicyStatusActive, AmountUF: 50},
	}}
	alertRepo := &mockAlertRepo{}
	svc := newTestReportService(policyRepo, alertRepo)

	report, err := svc.ExpiredPolicies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 10, report.Policies[0].DaysOverdue)
	assert.Equal(t, "ACME", report.Policies[0].ClientName)

	// One critical vencimientos alert per expired policy.
	require.Len(t, alertRepo.alerts, 2)
	assert.Equal(t, models.AlertTypeExpirations, alertRepo.alerts[0].Type)
	assert.Equal(t, models.AlertSeverityCritical, alertRepo.alerts[0].Severity)
	assert.Contains(t, alertRepo.alerts[0].Message, "venció hace 10 días")
}

func TestExpiredPoliciesReportIsIdempotent(t *testing.T) {
	today := dateOnly(time.Now())
	policyRepo := &mockPolicyRepo{expired: []*models.Policy{
		{ID: 1, Number: "POL-1", EndDate: today.AddDate(0, 0, -10), Status: models.PolicyStatusActive},
	}}
	alertRepo := &mockAlertRepo{}
	svc := newTestReportService(policyRepo, alertRepo)

	_, err := svc.ExpiredPolicies(context.Background())
	require.NoError(t, err)
	_, err = svc.ExpiredPolicies(context.Background())
	require.NoError(t, err)

	// Dedup in the alert factory absorbs the second run.
	assert.Len(t, alertRepo.alerts, 1)
}

func TestExpiringPoliciesTieredSeverity(t *testing.T) {
	today := dateOnly(time.Now())
	policyRepo := &mockPolicyRepo{expiring: []*models.Policy{
		{ID: 1, Number: "POL-1", EndDate: today.AddDate(0, 0, 3), Status: models.PolicyStatusActive},
		{ID: 2, Number: "POL-2", EndDate: today.AddDate(0, 0, 10), Status: models.PolicyStatusActive},
		{ID: 3, Number: "POL-3", EndDate: today.AddDate(0, 0, 25), Status: models.PolicyStatusActive},
	}}
	alertRepo := &mockAlertRepo{}
	svc := newTestReportService(policyRepo, alertRepo)

	report, err := svc.ExpiringPolicies(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, 3, report.Total)

	assert.Equal(t, 3, report.Policies[0].DaysRemaining)
	assert.Contains(t, report.Policies[0].Recommendation, "URGENTE")
	assert.Contains(t, report.Policies[2].Recommendation, "Preparar comunicación")

	require.Len(t, alertRepo.alerts, 3)
	assert.Equal(t, models.AlertSeverityCritical, alertRepo.alerts[0].Severity)
	assert.Equal(t, models.AlertSeverityWarning, alertRepo.alerts[1].Severity)
	assert.Equal(t, models.AlertSeverityInfo, alertRepo.alerts[2].Severity)
}

func TestTopClientsReport(t *testing.T) {
	policyRepo := &mockPolicyRepo{production: []models.ClientProduction{
		{ClientID: 1, Name: "GRANDE", RUT: "1.111.111-1", TotalUF: 750, Policies: 3},
		{ClientID: 2, Name: "CHICO", RUT: "2.222.222-2", TotalUF: 250, Policies: 1},
	}}
	svc := newTestReportService(policyRepo, &mockAlertRepo{})

	report, err := svc.TopClients(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.Total)

	assert.Equal(t, 1, report.Ranking[0].Position)
	assert.Equal(t, "GRANDE", report.Ranking[0].Name)
	assert.InDelta(t, 75.0, report.Ranking[0].SharePct, 0.0001)
	assert.InDelta(t, 25.0, report.Ranking[1].SharePct, 0.0001)
}

func TestTopClientsReportEmptyBase(t *testing.T) {
	svc := newTestReportService(&mockPolicyRepo{}, &mockAlertRepo{})

	report, err := svc.TopClients(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total)
	assert.NotNil(t, report.Ranking)
}
