package rules

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sigepol/sigepol-engine/pkg/models"
	"github.com/sigepol/sigepol-engine/pkg/repositories"
	"github.com/sigepol/sigepol-engine/pkg/services"
	"github.com/sigepol/sigepol-engine/pkg/testhelpers"
)

type builtinEnv struct {
	reg       *Registry
	alertRepo repositories.AlertRepository
	clients   repositories.ClientRepository
	policies  repositories.PolicyRepository
}

func newBuiltinEnv(t *testing.T) *builtinEnv {
	t.Helper()
	engineDB := testhelpers.GetEngineDB(t)
	testhelpers.TruncateAll(t, engineDB.DB)

	logger := zap.NewNop()
	alertRepo := repositories.NewAlertRepository(engineDB.DB)
	policyRepo := repositories.NewPolicyRepository(engineDB.DB)
	freshness := services.NewFreshnessService(repositories.NewFreshnessRepository(engineDB.DB), logger)
	alerts := services.NewAlertService(alertRepo, policyRepo, freshness, services.NopNotifier{}, logger)

	reg := NewRegistry()
	RegisterBuiltins(reg, policyRepo, alerts, logger)

	return &builtinEnv{
		reg:       reg,
		alertRepo: alertRepo,
		clients:   repositories.NewClientRepository(engineDB.DB),
		policies:  policyRepo,
	}
}

func (e *builtinEnv) seedPolicy(t *testing.T, number, rut string, amountUF float64, start, end time.Time) {
	t.Helper()
	ctx := context.Background()
	client, _, err := e.clients.GetOrCreate(ctx, rut, "CLIENTE "+rut)
	require.NoError(t, err)
	_, err = e.policies.Upsert(ctx, &models.Policy{
		Number:    number,
		ClientID:  client.ID,
		ClientRUT: client.RUT,
		StartDate: start,
		EndDate:   end,
		AmountUF:  amountUF,
		Status:    models.PolicyStatusActive,
	})
	require.NoError(t, err)
}

func (e *builtinEnv) run(t *testing.T, code string, params map[string]any) map[string]any {
	t.Helper()
	handler, ok := e.reg.Lookup(code)
	require.True(t, ok)
	if params == nil {
		params = map[string]any{}
	}
	result, err := handler(context.Background(), &models.Rule{Code: code, Parameters: params})
	require.NoError(t, err)
	return result
}

func TestBuiltinExpiringPolicies(t *testing.T) {
	env := newBuiltinEnv(t)
	today := time.Now().Truncate(24 * time.Hour)

	env.seedPolicy(t, "POL-PRONTA", "1.111.111-1", 100, today.AddDate(-1, 0, 0), today.AddDate(0, 0, 10))
	env.seedPolicy(t, "POL-LEJANA", "1.111.111-1", 100, today, today.AddDate(1, 0, 0))

	result := env.run(t, CodeExpiringPolicies, map[string]any{"dias": float64(30)})

	assert.Equal(t, 1, result["polizas_procesadas"])
	assert.Equal(t, 1, result["alertas_creadas"])

	alerts, err := env.alertRepo.List(context.Background(), models.AlertFilters{Type: models.AlertTypeExpirations})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Message, "POL-PRONTA")
}

func TestBuiltinTopClients(t *testing.T) {
	env := newBuiltinEnv(t)
	today := time.Now().Truncate(24 * time.Hour)

	env.seedPolicy(t, "POL-G1", "1.111.111-1", 400, today, today.AddDate(1, 0, 0))
	env.seedPolicy(t, "POL-G2", "1.111.111-1", 300, today, today.AddDate(1, 0, 0))
	env.seedPolicy(t, "POL-CH", "2.222.222-2", 50, today, today.AddDate(1, 0, 0))

	result := env.run(t, CodeTopClients, map[string]any{"min_uf": float64(500)})

	assert.Equal(t, 1, result["clientes_top_detectados"])
	assert.Equal(t, 1, result["alertas_creadas"])

	alerts, err := env.alertRepo.List(context.Background(), models.AlertFilters{Type: models.AlertTypeTopClient})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Message, "700.00 UF")
}

func TestBuiltinDataSanity(t *testing.T) {
	env := newBuiltinEnv(t)
	today := time.Now().Truncate(24 * time.Hour)

	env.seedPolicy(t, "POL-SIN-MONTO", "1.111.111-1", 0, today, today.AddDate(1, 0, 0))
	env.seedPolicy(t, "POL-VENCIDA-ABIERTA", "1.111.111-1", 100, today.AddDate(-2, 0, 0), today.AddDate(0, 0, -30))

	result := env.run(t, CodeDataSanity, nil)

	assert.Equal(t, 2, result["problemas_encontrados"])
	assert.Equal(t, "Alerta generada", result["accion"])
	assert.Equal(t, 1, result["estados_corregidos"])

	alerts, err := env.alertRepo.List(context.Background(), models.AlertFilters{Type: models.AlertTypeDataSanity})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Message, "sin monto UF")
	assert.Contains(t, alerts[0].Message, "estado incorrecto")

	// The past-due policy was repaired to VENCIDA.
	repaired, err := env.policies.GetByNumber(context.Background(), "POL-VENCIDA-ABIERTA")
	require.NoError(t, err)
	require.NotNil(t, repaired)
	assert.Equal(t, models.PolicyStatusExpired, repaired.Status)
}

func TestBuiltinDataSanityRepairOptOut(t *testing.T) {
	env := newBuiltinEnv(t)
	today := time.Now().Truncate(24 * time.Hour)

	env.seedPolicy(t, "POL-VENCIDA-ABIERTA", "1.111.111-1", 100, today.AddDate(-2, 0, 0), today.AddDate(0, 0, -30))

	result := env.run(t, CodeDataSanity, map[string]any{"corregir_estados": false})

	assert.Equal(t, 1, result["problemas_encontrados"])
	assert.Equal(t, 0, result["estados_corregidos"])

	untouched, err := env.policies.GetByNumber(context.Background(), "POL-VENCIDA-ABIERTA")
	require.NoError(t, err)
	require.NotNil(t, untouched)
	assert.Equal(t, models.PolicyStatusActive, untouched.Status)
}

func TestBuiltinDataSanityCleanBase(t *testing.T) {
	env := newBuiltinEnv(t)
	today := time.Now().Truncate(24 * time.Hour)

	env.seedPolicy(t, "POL-SANA", "1.111.111-1", 100, today, today.AddDate(1, 0, 0))

	result := env.run(t, CodeDataSanity, nil)

	assert.Equal(t, 0, result["problemas_encontrados"])
	assert.Equal(t, "Sin problemas", result["accion"])
}
