package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sigepol/sigepol-engine/pkg/models"
)

// mockRuleRepo records seeded rules; codes in existing are reported as
// already present.
type mockRuleRepo struct {
	existing map[string]bool
	seeded   []*models.Rule
}

func (m *mockRuleRepo) ListOrdered(_ context.Context, _ bool) ([]*models.Rule, error) {
	return nil, nil
}

func (m *mockRuleRepo) GetByCode(_ context.Context, _ string) (*models.Rule, error) {
	return nil, nil
}

func (m *mockRuleRepo) Seed(_ context.Context, rule *models.Rule) (bool, error) {
	if m.existing[rule.Code] {
		return false, nil
	}
	m.seeded = append(m.seeded, rule)
	return true, nil
}

func (m *mockRuleRepo) RecordSuccess(_ context.Context, _ *models.Rule, _ map[string]any, _, _ time.Time) error {
	return nil
}

func (m *mockRuleRepo) RecordFailure(_ context.Context, _ *models.Rule, _ string, _ time.Time) error {
	return nil
}

func (m *mockRuleRepo) SetActive(_ context.Context, _ string, _ bool) error { return nil }

func (m *mockRuleRepo) CreateExecution(_ context.Context, _ *models.RuleExecution) error {
	return nil
}

func (m *mockRuleRepo) ListExecutions(_ context.Context, _ int64, _ int) ([]*models.RuleExecution, error) {
	return nil, nil
}

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSeedFromFile(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  - codigo: POLIZAS_POR_EXPIRAR
    nombre: Pólizas por expirar
    tipo: EXPIRACION
    orden_ejecucion: 1
    parametros:
      dias: 30
  - codigo: SANIDAD_DATOS
    nombre: Sanidad de datos
    tipo: SANIDAD
    activa: false
    orden_ejecucion: 5
`)

	repo := &mockRuleRepo{}
	require.NoError(t, SeedFromFile(context.Background(), path, repo, zap.NewNop()))

	require.Len(t, repo.seeded, 2)

	first := repo.seeded[0]
	assert.Equal(t, "POLIZAS_POR_EXPIRAR", first.Code)
	assert.True(t, first.Active, "activa defaults to true when omitted")
	assert.Equal(t, 1, first.ExecutionOrder)
	assert.Equal(t, 30, first.IntParam("dias", 0))

	second := repo.seeded[1]
	assert.False(t, second.Active)
	assert.NotNil(t, second.Parameters, "omitted parametros become an empty map")
}

func TestSeedFromFileSkipsExisting(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  - codigo: POLIZAS_POR_EXPIRAR
    nombre: Pólizas por expirar
    tipo: EXPIRACION
`)

	repo := &mockRuleRepo{existing: map[string]bool{"POLIZAS_POR_EXPIRAR": true}}
	require.NoError(t, SeedFromFile(context.Background(), path, repo, zap.NewNop()))
	assert.Empty(t, repo.seeded)
}

func TestSeedFromFileRejectsMissingCode(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  - nombre: Sin código
`)
	err := SeedFromFile(context.Background(), path, &mockRuleRepo{}, zap.NewNop())
	assert.Error(t, err)
}

func TestSeedFromFileMissingFile(t *testing.T) {
	err := SeedFromFile(context.Background(), filepath.Join(t.TempDir(), "no-existe.yaml"), &mockRuleRepo{}, zap.NewNop())
	assert.Error(t, err)
}
