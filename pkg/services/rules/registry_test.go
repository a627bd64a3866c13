package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigepol/sigepol-engine/pkg/models"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()

	_, ok := reg.Lookup("NADA")
	assert.False(t, ok)

	reg.Register("UNA", func(_ context.Context, _ *models.Rule) (map[string]any, error) {
		return map[string]any{"status": "ok"}, nil
	})

	h, ok := reg.Lookup("UNA")
	require.True(t, ok)
	result, err := h(context.Background(), &models.Rule{Code: "UNA"})
	require.NoError(t, err)
	assert.Equal(t, "ok", result["status"])
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	reg := NewRegistry()
	reg.Register("UNA", func(_ context.Context, _ *models.Rule) (map[string]any, error) {
		return map[string]any{"version": 1}, nil
	})
	reg.Register("UNA", func(_ context.Context, _ *models.Rule) (map[string]any, error) {
		return map[string]any{"version": 2}, nil
	})

	h, ok := reg.Lookup("UNA")
	require.True(t, ok)
	result, _ := h(context.Background(), nil)
	assert.Equal(t, 2, result["version"])
}

func TestRegistryCodes(t *testing.T) {
	reg := NewRegistry()
	reg.Register("B", nil)
	reg.Register("A", nil)

	codes := reg.Codes()
	assert.ElementsMatch(t, []string{"A", "B"}, codes)
}
