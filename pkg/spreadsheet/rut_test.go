package spreadsheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRUT(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"already normalized", "12.345.678-9", "12.345.678-9"},
		{"plain digits", "123456789", "12.345.678-9"},
		{"plain with dash", "12345678-9", "12.345.678-9"},
		{"lowercase k check digit", "12345678-k", "12.345.678-K"},
		{"seven digit body", "1234567-8", "1.234.567-8"},
		{"spaces around", " 12.345.678-9 ", "12.345.678-9"},
		{"too short", "1234-5", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeRUT(tt.input))
		})
	}
}

func TestIsValidRUT(t *testing.T) {
	assert.True(t, IsValidRUT("12.345.678-9"))
	assert.True(t, IsValidRUT("1.234.567-K"))
	assert.True(t, IsValidRUT("12345678-9"))
	assert.False(t, IsValidRUT(""))
	assert.False(t, IsValidRUT("12.345.678"))
	assert.False(t, IsValidRUT("no-es-rut"))
	assert.False(t, IsValidRUT("12.345.678-99"))
}

func TestNormalizeThenValidateRoundTrip(t *testing.T) {
	inputs := []string{"12345678-9", "12.345.678-9", "1234567-k", "98765432-1"}
	for _, in := range inputs {
		normalized := NormalizeRUT(in)
		assert.True(t, IsValidRUT(normalized), "normalized form of %q should validate, got %q", in, normalized)
	}
}
