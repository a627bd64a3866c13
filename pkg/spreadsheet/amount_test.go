package spreadsheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"1.234.567,89", 1234567.89},
		{"1234,5", 1234.5},
		{"500", 500},
		{"0", 0},
		{" 12,75 ", 12.75},
		{"1.000", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := ParseAmount(tt.input)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, v, 0.0001)
		})
	}
}

func TestParseAmountErrors(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "12,34,56"} {
		_, err := ParseAmount(in)
		assert.Error(t, err, "input %q", in)
	}
}
