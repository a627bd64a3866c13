package spreadsheet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVigencia(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			"slash day first",
			"01/03/2024 AL 01/03/2025",
			time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"dash separator",
			"15-06-2023 AL 15-06-2024",
			time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			"iso dates",
			"2024-01-01 AL 2024-12-31",
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			"lowercase join word",
			"01/01/2024 al 01/01/2025",
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"two digit year",
			"01/01/24 AL 01/01/25",
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"day clamped to end of month",
			"31/02/2024 AL 31/02/2025",
			time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := ParseVigencia(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestParseVigenciaErrors(t *testing.T) {
	inputs := []string{
		"",
		"sin fechas",
		"01/01/2024",
		"01/01/2024 AL basura",
		"13/13/2024 AL 01/01/2025",
	}
	for _, in := range inputs {
		_, _, err := ParseVigencia(in)
		assert.Error(t, err, "input %q", in)
	}
}
