package spreadsheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testHeader = []string{"RUT", "NOMBRE CLIENTE", "NUMERO POLIZA", "VIGENCIA", "PRIMA NETA"}

func testSheet(rows [][]string) *Sheet {
	return &Sheet{Header: testHeader, Rows: rows}
}

func TestValidateStructureAccepts(t *testing.T) {
	sheet := testSheet([][]string{
		{"12.345.678-9", "ACME LTDA", "POL-1", "01/01/2024 AL 01/01/2025", "100,5"},
		{"11.111.111-1", "OTRA SPA", "POL-2", "01/02/2024 AL 01/02/2025", "200"},
	})
	report := ValidateStructure(sheet, MapColumns(sheet.Header))

	assert.True(t, report.Valid)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 2, report.TotalRows)
	assert.Equal(t, 0, report.EmptyRows)
}

func TestValidateStructureMissingColumns(t *testing.T) {
	sheet := &Sheet{
		Header: []string{"RUT", "VIGENCIA"},
		Rows:   [][]string{{"12.345.678-9", "01/01/2024 AL 01/01/2025"}},
	}
	report := ValidateStructure(sheet, MapColumns(sheet.Header))

	assert.False(t, report.Valid)
	assert.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "No se pudieron mapear")
}

func TestValidateStructureEmptyRowsAreAdvisory(t *testing.T) {
	sheet := testSheet([][]string{
		{"12.345.678-9", "ACME LTDA", "POL-1", "01/01/2024 AL 01/01/2025", "100"},
		{"", "", "", "", ""},
		{"", "", "", "", ""},
	})
	report := ValidateStructure(sheet, MapColumns(sheet.Header))

	assert.True(t, report.Valid)
	assert.Equal(t, 2, report.EmptyRows)
	assert.NotEmpty(t, report.Advisories)
}

func TestValidateStructureHighNullRateBlocks(t *testing.T) {
	rows := make([][]string, 0, 10)
	for i := 0; i < 8; i++ {
		rows = append(rows, []string{"12.345.678-9", "ACME", "POL-1", "01/01/2024 AL 01/01/2025", "100"})
	}
	// Two of ten rows without policy number: 20% null rate, above the 10% cap.
	rows = append(rows,
		[]string{"12.345.678-9", "ACME", "", "01/01/2024 AL 01/01/2025", "100"},
		[]string{"12.345.678-9", "ACME", "", "01/01/2024 AL 01/01/2025", "100"},
	)
	sheet := testSheet(rows)
	report := ValidateStructure(sheet, MapColumns(sheet.Header))

	assert.False(t, report.Valid)
	assert.Contains(t, report.Errors[0], "NUMERO_POLIZA")
}

func TestPreview(t *testing.T) {
	sheet := testSheet([][]string{
		{"12.345.678-9", "ACME", "POL-1", "01/01/2024 AL 01/01/2025", "100"},
		{"11.111.111-1", "OTRA", "POL-2", "01/02/2024 AL 01/02/2025", "200"},
		{"22.222.222-2", "TERCERA", "POL-3", "01/03/2024 AL 01/03/2025", "300"},
	})
	mapped := MapColumns(sheet.Header)

	preview := Preview(sheet, mapped, 2)
	assert.Len(t, preview, 2)
	assert.Equal(t, "POL-1", preview[0]["NUMERO POLIZA"])

	all := Preview(sheet, mapped, 10)
	assert.Len(t, all, 3)
}

func TestRawRow(t *testing.T) {
	mapped := MapColumns(testHeader)
	row := NewRawRow(testHeader, mapped, []string{" 12.345.678-9 ", "ACME", "POL-1"})

	assert.Equal(t, "12.345.678-9", row.Get(ColRUT))
	assert.Equal(t, "POL-1", row.Get(ColPolicyNum))
	assert.Equal(t, "", row.Get(ColNetPremium), "short rows read as empty")
	assert.False(t, row.Empty())
	assert.True(t, NewRawRow(testHeader, mapped, []string{"", " ", ""}).Empty())
}

func TestDetectHeaderRow(t *testing.T) {
	rows := [][]string{
		{"REPORTE DE PRODUCCION", "", "", "", ""},
		{"", "", "", "", ""},
		{"RUT", "NOMBRE CLIENTE", "NUMERO POLIZA", "VIGENCIA", "PRIMA NETA"},
		{"12.345.678-9", "ACME", "POL-1", "01/01/2024 AL 01/01/2025", "100"},
	}
	assert.Equal(t, 2, DetectHeaderRow(rows))
}
