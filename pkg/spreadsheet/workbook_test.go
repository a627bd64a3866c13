package spreadsheet

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	excelize "github.com/xuri/excelize/v2"
)

func writeTestWorkbook(t *testing.T, rows [][]string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, cell := range row {
			ref, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, ref, cell))
		}
	}

	path := filepath.Join(t.TempDir(), "libro.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadWorkbookFirstRowHeader(t *testing.T) {
	path := writeTestWorkbook(t, [][]string{
		{"rut", "Nombre Cliente", "Numero Poliza", "Vigencia", "Prima Neta"},
		{"12.345.678-9", "ACME", "POL-1", "01/01/2024 AL 01/01/2025", "100"},
	})

	sheet, err := ReadWorkbook(path)
	require.NoError(t, err)
	assert.Equal(t, 0, sheet.HeaderRow)
	assert.Equal(t, testHeader, sheet.Header, "header cells are uppercased")
	require.Len(t, sheet.Rows, 1)
	assert.Equal(t, "POL-1", sheet.Rows[0][2])
}

func TestReadWorkbookSkipsTitleBanner(t *testing.T) {
	path := writeTestWorkbook(t, [][]string{
		{"REPORTE DE PRODUCCION"},
		{},
		{"RUT", "NOMBRE CLIENTE", "NUMERO POLIZA", "VIGENCIA", "PRIMA NETA"},
		{"12.345.678-9", "ACME", "POL-1", "01/01/2024 AL 01/01/2025", "100"},
		{"11.111.111-1", "OTRA", "POL-2", "01/01/2024 AL 01/01/2025", "50"},
	})

	sheet, err := ReadWorkbook(path)
	require.NoError(t, err)
	assert.Equal(t, 2, sheet.HeaderRow)
	assert.Equal(t, testHeader, sheet.Header)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "POL-2", sheet.Rows[1][2])
}

func TestReadWorkbookMissingFile(t *testing.T) {
	_, err := ReadWorkbook(filepath.Join(t.TempDir(), "no-existe.xlsx"))
	assert.Error(t, err)
}
