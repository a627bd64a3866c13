package spreadsheet

import (
	"fmt"
	"strings"
)

// criticalColumns must be mostly populated: a null rate above
// criticalNullRatePct in any of them blocks acceptance.
var criticalColumns = []string{ColPolicyNum, ColRUT, ColClientName}

const criticalNullRatePct = 10.0

// ValidationReport separates blocking errors from non-blocking advisories.
// A workbook is accepted whenever Errors is empty; advisories are surfaced
// on the upload record but never block processing.
type ValidationReport struct {
	DetectedColumns []string `json:"columnas_detectadas"`
	TotalRows       int      `json:"filas_totales"`
	EmptyRows       int      `json:"filas_vacias"`
	Errors          []string `json:"errores"`
	Advisories      []string `json:"advertencias"`
	Valid           bool     `json:"es_valido"`
}

// ValidateStructure checks a mapped sheet before row processing:
// unmapped required columns and high null rates in critical columns are
// errors; fully-empty rows are only advisories.
func ValidateStructure(sheet *Sheet, mapped map[string]int) ValidationReport {
	report := ValidationReport{
		DetectedColumns: sheet.Header,
		TotalRows:       len(sheet.Rows),
	}

	if missing := MissingColumns(mapped); len(missing) > 0 {
		report.Errors = append(report.Errors,
			fmt.Sprintf("No se pudieron mapear las columnas requeridas: %s", strings.Join(missing, ", ")))
	}

	nulls := make(map[string]int, len(criticalColumns))
	for _, cells := range sheet.Rows {
		row := NewRawRow(sheet.Header, mapped, cells)
		if row.Empty() {
			report.EmptyRows++
			continue
		}
		for _, col := range criticalColumns {
			if _, ok := mapped[col]; !ok {
				continue
			}
			if row.Get(col) == "" {
				nulls[col]++
			}
		}
	}

	if report.EmptyRows > 0 {
		report.Advisories = append(report.Advisories,
			fmt.Sprintf("Se encontraron %d filas completamente vacías", report.EmptyRows))
	}

	if len(sheet.Rows) > 0 {
		for _, col := range criticalColumns {
			n := nulls[col]
			if n == 0 {
				continue
			}
			pct := float64(n) / float64(len(sheet.Rows)) * 100
			if pct > criticalNullRatePct {
				report.Errors = append(report.Errors,
					fmt.Sprintf("Columna %s tiene %d valores nulos (%.1f%%)", col, n, pct))
			} else {
				report.Advisories = append(report.Advisories,
					fmt.Sprintf("Columna %s tiene %d valores nulos (%.1f%%)", col, n, pct))
			}
		}
	}

	report.Valid = len(report.Errors) == 0
	return report
}

// Preview captures the first n rows as column->value maps for the upload's
// preview snapshot.
func Preview(sheet *Sheet, mapped map[string]int, n int) []map[string]any {
	if n > len(sheet.Rows) {
		n = len(sheet.Rows)
	}
	out := make([]map[string]any, 0, n)
	for _, cells := range sheet.Rows[:n] {
		out = append(out, NewRawRow(sheet.Header, mapped, cells).Payload())
	}
	return out
}
