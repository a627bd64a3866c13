package spreadsheet

import (
	"fmt"
	"strings"

	excelize "github.com/xuri/excelize/v2"
)

// Sheet is a fully materialized worksheet: a header row plus data rows.
// Cells are raw strings exactly as excelize renders them. HeaderRow is the
// 0-based index the header was found at, needed to report spreadsheet row
// numbers for files that carry title banners above the table.
type Sheet struct {
	Header    []string
	Rows      [][]string
	HeaderRow int
}

// ReadWorkbook opens an .xlsx file and materializes its first worksheet.
// The header row is located with DetectHeaderRow, so files with title
// banners above the table are accepted alongside plain first-row-header
// exports.
func ReadWorkbook(path string) (*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("error leyendo Excel: %w", err)
	}
	defer f.Close()

	return sheetFromFile(f)
}

func sheetFromFile(f *excelize.File) (*Sheet, error) {
	name := f.GetSheetName(0)
	if name == "" {
		return nil, fmt.Errorf("el archivo no tiene hojas")
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("no se pudo leer la hoja %s: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("archivo Excel vacío")
	}

	headerIdx := DetectHeaderRow(rows)
	header := make([]string, len(rows[headerIdx]))
	for i, h := range rows[headerIdx] {
		header[i] = strings.ToUpper(strings.TrimSpace(h))
	}

	return &Sheet{Header: header, Rows: rows[headerIdx+1:], HeaderRow: headerIdx}, nil
}

// headerKeywords drive DetectHeaderRow: a row containing at least five
// non-empty cells and any of these words is taken as the header.
var headerKeywords = []string{"RUT", "NOMBRE", "POLIZA", "VIGENCIA", "PRIMA", "CLIENTE", "CONTRATANTE", "NUMERO"}

// DetectHeaderRow scans raw rows for the first plausible header row (the
// legacy import path, where files carry title banners above the table).
// Returns 0 when no better candidate is found.
func DetectHeaderRow(rows [][]string) int {
	for idx, row := range rows {
		nonEmpty := 0
		joined := strings.Builder{}
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				nonEmpty++
				joined.WriteString(strings.ToUpper(cell))
				joined.WriteString(" ")
			}
		}
		if nonEmpty < 5 {
			continue
		}
		rowText := joined.String()
		for _, kw := range headerKeywords {
			if strings.Contains(rowText, kw) {
				return idx
			}
		}
	}
	return 0
}

// RawRow is a typed accessor over one spreadsheet row, resolved through the
// canonical column mapping. Lookups on unmapped or short rows return the
// empty string rather than failing.
type RawRow struct {
	header []string
	mapped map[string]int
	cells  []string
}

// NewRawRow builds an accessor for one data row.
func NewRawRow(header []string, mapped map[string]int, cells []string) RawRow {
	return RawRow{header: header, mapped: mapped, cells: cells}
}

// Get returns the trimmed cell under the canonical column, or "".
func (r RawRow) Get(canonical string) string {
	idx, ok := r.mapped[canonical]
	if !ok || idx >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[idx])
}

// Empty reports whether every cell in the row is blank.
func (r RawRow) Empty() bool {
	for _, c := range r.cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Payload renders the row as a column-name -> value map for error records
// and previews.
func (r RawRow) Payload() map[string]any {
	out := make(map[string]any, len(r.header))
	for i, name := range r.header {
		if name == "" {
			continue
		}
		var v any
		if i < len(r.cells) {
			v = r.cells[i]
		}
		out[name] = v
	}
	return out
}
