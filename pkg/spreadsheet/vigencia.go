package spreadsheet

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Candidate layouts for the two halves of a vigencia cell, tried in order.
// Day-first layouts come first because the source files are Chilean.
var vigenciaLayouts = []string{
	"02/01/2006",
	"02-01-2006",
	"2006-01-02",
	"2006/01/02",
	"02/01/06",
	"02-01-06",
	"02.01.2006",
}

// ParseVigencia splits a free-text validity cell of the form
// "DD/MM/YYYY AL DD/MM/YYYY" (the join word is case-insensitive; a bare "A"
// is also accepted) and parses both halves. Day-of-month values beyond the
// end of the month are clamped down to the last valid day, leap years
// included: the source files are known-dirty and a repaired date is more
// useful than a dropped row.
func ParseVigencia(raw string) (time.Time, time.Time, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("vigencia inválida: %q", raw)
	}

	var parts []string
	switch {
	case strings.Contains(s, " AL "):
		parts = strings.SplitN(s, " AL ", 2)
	case strings.Contains(s, "AL"):
		parts = strings.SplitN(s, "AL", 2)
	case strings.Contains(s, " A "):
		parts = strings.SplitN(s, " A ", 2)
	case strings.Contains(s, "A"):
		parts = strings.SplitN(s, "A", 2)
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("vigencia inválida (no contiene 'AL'): %q", raw)
	}

	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("vigencia inválida (no tiene dos fechas): %q", raw)
	}

	start, err := parseVigenciaDate(strings.TrimSpace(parts[0]))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("error al parsear vigencia %q: %w", raw, err)
	}
	end, err := parseVigenciaDate(strings.TrimSpace(parts[1]))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("error al parsear vigencia %q: %w", raw, err)
	}

	return start, end, nil
}

// parseVigenciaDate tries the candidate layouts, then a generic day-first
// split with day clamping.
func parseVigenciaDate(s string) (time.Time, error) {
	for _, layout := range vigenciaLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	// Generic day-first fallback: D<sep>M<sep>Y with out-of-range day repair.
	for _, sep := range []string{"/", "-", "."} {
		fields := strings.Split(s, sep)
		if len(fields) != 3 {
			continue
		}
		day, err1 := strconv.Atoi(strings.TrimSpace(fields[0]))
		month, err2 := strconv.Atoi(strings.TrimSpace(fields[1]))
		year, err3 := strconv.Atoi(strings.TrimSpace(fields[2]))
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		if year < 100 {
			year += 2000
		}
		if month < 1 || month > 12 || day < 1 {
			continue
		}
		if max := daysInMonth(year, month); day > max {
			day = max
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
	}

	return time.Time{}, fmt.Errorf("fecha no reconocida: %q", s)
}

func daysInMonth(year, month int) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
