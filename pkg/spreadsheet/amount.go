package spreadsheet

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseAmount converts a Chilean-formatted amount string (thousands dot,
// decimal comma) to a float. It fails on empty or non-numeric input and
// never substitutes zero for a malformed value; only the caller decides
// whether an absent amount means 0.0.
func ParseAmount(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("monto vacío")
	}

	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("no se puede convertir %q a float: %w", raw, err)
	}
	return v, nil
}
