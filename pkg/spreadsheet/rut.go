package spreadsheet

import (
	"regexp"
	"strings"
)

// rutPattern accepts the two shapes seen in production data: dotted
// (NN.NNN.NNN-K) and plain (NNNNNNNN-K). It checks shape only; the check
// digit is not verified mathematically. Downstream code trusts shape-valid
// RUTs, so tightening this would reject data the system currently accepts.
var rutPattern = regexp.MustCompile(`^[0-9]{1,2}\.[0-9]{3}\.[0-9]{3}-[0-9Kk]$|^[0-9]{7,8}-[0-9Kk]$`)

// NormalizeRUT reformats a free-text RUT into NN.NNN.NNN-K. Returns the
// empty string when the input cannot be interpreted; it never fails loudly
// because malformed cells are an expected, frequent condition.
func NormalizeRUT(raw string) string {
	s := strings.ToUpper(raw)
	s = strings.NewReplacer(".", "", " ", "", "-", "").Replace(s)
	if len(s) < 8 {
		return ""
	}

	body := s[:len(s)-1]
	dv := s[len(s)-1:]

	switch {
	case len(body) <= 3:
		return body + "-" + dv
	case len(body) <= 6:
		return body[:len(body)-3] + "." + body[len(body)-3:] + "-" + dv
	default:
		return body[:len(body)-6] + "." + body[len(body)-6:len(body)-3] + "." + body[len(body)-3:] + "-" + dv
	}
}

// IsValidRUT reports whether s already has the normalized RUT shape.
func IsValidRUT(s string) bool {
	if s == "" {
		return false
	}
	return rutPattern.MatchString(s)
}
