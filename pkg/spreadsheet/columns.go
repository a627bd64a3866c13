package spreadsheet

import "strings"

// Canonical logical columns the pipeline works with after mapping.
const (
	ColRUT        = "RUT"
	ColClientName = "NOMBRE_CLIENTE"
	ColPolicyNum  = "NUMERO_POLIZA"
	ColVigencia   = "VIGENCIA"
	ColNetPremium = "PRIMA_NETA"
)

// RequiredColumns are the logical columns every policy workbook must map to.
var RequiredColumns = []string{ColRUT, ColClientName, ColPolicyNum, ColVigencia, ColNetPremium}

// columnSynonyms is the curated synonym table per canonical column. Matching
// is exact first, then fuzzy with a 70% similarity threshold.
var columnSynonyms = map[string][]string{
	ColRUT:        {"RUT", "RUT CLIENTE", "RUT CONTRATANTE", "NUMERO RUT"},
	ColClientName: {"NOMBRE", "NOMBRE CLIENTE", "NOMBRE CONTRATANTE", "NOMBRE ASEGURADO"},
	ColPolicyNum:  {"POLIZA", "NUMERO POLIZA", "NUMERO DE POLIZA", "POLIZA NUM"},
	ColVigencia:   {"VIGENCIA", "FECHA VIGENCIA", "PERIODO VIGENCIA"},
	ColNetPremium: {"PRIMA NETA", "PRIMA NETA UF", "PRIMA UF", "PRIMA", "MONTO"},
}

// SimilarityThreshold is the minimum fuzzy score for a synonym match.
const SimilarityThreshold = 70

var accentFolder = strings.NewReplacer(
	"Á", "A", "É", "E", "Í", "I", "Ó", "O", "Ú", "U", "Ü", "U", "Ñ", "N",
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
)

// NormalizeHeader strips accents, trims, uppercases and collapses
// underscores to spaces so "Rut_Contratante" and "RUT CONTRATANTE" compare
// equal.
func NormalizeHeader(name string) string {
	s := accentFolder.Replace(name)
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToUpper(strings.TrimSpace(s))
}

// MapColumns resolves the workbook header to canonical logical columns.
// Returns canonical name -> zero-based column index. A header claims a
// canonical column by exact synonym match, or by the best fuzzy score above
// the threshold. Unclaimed canonical columns are simply absent from the map;
// MissingColumns reports them.
func MapColumns(header []string) map[string]int {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = NormalizeHeader(h)
	}

	mapped := make(map[string]int)
	claimed := make(map[int]bool)

	for _, target := range RequiredColumns {
		bestScore := 0
		bestIdx := -1
		for i, name := range normalized {
			if claimed[i] || name == "" {
				continue
			}
			for _, syn := range columnSynonyms[target] {
				score := similarity(name, NormalizeHeader(syn))
				if score > bestScore {
					bestScore = score
					bestIdx = i
				}
			}
		}
		if bestScore > SimilarityThreshold && bestIdx >= 0 {
			mapped[target] = bestIdx
			claimed[bestIdx] = true
		}
	}

	// Legacy files carry the policy number under "NUMERO DOCUMENTO".
	if _, ok := mapped[ColPolicyNum]; !ok {
		for i, name := range normalized {
			if claimed[i] {
				continue
			}
			if strings.Contains(name, "NUMERO") && strings.Contains(name, "DOCUMENT") {
				mapped[ColPolicyNum] = i
				claimed[i] = true
				break
			}
		}
	}

	return mapped
}

// MissingColumns lists required logical columns absent from a mapping.
func MissingColumns(mapped map[string]int) []string {
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := mapped[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

// similarity scores two strings 0..100 from their Levenshtein distance
// relative to the longer string.
func similarity(a, b string) int {
	if a == b {
		return 100
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 100
	}
	return 100 - levenshteinDistance(a, b)*100/longest
}

// levenshteinDistance calculates the edit distance between two strings
// using a two-row DP table.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}
			curr[j] = minInt(
				curr[j-1]+1,    // insertion
				prev[j]+1,      // deletion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}

func minInt(a, b, c int) int {
	if a <= b && a <= c {
		return a
	}
	if b <= c {
		return b
	}
	return c
}
