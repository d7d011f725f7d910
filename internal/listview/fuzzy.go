package listview

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// fuzzyMatch reports whether query approximately occurs in field. An exact
// case-insensitive substring always matches; otherwise a window of the
// query's length slides over the field and the best edit distance is compared
// against a budget of one typo per four query characters (minimum one).
// Deterministic for identical input.
func fuzzyMatch(query, field string) bool {
	q := strings.ToLower(query)
	f := strings.ToLower(field)
	if q == "" {
		return true
	}
	if strings.Contains(f, q) {
		return true
	}

	budget := 1 + len([]rune(q))/4
	return bestWindowDistance(q, f) <= budget
}

// bestWindowDistance returns the minimum edit distance between query and any
// substring of field with the same rune length. A field shorter than the
// query is compared whole.
func bestWindowDistance(query, field string) int {
	qr := []rune(query)
	fr := []rune(field)

	if len(fr) <= len(qr) {
		return levenshtein.ComputeDistance(query, field)
	}

	best := len(qr) + 1
	for i := 0; i+len(qr) <= len(fr); i++ {
		d := levenshtein.ComputeDistance(query, string(fr[i:i+len(qr)]))
		if d < best {
			best = d
		}
		if best == 0 {
			break
		}
	}
	return best
}
