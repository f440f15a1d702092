package services

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"

	"district-dashboard/internal/models"
)

var quarterRe = regexp.MustCompile(`^\d{4}[1-4]$`)

// FormatQuarter renders a quarter code as "YYYY Qn": the first four
// characters are the year and the last one the quarter number. Codes too
// short to split are returned unchanged.
func FormatQuarter(code string) string {
	if len(code) < 5 {
		return code
	}
	return fmt.Sprintf("%s Q%s", code[:4], code[len(code)-1:])
}

func ValidateQuarter(code string) error {
	if !quarterRe.MatchString(code) {
		return fmt.Errorf("%w: %q", ErrInvalidQuarter, code)
	}
	return nil
}

func NewQuarter(code string) models.Quarter {
	return models.Quarter{Code: code, Label: FormatQuarter(code)}
}

// DistinctQuarters lists the quarters present in the store source, most
// recent first.
func DistinctQuarters(stores []models.StoreRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range stores {
		if !seen[s.Quarter] {
			seen[s.Quarter] = true
			out = append(out, s.Quarter)
		}
	}
	slices.SortFunc(out, func(a, b string) int { return cmp.Compare(b, a) })
	return out
}
