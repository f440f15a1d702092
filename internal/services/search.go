package services

import (
	"slices"
	"strings"

	"district-dashboard/internal/models"
)

// AllSubdivisions is the selector entry that requests the aggregate view.
const AllSubdivisions = "ALL"

// SearchSubdivisions returns the distinct subdivision names of rows, sorted,
// keeping those that contain query. The AllSubdivisions sentinel is always
// first.
func SearchSubdivisions(rows []models.JoinedRow, query string) []string {
	seen := make(map[string]bool, len(rows))
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		if !seen[r.Name] {
			seen[r.Name] = true
			names = append(names, r.Name)
		}
	}
	slices.Sort(names)

	out := make([]string, 0, len(names)+1)
	out = append(out, AllSubdivisions)
	for _, n := range names {
		if query == "" || strings.Contains(n, query) {
			out = append(out, n)
		}
	}
	return out
}
