package services

import (
	"cmp"
	"slices"

	"district-dashboard/internal/models"
)

type trafficKey struct {
	quarter string
	code    string
	name    string
}

// AggregateFootTraffic collapses raw foot-traffic rows into one total per
// (quarter, code, name). The output is sorted by that key.
func AggregateFootTraffic(records []models.FootTrafficRecord) []models.TrafficTotal {
	groups := make(map[trafficKey]float64)
	for _, r := range records {
		groups[trafficKey{r.Quarter, r.Code, r.Name}] += r.Total
	}

	result := make([]models.TrafficTotal, 0, len(groups))
	for k, total := range groups {
		result = append(result, models.TrafficTotal{
			Quarter: k.quarter,
			Code:    k.code,
			Name:    k.name,
			Total:   total,
		})
	}
	slices.SortFunc(result, func(a, b models.TrafficTotal) int {
		return cmp.Or(
			cmp.Compare(a.Quarter, b.Quarter),
			cmp.Compare(a.Code, b.Code),
			cmp.Compare(a.Name, b.Name),
		)
	})
	return result
}

// SumValues adds up the named breakdown columns across rows.
func SumValues(records []models.FootTrafficRecord, columns []string) map[string]float64 {
	out := make(map[string]float64, len(columns))
	for _, c := range columns {
		out[c] = 0
	}
	for _, r := range records {
		for _, c := range columns {
			out[c] += r.Values[c]
		}
	}
	return out
}

// FootTrafficFor returns the raw rows of one subdivision in one quarter.
func FootTrafficFor(records []models.FootTrafficRecord, quarter string, key models.SubdivisionKey) []models.FootTrafficRecord {
	var out []models.FootTrafficRecord
	for _, r := range records {
		if r.Quarter == quarter && r.Code == key.Code && r.Name == key.Name {
			out = append(out, r)
		}
	}
	return out
}
