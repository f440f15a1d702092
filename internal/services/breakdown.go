package services

import (
	"fmt"

	"district-dashboard/internal/models"
	"district-dashboard/internal/schema"
)

// ExtractBreakdowns reshapes one subdivision's wide columns into paired tall
// tables, one pair per dimension. Foot-traffic values are summed over the
// subdivision's raw rows; sales values come from the joined row. Categories
// follow the declared entry order in both tables.
func ExtractBreakdowns(row models.JoinedRow, traffic []models.FootTrafficRecord, dims []schema.Dimension) ([]models.Breakdown, error) {
	if len(traffic) == 0 {
		return nil, fmt.Errorf("%w: no demographic data for %s", ErrMissingSubdivisionData, row.Name)
	}

	out := make([]models.Breakdown, 0, len(dims))
	for _, d := range dims {
		cols := make([]string, len(d.Entries))
		for i, e := range d.Entries {
			cols[i] = e.FootTraffic
		}
		sums := SumValues(traffic, cols)

		b := models.Breakdown{
			Dimension:   d.Name,
			Title:       d.Title,
			FootTraffic: make([]models.CategoryValue, len(d.Entries)),
			Sales:       make([]models.CategoryValue, len(d.Entries)),
		}
		for i, e := range d.Entries {
			b.FootTraffic[i] = models.CategoryValue{Category: e.Label, Value: sums[e.FootTraffic]}
			b.Sales[i] = models.CategoryValue{Category: e.Label, Value: row.SalesValues[e.Sales]}
		}
		out = append(out, b)
	}
	return out, nil
}
