package services

import (
	"cmp"
	"slices"

	"district-dashboard/internal/models"
)

const rankingSize = 15

// MapPoints keeps the rows that have coordinates.
func MapPoints(rows []models.JoinedRow) []models.MapPoint {
	out := make([]models.MapPoint, 0, len(rows))
	for _, r := range rows {
		if !r.HasCoordinates() {
			continue
		}
		out = append(out, models.MapPoint{
			Name:          r.Name,
			Lat:           *r.Lat,
			Lon:           *r.Lon,
			StoreCount:    r.StoreCount,
			Sales:         r.Sales,
			PerStoreSales: r.PerStoreSales,
		})
	}
	return out
}

func ScatterPoints(rows []models.JoinedRow) []models.ScatterPoint {
	out := make([]models.ScatterPoint, len(rows))
	for i, r := range rows {
		out[i] = models.ScatterPoint{
			Name:          r.Name,
			FootTraffic:   r.FootTraffic,
			StoreCount:    r.StoreCount,
			Sales:         r.Sales,
			PerStoreSales: r.PerStoreSales,
		}
	}
	return out
}

func BuildRankings(rows []models.JoinedRow) models.Rankings {
	return models.Rankings{
		ByStoreCount:    topBy(rows, func(r models.JoinedRow) float64 { return float64(r.StoreCount) }),
		BySales:         topBy(rows, func(r models.JoinedRow) float64 { return r.Sales }),
		ByPerStoreSales: topBy(rows, func(r models.JoinedRow) float64 { return r.PerStoreSales }),
	}
}

// topBy returns the rankingSize largest rows by value, descending. Ties keep
// name order.
func topBy(rows []models.JoinedRow, value func(models.JoinedRow) float64) []models.RankEntry {
	result := make([]models.RankEntry, 0, len(rows))
	for _, r := range rows {
		result = append(result, models.RankEntry{Name: r.Name, Value: value(r)})
	}
	slices.SortFunc(result, func(a, b models.RankEntry) int {
		return cmp.Or(cmp.Compare(b.Value, a.Value), cmp.Compare(a.Name, b.Name))
	})
	if len(result) > rankingSize {
		result = result[:rankingSize]
	}
	return result
}
