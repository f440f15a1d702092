package services

import (
	"district-dashboard/internal/models"
)

// JoinQuarter filters the store, aggregated foot-traffic and sales tables to
// one quarter and inner-joins them on (code, name), store first. Coordinates
// are left-joined afterwards. Rows keep store-source order.
//
// An empty join returns ErrEmptyResultSet.
func JoinQuarter(ds *models.Dataset, totals []models.TrafficTotal, quarter string) ([]models.JoinedRow, error) {
	traffic := make(map[models.SubdivisionKey][]models.TrafficTotal)
	for _, t := range totals {
		if t.Quarter == quarter {
			k := models.SubdivisionKey{Code: t.Code, Name: t.Name}
			traffic[k] = append(traffic[k], t)
		}
	}

	sales := make(map[models.SubdivisionKey][]models.SalesRecord)
	for _, s := range ds.Sales {
		if s.Quarter == quarter {
			k := models.SubdivisionKey{Code: s.Code, Name: s.Name}
			sales[k] = append(sales[k], s)
		}
	}

	coords := newCoordinateIndex(ds.Coordinates)

	var rows []models.JoinedRow
	for _, st := range ds.Stores {
		if st.Quarter != quarter {
			continue
		}
		k := models.SubdivisionKey{Code: st.Code, Name: st.Name}
		for _, t := range traffic[k] {
			for _, s := range sales[k] {
				row := models.JoinedRow{
					Quarter:       quarter,
					Code:          st.Code,
					Name:          st.Name,
					StoreCount:    st.StoreCount,
					FootTraffic:   t.Total,
					Sales:         s.Total,
					PerStoreSales: PerStoreSales(s.Total, st.StoreCount),
					SalesValues:   s.Values,
				}
				if c, ok := coords.lookup(k); ok {
					lat, lon := c.Lat, c.Lon
					row.Lat, row.Lon = &lat, &lon
				}
				rows = append(rows, row)
			}
		}
	}

	if len(rows) == 0 {
		return nil, ErrEmptyResultSet
	}
	return rows, nil
}

// coordinateIndex resolves a subdivision to a coordinate, preferring the
// code. The name is only used when it identifies a single coordinate row and
// that row carries no code of its own; a row coded for another district is
// never borrowed by name.
type coordinateIndex struct {
	byCode map[string]models.CoordinateRecord
	byName map[string][]models.CoordinateRecord
}

func newCoordinateIndex(records []models.CoordinateRecord) *coordinateIndex {
	ix := &coordinateIndex{
		byCode: make(map[string]models.CoordinateRecord),
		byName: make(map[string][]models.CoordinateRecord),
	}
	for _, r := range records {
		if r.Code != "" {
			ix.byCode[r.Code] = r
		}
		ix.byName[r.Name] = append(ix.byName[r.Name], r)
	}
	return ix
}

func (ix *coordinateIndex) lookup(k models.SubdivisionKey) (models.CoordinateRecord, bool) {
	if c, ok := ix.byCode[k.Code]; ok && k.Code != "" {
		return c, true
	}
	if named := ix.byName[k.Name]; len(named) == 1 && (named[0].Code == "" || k.Code == "") {
		return named[0], true
	}
	return models.CoordinateRecord{}, false
}
