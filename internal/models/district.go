package models

import "time"

type StoreRecord struct {
	Quarter    string
	Code       string
	Name       string
	Category   string
	StoreCount int
}

// FootTrafficRecord is one raw foot-traffic row. The source is finer grained
// than (quarter, subdivision), so several rows can share a key.
type FootTrafficRecord struct {
	Quarter string
	Code    string
	Name    string
	Total   float64
	Values  map[string]float64
}

type SalesRecord struct {
	Quarter  string
	Code     string
	Name     string
	Category string
	Total    float64
	Values   map[string]float64
}

// CoordinateRecord locates a subdivision. Code is empty when the lookup file
// only carries names.
type CoordinateRecord struct {
	Code string
	Name string
	Lat  float64
	Lon  float64
}

// Dataset is the loaded, category-filtered snapshot of every source. It is
// never mutated after loading.
type Dataset struct {
	Stores      []StoreRecord
	FootTraffic []FootTrafficRecord
	Sales       []SalesRecord
	Coordinates []CoordinateRecord
	LoadedAt    time.Time
}

type SubdivisionKey struct {
	Code string
	Name string
}

type TrafficTotal struct {
	Quarter string  `json:"quarter"`
	Code    string  `json:"code"`
	Name    string  `json:"name"`
	Total   float64 `json:"total"`
}

type JoinedRow struct {
	Quarter       string             `json:"quarter"`
	Code          string             `json:"code"`
	Name          string             `json:"name"`
	StoreCount    int                `json:"store_count"`
	FootTraffic   float64            `json:"foot_traffic"`
	Sales         float64            `json:"sales"`
	PerStoreSales float64            `json:"per_store_sales"`
	Lat           *float64           `json:"lat,omitempty"`
	Lon           *float64           `json:"lon,omitempty"`
	SalesValues   map[string]float64 `json:"-"`
}

func (r JoinedRow) Key() SubdivisionKey {
	return SubdivisionKey{Code: r.Code, Name: r.Name}
}

func (r JoinedRow) HasCoordinates() bool {
	return r.Lat != nil && r.Lon != nil
}
