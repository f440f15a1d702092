package models

type Quarter struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

type MapPoint struct {
	Name          string  `json:"name"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	StoreCount    int     `json:"store_count"`
	Sales         float64 `json:"sales"`
	PerStoreSales float64 `json:"per_store_sales"`
}

type RankEntry struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type Rankings struct {
	ByStoreCount    []RankEntry `json:"by_store_count"`
	BySales         []RankEntry `json:"by_sales"`
	ByPerStoreSales []RankEntry `json:"by_per_store_sales"`
}

type Overview struct {
	Quarter   Quarter        `json:"quarter"`
	Rows      []JoinedRow    `json:"rows"`
	MapPoints []MapPoint     `json:"map_points"`
	Scatter   []ScatterPoint `json:"scatter"`
	Rankings  Rankings       `json:"rankings"`
}

type MetricSet struct {
	StoreCount    int     `json:"store_count"`
	FootTraffic   float64 `json:"foot_traffic"`
	Sales         float64 `json:"sales"`
	PerStoreSales float64 `json:"per_store_sales"`
}

type CategoryValue struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
}

// Breakdown pairs the foot-traffic and sales tables of one dimension. Both
// tables list categories in the same declared order.
type Breakdown struct {
	Dimension   string          `json:"dimension"`
	Title       string          `json:"title"`
	FootTraffic []CategoryValue `json:"foot_traffic"`
	Sales       []CategoryValue `json:"sales"`
}

type Detail struct {
	Quarter    Quarter     `json:"quarter"`
	Code       string      `json:"code"`
	Name       string      `json:"name"`
	Metrics    MetricSet   `json:"metrics"`
	Breakdowns []Breakdown `json:"breakdowns"`
}

// ScatterPoint feeds both overview scatter plots: foot traffic against store
// count, and store count against sales sized by per-store sales.
type ScatterPoint struct {
	Name          string  `json:"name"`
	FootTraffic   float64 `json:"foot_traffic"`
	StoreCount    int     `json:"store_count"`
	Sales         float64 `json:"sales"`
	PerStoreSales float64 `json:"per_store_sales"`
}
