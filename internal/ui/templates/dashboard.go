// Package templates renders the dashboard page shell. Everything below the
// shell is patched in over Datastar SSE.
//
//go:generate templ generate
package templates

import (
	"encoding/json"

	"district-dashboard/internal/models"
)

type initialSignals struct {
	Quarter     string                `json:"quarter"`
	Search      string                `json:"search"`
	Subdivision string                `json:"subdivision"`
	MapPoints   []models.MapPoint     `json:"mapPoints"`
	Scatter     []models.ScatterPoint `json:"scatter"`
	Breakdowns  []models.Breakdown    `json:"breakdowns"`
}

// signalsJSON seeds the Datastar store with the newest quarter selected and
// empty chart data.
func signalsJSON(quarters []models.Quarter) (string, error) {
	selected := ""
	if len(quarters) > 0 {
		selected = quarters[0].Code
	}
	b, err := json.Marshal(initialSignals{
		Quarter:     selected,
		Subdivision: "ALL",
		MapPoints:   []models.MapPoint{},
		Scatter:     []models.ScatterPoint{},
		Breakdowns:  []models.Breakdown{},
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

const pageStyle = `body{font-family:system-ui,sans-serif;margin:0;background:#f6f4f1;color:#2b2118}
header{display:flex;gap:1rem;align-items:center;flex-wrap:wrap;padding:1rem 2rem;background:#3e2a1e;color:#fff}
main{padding:1rem 2rem}
#map{height:420px}
.charts{display:grid;grid-template-columns:1fr 1fr;gap:1rem}
.notice{padding:.75rem;background:#fff3cd;border:1px solid #e0c36b;margin-bottom:1rem}
.metric-cards{display:grid;grid-template-columns:repeat(4,1fr);gap:1rem}
.metric-card{background:#fff;padding:1rem;border-radius:6px}
.metric-card strong{display:block;font-size:1.4rem}
.modern-table{border-collapse:collapse;margin:1rem 0;background:#fff}
.modern-table td,.modern-table th{padding:.3rem .8rem;border-bottom:1px solid #ddd}`

// chartsScript draws Leaflet and Chart.js views from the patched signals.
const chartsScript = `
let map, layer, scatters = [], breakdownCharts = [];
function drawMap(points) {
  if (!window.L) return;
  if (!map) {
    map = L.map('map').setView([37.5665, 126.978], 11);
    L.tileLayer('https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png').addTo(map);
  }
  if (layer) layer.remove();
  const maxSales = Math.max(1, ...points.map(p => p.sales));
  const maxPer = Math.max(1, ...points.map(p => p.per_store_sales));
  layer = L.layerGroup(points.map(p => L.circleMarker([p.lat, p.lon], {
    radius: 4 + 16 * Math.sqrt(p.sales / maxSales),
    color: 'hsl(' + (120 - 120 * p.per_store_sales / maxPer) + ',70%,40%)',
  }).bindTooltip(p.name + ': ' + p.store_count))).addTo(map);
}
function drawScatter(points) {
  if (!window.Chart) return;
  scatters.forEach(c => c.destroy());
  const maxPer = Math.max(1, ...points.map(p => p.per_store_sales));
  scatters = [
    new Chart(document.getElementById('traffic-scatter'), {
      type: 'scatter',
      data: {datasets: [{label: 'Foot traffic vs stores', data: points.map(p => ({x: p.foot_traffic, y: p.store_count}))}]},
    }),
    new Chart(document.getElementById('sales-scatter'), {
      type: 'bubble',
      data: {datasets: [{label: 'Stores vs sales', data: points.map(p => ({x: p.store_count, y: p.sales, r: 3 + 12 * p.per_store_sales / maxPer}))}]},
    }),
  ];
}
function drawBreakdowns(list) {
  if (!window.Chart) return;
  breakdownCharts.forEach(c => c.destroy());
  breakdownCharts = [];
  const root = document.getElementById('breakdowns');
  root.replaceChildren();
  list.forEach(b => {
    const canvas = document.createElement('canvas');
    root.appendChild(canvas);
    breakdownCharts.push(new Chart(canvas, {
      type: 'bar',
      data: {
        labels: b.foot_traffic.map(v => v.category),
        datasets: [
          {label: b.title + ' foot traffic', data: b.foot_traffic.map(v => v.value)},
          {label: b.title + ' sales', data: b.sales.map(v => v.value)},
        ],
      },
    }));
  });
}`
