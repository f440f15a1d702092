package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"district-dashboard/internal/errors"
	"district-dashboard/internal/models"
	"district-dashboard/internal/observability"
	"district-dashboard/internal/services"
)

// signals mirrors the selection state the page keeps in Datastar signals.
type signals struct {
	Quarter     string `json:"quarter"`
	Search      string `json:"search"`
	Subdivision string `json:"subdivision"`
}

var fragmentFuncs = template.FuncMap{
	"num": formatNumber,
	"inc": func(i int) int { return i + 1 },
	"dict": func(kv ...any) map[string]any {
		m := make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			m[kv[i].(string)] = kv[i+1]
		}
		return m
	},
}

var rankingsTemplate = template.Must(template.New("rankings").Funcs(fragmentFuncs).Parse(`
<div id="rankings">
<h2>{{.Quarter.Label}}</h2>
{{template "table" (dict "Title" "Stores" "Rows" .Rankings.ByStoreCount)}}
{{template "table" (dict "Title" "Sales" "Rows" .Rankings.BySales)}}
{{template "table" (dict "Title" "Sales per store" "Rows" .Rankings.ByPerStoreSales)}}
</div>
{{define "table"}}<table class="modern-table">
<thead><tr><th>#</th><th>Subdivision</th><th>{{.Title}}</th></tr></thead>
<tbody>
{{range $i, $e := .Rows}}<tr><td>{{inc $i}}</td><td>{{$e.Name}}</td><td>{{num $e.Value}}</td></tr>
{{end}}</tbody>
</table>{{end}}`))

var metricsTemplate = template.Must(template.New("metrics").Funcs(fragmentFuncs).Parse(`
<div id="detail">
<h2>{{.Name}} <small>{{.Quarter.Label}}</small></h2>
<div class="metric-cards">
<div class="metric-card"><span>Stores</span><strong>{{num .Metrics.StoreCount}}</strong></div>
<div class="metric-card"><span>Foot traffic</span><strong>{{num .Metrics.FootTraffic}}</strong></div>
<div class="metric-card"><span>Sales</span><strong>{{num .Metrics.Sales}}</strong></div>
<div class="metric-card"><span>Sales per store</span><strong>{{num .Metrics.PerStoreSales}}</strong></div>
</div>
</div>`))

var optionsTemplate = template.Must(template.New("options").Parse(`
<select id="subdivision-select" data-bind-subdivision data-on-change="@get('/sse/detail')">
{{range .}}<option value="{{.}}">{{.}}</option>
{{end}}</select>`))

var noticeTemplate = template.Must(template.New("notice").Parse(
	`<div id="notice"{{if .}} class="notice"{{end}}>{{.}}</div>`))

// formatNumber renders whole amounts with thousands separators.
func formatNumber(v any) string {
	p := message.NewPrinter(language.Korean)
	switch n := v.(type) {
	case int:
		return p.Sprintf("%d", n)
	case float64:
		return p.Sprintf("%d", int64(math.Round(n)))
	default:
		return p.Sprint(n)
	}
}

func render(t *template.Template, data any) (string, error) {
	var buf strings.Builder
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// noticeFor turns a pipeline error into the message shown in place of the
// results.
func noticeFor(err error) string {
	switch errors.FromDomain(err).Code {
	case errors.CodeEmptyResult:
		return "No data for this quarter."
	case errors.CodeMissingSubdivision:
		return "No data for this subdivision."
	case errors.CodeValidation:
		return "Invalid quarter selection."
	case errors.CodeDataSourceUnavailable:
		return "Data source unavailable."
	default:
		return "Something went wrong. Please try again."
	}
}

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func (h *SSEHandlers) readSignals(r *http.Request) signals {
	var s signals
	if err := datastar.ReadSignals(r, &s); err != nil {
		observability.LoggerFromContext(r.Context(), h.logger).Debug("no signals in request", "error", err)
	}
	return s
}

// notify replaces the notice element. An empty message clears it.
func (h *SSEHandlers) notify(r *http.Request, sse *datastar.ServerSentEventGenerator, err error) {
	msg := ""
	if err != nil {
		msg = noticeFor(err)
		level := slog.LevelInfo
		if errors.FromDomain(err).StatusCode >= 500 {
			level = slog.LevelError
		}
		observability.LoggerFromContext(r.Context(), h.logger).Log(r.Context(), level, "selection produced no view", "error", err)
	}
	html, renderErr := render(noticeTemplate, msg)
	if renderErr != nil {
		h.logger.Error("render notice", "error", renderErr)
		return
	}
	sse.PatchElements(html)
}

func (h *SSEHandlers) patchSignals(sse *datastar.ServerSentEventGenerator, v map[string]any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("marshal signals", "error", err)
		return
	}
	sse.PatchSignals(data)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) sendOverview(r *http.Request, sse *datastar.ServerSentEventGenerator, quarter string) {
	ov, err := h.analytics.Overview(r.Context(), quarter)
	if err != nil {
		h.notify(r, sse, err)
		h.patchSignals(sse, map[string]any{
			"mapPoints":  []models.MapPoint{},
			"scatter":    []models.ScatterPoint{},
			"breakdowns": []models.Breakdown{},
		})
		return
	}

	html, err := render(rankingsTemplate, ov)
	if err != nil {
		h.logger.Error("render rankings", "error", err)
		return
	}
	h.notify(r, sse, nil)
	sse.PatchElements(html)
	sse.PatchElements(`<div id="detail"></div>`)
	h.patchSignals(sse, map[string]any{
		"quarter":    ov.Quarter.Code,
		"mapPoints":  ov.MapPoints,
		"scatter":    ov.Scatter,
		"breakdowns": []models.Breakdown{},
	})
}

func (h *SSEHandlers) HandleOverview(w http.ResponseWriter, r *http.Request) {
	s := h.readSignals(r)
	sse := datastar.NewSSE(w, r)

	h.sendOverview(r, sse, s.Quarter)
	flush(w)
}

// HandleSearch refreshes the subdivision selector for the current quarter
// and search text.
func (h *SSEHandlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	s := h.readSignals(r)
	sse := datastar.NewSSE(w, r)

	names, err := h.analytics.Search(r.Context(), s.Quarter, s.Search)
	if err != nil {
		h.notify(r, sse, err)
		names = []string{services.AllSubdivisions}
	}

	html, renderErr := render(optionsTemplate, names)
	if renderErr != nil {
		h.logger.Error("render selector", "error", renderErr)
		return
	}
	sse.PatchElements(html)
	flush(w)
}

// HandleDetail shows the selected subdivision, or the overview when the
// selection is empty or the ALL sentinel.
func (h *SSEHandlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	s := h.readSignals(r)
	sse := datastar.NewSSE(w, r)
	defer flush(w)

	if s.Subdivision == "" || s.Subdivision == services.AllSubdivisions {
		h.sendOverview(r, sse, s.Quarter)
		return
	}

	detail, err := h.analytics.Detail(r.Context(), s.Quarter, s.Subdivision)
	if err != nil {
		h.notify(r, sse, err)
		sse.PatchElements(`<div id="detail"></div>`)
		h.patchSignals(sse, map[string]any{"breakdowns": []models.Breakdown{}})
		return
	}

	html, err := render(metricsTemplate, detail)
	if err != nil {
		h.logger.Error("render metrics", "error", err)
		return
	}
	h.notify(r, sse, nil)
	sse.PatchElements(html)
	h.patchSignals(sse, map[string]any{"breakdowns": detail.Breakdowns})
}
