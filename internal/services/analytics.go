package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"district-dashboard/internal/models"
	"district-dashboard/internal/observability"
	"district-dashboard/internal/schema"
)

// defaultLoadTimeout bounds a shared dataset load when no timeout is set.
const defaultLoadTimeout = 30 * time.Second

type DatasetLoader interface {
	Load(ctx context.Context) (*models.Dataset, error)
}

// prepared is the loaded dataset plus everything derivable from it without a
// selection. It is immutable once published.
type prepared struct {
	ds       *models.Dataset
	totals   []models.TrafficTotal
	quarters []string
}

func prepare(ds *models.Dataset) *prepared {
	return &prepared{
		ds:       ds,
		totals:   AggregateFootTraffic(ds.FootTraffic),
		quarters: DistinctQuarters(ds.Stores),
	}
}

// Analytics serves quarter and subdivision views over a dataset that is
// loaded at most once per process. Concurrent first callers share the same
// in-flight load.
type Analytics struct {
	loader DatasetLoader
	schema *schema.Schema
	logger *slog.Logger

	loadTimeout time.Duration

	group singleflight.Group
	state atomic.Pointer[prepared]
	loads atomic.Int64
}

func NewAnalytics(loader DatasetLoader, s *schema.Schema, logger *slog.Logger) *Analytics {
	if s == nil {
		s = schema.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analytics{
		loader:      loader,
		schema:      s,
		logger:      logger,
		loadTimeout: defaultLoadTimeout,
	}
}

// SetLoadTimeout bounds the shared load. It is independent of the caller's
// context, so one canceled request does not fail the others waiting on it.
func (a *Analytics) SetLoadTimeout(d time.Duration) {
	if d > 0 {
		a.loadTimeout = d
	}
}

// SetDataset publishes ds directly, bypassing the loader.
func (a *Analytics) SetDataset(ds *models.Dataset) {
	a.state.Store(prepare(ds))
}

func (a *Analytics) Schema() *schema.Schema {
	return a.schema
}

// Load returns the process-wide dataset, loading it on first use. A failed
// load is not cached, so a later call retries.
func (a *Analytics) Load(ctx context.Context) error {
	_, err := a.current(ctx)
	return err
}

func (a *Analytics) current(ctx context.Context) (*prepared, error) {
	if p := a.state.Load(); p != nil {
		return p, nil
	}
	if a.loader == nil {
		return nil, fmt.Errorf("analytics: no dataset loader configured")
	}

	ch := a.group.DoChan("dataset", func() (any, error) {
		if p := a.state.Load(); p != nil {
			return p, nil
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.loadTimeout)
		defer cancel()

		start := time.Now()
		ds, err := a.loader.Load(loadCtx)
		if err != nil {
			return nil, err
		}
		a.loads.Add(1)
		p := prepare(ds)
		a.state.Store(p)
		a.logger.Info("dataset ready",
			"quarters", len(p.quarters),
			"traffic_keys", len(p.totals),
			"duration", time.Since(start),
		)
		return p, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			a.logger.Debug("joined in-flight dataset load")
		}
		return res.Val.(*prepared), nil
	}
}

func (a *Analytics) Quarters(ctx context.Context) ([]models.Quarter, error) {
	p, err := a.current(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Quarter, len(p.quarters))
	for i, q := range p.quarters {
		out[i] = NewQuarter(q)
	}
	return out, nil
}

// resolveQuarter defaults an empty selection to the most recent quarter.
func (p *prepared) resolveQuarter(quarter string) (string, error) {
	if quarter == "" {
		if len(p.quarters) == 0 {
			return "", ErrEmptyResultSet
		}
		return p.quarters[0], nil
	}
	if err := ValidateQuarter(quarter); err != nil {
		return "", err
	}
	return quarter, nil
}

func (a *Analytics) joined(ctx context.Context, quarter string) (*prepared, string, []models.JoinedRow, error) {
	p, err := a.current(ctx)
	if err != nil {
		return nil, "", nil, err
	}
	q, err := p.resolveQuarter(quarter)
	if err != nil {
		return nil, "", nil, err
	}

	_, span := observability.StartSpan(ctx, "services.JoinQuarter", attribute.String("quarter", q))
	rows, err := JoinQuarter(p.ds, p.totals, q)
	span.SetAttributes(attribute.Int("rows", len(rows)))
	observability.EndSpan(span, err)
	if err != nil {
		return nil, q, nil, err
	}
	return p, q, rows, nil
}

func (a *Analytics) Overview(ctx context.Context, quarter string) (*models.Overview, error) {
	_, q, rows, err := a.joined(ctx, quarter)
	if err != nil {
		return nil, err
	}
	return &models.Overview{
		Quarter:   NewQuarter(q),
		Rows:      rows,
		MapPoints: MapPoints(rows),
		Scatter:   ScatterPoints(rows),
		Rankings:  BuildRankings(rows),
	}, nil
}

func (a *Analytics) Search(ctx context.Context, quarter, query string) ([]string, error) {
	_, _, rows, err := a.joined(ctx, quarter)
	if err != nil {
		return nil, err
	}
	return SearchSubdivisions(rows, query), nil
}

// Detail builds the drill-down for one subdivision name. When several
// subdivisions share the name the first joined row wins.
func (a *Analytics) Detail(ctx context.Context, quarter, name string) (*models.Detail, error) {
	p, q, rows, err := a.joined(ctx, quarter)
	if err != nil {
		return nil, err
	}

	var row *models.JoinedRow
	for i := range rows {
		if rows[i].Name == name {
			row = &rows[i]
			break
		}
	}
	if row == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingSubdivisionData, name)
	}

	traffic := FootTrafficFor(p.ds.FootTraffic, q, row.Key())
	breakdowns, err := ExtractBreakdowns(*row, traffic, a.schema.Breakdowns)
	if err != nil {
		return nil, err
	}

	return &models.Detail{
		Quarter: NewQuarter(q),
		Code:    row.Code,
		Name:    row.Name,
		Metrics: models.MetricSet{
			StoreCount:    row.StoreCount,
			FootTraffic:   row.FootTraffic,
			Sales:         row.Sales,
			PerStoreSales: row.PerStoreSales,
		},
		Breakdowns: breakdowns,
	}, nil
}

// Stats reports the loaded dataset for monitoring. It never triggers a load.
func (a *Analytics) Stats() map[string]any {
	p := a.state.Load()
	if p == nil {
		return map[string]any{"loaded": false}
	}
	return map[string]any{
		"loaded":       true,
		"loaded_at":    p.ds.LoadedAt,
		"loads":        a.loads.Load(),
		"stores":       len(p.ds.Stores),
		"foot_traffic": len(p.ds.FootTraffic),
		"sales":        len(p.ds.Sales),
		"coordinates":  len(p.ds.Coordinates),
		"quarters":     len(p.quarters),
	}
}
