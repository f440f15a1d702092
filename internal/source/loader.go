// Package source reads the raw district exports into typed records.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"district-dashboard/internal/models"
	"district-dashboard/internal/observability"
	"district-dashboard/internal/schema"
)

const (
	SourceStores      = "stores"
	SourceFootTraffic = "foot_traffic"
	SourceSales       = "sales"
	SourceCoordinates = "coordinates"
)

var ErrDataSourceUnavailable = errors.New("data source unavailable")

// UnavailableError names the source that could not be read or did not match
// the schema.
type UnavailableError struct {
	Source string
	Path   string
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: source %q (%s): %v", ErrDataSourceUnavailable, e.Source, e.Path, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrDataSourceUnavailable
}

type File struct {
	Path     string
	Encoding string
}

type Options struct {
	Stores      File
	FootTraffic File
	Sales       File
	Coordinates File
	Category    string
	CacheDir    string
}

type Loader struct {
	opts   Options
	schema *schema.Schema
	logger *slog.Logger
}

func NewLoader(opts Options, s *schema.Schema, logger *slog.Logger) *Loader {
	if s == nil {
		s = schema.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{opts: opts, schema: s, logger: logger}
}

// Load reads all four sources concurrently. Store and sales rows are kept
// only for the configured category. The first failing source cancels the
// others.
func (l *Loader) Load(ctx context.Context) (ds *models.Dataset, err error) {
	ctx, span := observability.StartSpan(ctx, "source.Load",
		attribute.String("category", l.opts.Category))
	defer func() { observability.EndSpan(span, err) }()

	if cached, ok := l.loadSnapshot(); ok {
		l.logger.Info("loaded dataset from snapshot",
			"stores", len(cached.Stores),
			"foot_traffic", len(cached.FootTraffic),
			"sales", len(cached.Sales),
		)
		return cached, nil
	}

	start := time.Now()
	ds = &models.Dataset{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := l.loadStores(ctx)
		ds.Stores = rows
		return err
	})
	g.Go(func() error {
		rows, err := l.loadFootTraffic(ctx)
		ds.FootTraffic = rows
		return err
	})
	g.Go(func() error {
		rows, err := l.loadSales(ctx)
		ds.Sales = rows
		return err
	})
	g.Go(func() error {
		rows, err := l.loadCoordinates(ctx)
		ds.Coordinates = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	ds.LoadedAt = time.Now()

	l.logger.Info("sources loaded",
		"stores", len(ds.Stores),
		"foot_traffic", len(ds.FootTraffic),
		"sales", len(ds.Sales),
		"coordinates", len(ds.Coordinates),
		"duration", time.Since(start),
	)

	if err := l.saveSnapshot(ds); err != nil {
		l.logger.Warn("failed to save snapshot", "error", err)
	}
	return ds, nil
}

func (l *Loader) readSource(ctx context.Context, name string, f File, required []string) (*table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fail := func(err error) error {
		return &UnavailableError{Source: name, Path: f.Path, Err: err}
	}

	rc, err := openDecoded(f.Path, f.Encoding)
	if err != nil {
		return nil, fail(err)
	}
	defer rc.Close()

	t, err := readTable(rc)
	if err != nil {
		return nil, fail(err)
	}
	if err := t.require(required...); err != nil {
		return nil, fail(err)
	}

	l.logger.Debug("source read", "source", name, "rows", len(t.rows))
	return t, nil
}

func (l *Loader) loadStores(ctx context.Context) ([]models.StoreRecord, error) {
	t, err := l.readSource(ctx, SourceStores, l.opts.Stores, l.schema.StoreRequired())
	if err != nil {
		return nil, err
	}

	c := l.schema.Stores
	var out []models.StoreRecord
	for i, rec := range t.rows {
		if t.get(rec, c.Category) != l.opts.Category {
			continue
		}
		n, err := t.count(rec, c.StoreCount)
		if err != nil {
			return nil, rowError(SourceStores, l.opts.Stores.Path, i, err)
		}
		out = append(out, models.StoreRecord{
			Quarter:    t.code(rec, c.Quarter),
			Code:       t.code(rec, c.Code),
			Name:       t.get(rec, c.Name),
			Category:   t.get(rec, c.Category),
			StoreCount: n,
		})
	}
	return out, nil
}

func (l *Loader) loadFootTraffic(ctx context.Context) ([]models.FootTrafficRecord, error) {
	t, err := l.readSource(ctx, SourceFootTraffic, l.opts.FootTraffic, l.schema.FootTrafficRequired())
	if err != nil {
		return nil, err
	}

	c := l.schema.FootTraffic
	valueCols := l.schema.FootTrafficValueColumns()
	out := make([]models.FootTrafficRecord, 0, len(t.rows))
	for i, rec := range t.rows {
		total, err := t.number(rec, c.Total)
		if err != nil {
			return nil, rowError(SourceFootTraffic, l.opts.FootTraffic.Path, i, err)
		}
		values, err := t.values(rec, valueCols)
		if err != nil {
			return nil, rowError(SourceFootTraffic, l.opts.FootTraffic.Path, i, err)
		}
		out = append(out, models.FootTrafficRecord{
			Quarter: t.code(rec, c.Quarter),
			Code:    t.code(rec, c.Code),
			Name:    t.get(rec, c.Name),
			Total:   total,
			Values:  values,
		})
	}
	return out, nil
}

func (l *Loader) loadSales(ctx context.Context) ([]models.SalesRecord, error) {
	t, err := l.readSource(ctx, SourceSales, l.opts.Sales, l.schema.SalesRequired())
	if err != nil {
		return nil, err
	}

	c := l.schema.Sales
	valueCols := l.schema.SalesValueColumns()
	var out []models.SalesRecord
	for i, rec := range t.rows {
		if t.get(rec, c.Category) != l.opts.Category {
			continue
		}
		total, err := t.number(rec, c.Total)
		if err != nil {
			return nil, rowError(SourceSales, l.opts.Sales.Path, i, err)
		}
		values, err := t.values(rec, valueCols)
		if err != nil {
			return nil, rowError(SourceSales, l.opts.Sales.Path, i, err)
		}
		out = append(out, models.SalesRecord{
			Quarter:  t.code(rec, c.Quarter),
			Code:     t.code(rec, c.Code),
			Name:     t.get(rec, c.Name),
			Category: t.get(rec, c.Category),
			Total:    total,
			Values:   values,
		})
	}
	return out, nil
}

func (l *Loader) loadCoordinates(ctx context.Context) ([]models.CoordinateRecord, error) {
	t, err := l.readSource(ctx, SourceCoordinates, l.opts.Coordinates, l.schema.CoordinateRequired())
	if err != nil {
		return nil, err
	}

	c := l.schema.Coordinates
	withCode := c.Code != "" && t.has(c.Code)
	out := make([]models.CoordinateRecord, 0, len(t.rows))
	for i, rec := range t.rows {
		lat, err := t.number(rec, c.Lat)
		if err != nil {
			return nil, rowError(SourceCoordinates, l.opts.Coordinates.Path, i, err)
		}
		lon, err := t.number(rec, c.Lon)
		if err != nil {
			return nil, rowError(SourceCoordinates, l.opts.Coordinates.Path, i, err)
		}
		// Rows with blank coordinates cannot be plotted.
		if lat == 0 && lon == 0 {
			continue
		}
		r := models.CoordinateRecord{Name: t.get(rec, c.Name), Lat: lat, Lon: lon}
		if withCode {
			r.Code = t.code(rec, c.Code)
		}
		out = append(out, r)
	}
	return out, nil
}

func rowError(source, path string, idx int, err error) error {
	// idx is zero based over data rows; +2 accounts for the header line.
	return &UnavailableError{Source: source, Path: path, Err: fmt.Errorf("row %d: %w", idx+2, err)}
}
