// Package schema declares which source columns feed which record fields and
// how breakdown columns pair up across foot traffic and sales. Column names
// live here and nowhere else.
package schema

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

//go:embed default.yaml
var defaultYAML []byte

type StoreColumns struct {
	Quarter    string `yaml:"quarter"`
	Code       string `yaml:"code"`
	Name       string `yaml:"name"`
	Category   string `yaml:"category"`
	StoreCount string `yaml:"store_count"`
}

type FootTrafficColumns struct {
	Quarter string `yaml:"quarter"`
	Code    string `yaml:"code"`
	Name    string `yaml:"name"`
	Total   string `yaml:"total"`
}

type SalesColumns struct {
	Quarter  string `yaml:"quarter"`
	Code     string `yaml:"code"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Total    string `yaml:"total"`
}

// CoordinateColumns describes the lookup table. Code is optional: when the
// file has no such column, coordinates are matched by name.
type CoordinateColumns struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
	Lat  string `yaml:"lat"`
	Lon  string `yaml:"lon"`
}

type Entry struct {
	Label       string `yaml:"label"`
	FootTraffic string `yaml:"foot_traffic"`
	Sales       string `yaml:"sales"`
}

// Dimension is one breakdown grouping. Entries are iterated in declared
// order by every consumer.
type Dimension struct {
	Name    string  `yaml:"dimension"`
	Title   string  `yaml:"title"`
	Entries []Entry `yaml:"entries"`
}

type Schema struct {
	Stores      StoreColumns       `yaml:"stores"`
	FootTraffic FootTrafficColumns `yaml:"foot_traffic"`
	Sales       SalesColumns       `yaml:"sales"`
	Coordinates CoordinateColumns  `yaml:"coordinates"`
	Breakdowns  []Dimension        `yaml:"breakdowns"`
}

// Default returns the embedded schema for the Seoul district exports.
func Default() *Schema {
	s, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded schema: %v", err))
	}
	return s
}

// Load reads a schema file, or returns the embedded default when path is
// empty.
func Load(path string) (*Schema, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.UnmarshalWithOptions(data, &s, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Schema) Validate() error {
	required := map[string]string{
		"stores.quarter":       s.Stores.Quarter,
		"stores.code":          s.Stores.Code,
		"stores.name":          s.Stores.Name,
		"stores.category":      s.Stores.Category,
		"stores.store_count":   s.Stores.StoreCount,
		"foot_traffic.quarter": s.FootTraffic.Quarter,
		"foot_traffic.code":    s.FootTraffic.Code,
		"foot_traffic.name":    s.FootTraffic.Name,
		"foot_traffic.total":   s.FootTraffic.Total,
		"sales.quarter":        s.Sales.Quarter,
		"sales.code":           s.Sales.Code,
		"sales.name":           s.Sales.Name,
		"sales.category":       s.Sales.Category,
		"sales.total":          s.Sales.Total,
		"coordinates.name":     s.Coordinates.Name,
		"coordinates.lat":      s.Coordinates.Lat,
		"coordinates.lon":      s.Coordinates.Lon,
	}
	for field, column := range required {
		if strings.TrimSpace(column) == "" {
			return fmt.Errorf("schema: %s column is required", field)
		}
	}

	seenDims := make(map[string]bool, len(s.Breakdowns))
	for i, d := range s.Breakdowns {
		if d.Name == "" {
			return fmt.Errorf("schema: breakdown %d has no dimension name", i)
		}
		if seenDims[d.Name] {
			return fmt.Errorf("schema: duplicate breakdown dimension %q", d.Name)
		}
		seenDims[d.Name] = true

		if len(d.Entries) == 0 {
			return fmt.Errorf("schema: breakdown %q has no entries", d.Name)
		}
		labels := make(map[string]bool, len(d.Entries))
		for j, e := range d.Entries {
			if e.Label == "" || e.FootTraffic == "" || e.Sales == "" {
				return fmt.Errorf("schema: breakdown %q entry %d needs label, foot_traffic and sales", d.Name, j)
			}
			if labels[e.Label] {
				return fmt.Errorf("schema: breakdown %q repeats label %q", d.Name, e.Label)
			}
			labels[e.Label] = true
		}
	}
	return nil
}

// FootTrafficValueColumns lists every foot-traffic breakdown column, in
// declaration order, without duplicates.
func (s *Schema) FootTrafficValueColumns() []string {
	return s.valueColumns(func(e Entry) string { return e.FootTraffic })
}

func (s *Schema) SalesValueColumns() []string {
	return s.valueColumns(func(e Entry) string { return e.Sales })
}

func (s *Schema) valueColumns(pick func(Entry) string) []string {
	var cols []string
	seen := make(map[string]bool)
	for _, d := range s.Breakdowns {
		for _, e := range d.Entries {
			c := pick(e)
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}
	return cols
}

func (s *Schema) StoreRequired() []string {
	c := s.Stores
	return []string{c.Quarter, c.Code, c.Name, c.Category, c.StoreCount}
}

func (s *Schema) FootTrafficRequired() []string {
	c := s.FootTraffic
	return append([]string{c.Quarter, c.Code, c.Name, c.Total}, s.FootTrafficValueColumns()...)
}

func (s *Schema) SalesRequired() []string {
	c := s.Sales
	return append([]string{c.Quarter, c.Code, c.Name, c.Category, c.Total}, s.SalesValueColumns()...)
}

// CoordinateRequired omits the code column, which is optional.
func (s *Schema) CoordinateRequired() []string {
	c := s.Coordinates
	return []string{c.Name, c.Lat, c.Lon}
}
