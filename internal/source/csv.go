package source

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// table is a header-indexed CSV body.
type table struct {
	cols map[string]int
	rows [][]string
}

func openDecoded(path, encoding string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var r io.Reader = bufio.NewReader(f)
	switch strings.ToLower(encoding) {
	case "euc-kr", "cp949":
		r = transform.NewReader(r, korean.EUCKR.NewDecoder())
	default:
		r = transform.NewReader(r, unicode.BOMOverride(transform.Nop))
	}

	return struct {
		io.Reader
		io.Closer
	}{r, f}, nil
}

func readTable(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := &table{cols: make(map[string]int, len(header))}
	for i, h := range header {
		t.cols[strings.TrimSpace(h)] = i
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(t.rows)+2, err)
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}

func (t *table) require(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if _, ok := t.cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (t *table) has(column string) bool {
	_, ok := t.cols[column]
	return ok
}

func (t *table) get(rec []string, column string) string {
	i, ok := t.cols[column]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// number reads a numeric cell. Blank cells count as zero.
func (t *table) number(rec []string, column string) (float64, error) {
	v := strings.ReplaceAll(t.get(rec, column), ",", "")
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", column, err)
	}
	return f, nil
}

// count reads a whole-number cell. "12.0" is accepted, "3.7" is not.
func (t *table) count(rec []string, column string) (int, error) {
	f, err := t.number(rec, column)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f < 0 {
		return 0, fmt.Errorf("column %s: %v is not a whole non-negative count", column, f)
	}
	return int(f), nil
}

// code normalizes identifier cells that spreadsheet exports sometimes write
// as floats ("20231.0").
func (t *table) code(rec []string, column string) string {
	return strings.TrimSuffix(t.get(rec, column), ".0")
}

func (t *table) values(rec []string, columns []string) (map[string]float64, error) {
	out := make(map[string]float64, len(columns))
	for _, c := range columns {
		v, err := t.number(rec, c)
		if err != nil {
			return nil, err
		}
		out[c] = v
	}
	return out, nil
}
