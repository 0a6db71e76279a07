// Package storage reads and writes the delimited band table. Columns are
// looked up by header name so older readers survive schema additions, and
// empty cells mean "not yet computed", never zero.
package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"TrendBands/internal/dayindex"
	"TrendBands/internal/model"
)

// ErrNoDateColumn is returned when the header lacks the date column.
var ErrNoDateColumn = errors.New("table header has no date column")

// SignificantDigits is the number of significant digits written for numeric
// cells, independent of magnitude.
const SignificantDigits = 12

// Record is one parsed table row. Values holds only cells that were present
// and numeric.
type Record struct {
	Date   time.Time
	Values map[string]float64
}

// Get returns the named value and whether the cell was present.
func (r Record) Get(column string) (float64, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// Table is a parsed band table in ascending date order.
type Table struct {
	Columns []string
	Records []Record
	// Skipped counts rows with a malformed date plus non-numeric cells.
	Skipped int
}

// Index returns the present cells of every record keyed by DateLayout date
// and then by column name.
func (t *Table) Index() map[string]map[string]float64 {
	idx := make(map[string]map[string]float64, len(t.Records))
	for _, r := range t.Records {
		idx[r.Date.Format(model.DateLayout)] = r.Values
	}
	return idx
}

// PriceRows extracts the close columns of currencies.
func (t *Table) PriceRows(currencies []string) []model.PriceRow {
	rows := make([]model.PriceRow, 0, len(t.Records))
	for _, r := range t.Records {
		closes := make(map[string]float64, len(currencies))
		for _, cur := range currencies {
			if v, ok := r.Get(model.CloseColumn(cur)); ok {
				closes[cur] = v
			}
		}
		rows = append(rows, model.PriceRow{Date: r.Date, Closes: closes})
	}
	return rows
}

// Read parses a table. The first row is the header.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoDateColumn
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}
	dateIdx := -1
	for i, h := range header {
		if h == model.DateColumn {
			dateIdx = i
			break
		}
	}
	if dateIdx < 0 {
		return nil, ErrNoDateColumn
	}

	t := &Table{Columns: header}
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if dateIdx >= len(fields) {
			t.Skipped++
			continue
		}
		date, ok := dayindex.ParseDate(fields[dateIdx])
		if !ok {
			t.Skipped++
			continue
		}
		rec := Record{Date: date, Values: make(map[string]float64)}
		for i, raw := range fields {
			if i == dateIdx || i >= len(header) {
				continue
			}
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				t.Skipped++
				continue
			}
			rec.Values[header[i]] = v
		}
		t.Records = append(t.Records, rec)
	}
	sort.SliceStable(t.Records, func(i, j int) bool { return t.Records[i].Date.Before(t.Records[j].Date) })
	return t, nil
}

// Load reads a table from path. A missing file yields an empty table.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Table{}, nil
		}
		return nil, err
	}
	defer f.Close()
	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}

// Write writes rows under the given column order. Missing cells are empty.
func Write(w io.Writer, columns []string, rows []model.EnrichedRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	fields := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			if col == model.DateColumn {
				fields[i] = row.Date.Format(model.DateLayout)
				continue
			}
			fields[i] = FormatCell(row.Cell(col))
		}
		if err := cw.Write(fields); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Save writes rows to path through a temporary file and a rename.
func Save(path string, columns []string, rows []model.EnrichedRow) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, columns, rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// FormatCell renders a cell value rounded to SignificantDigits with trailing
// zeros trimmed. Missing cells render empty.
func FormatCell(c model.Cell) string {
	v, ok := c.Get()
	if !ok {
		return ""
	}
	d := decimal.NewFromFloat(v)
	if v == 0 {
		return d.String()
	}
	exp := int32(math.Floor(math.Log10(math.Abs(v))))
	return d.Round(SignificantDigits - 1 - exp).String()
}
