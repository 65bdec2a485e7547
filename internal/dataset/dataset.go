// Package dataset holds the in-memory table handed to the ensemble and
// the readers that build it from CSV and SQLite files.
package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// Row is a single record, aligned positionally with Dataset.Columns. A
// nil cell is a missing value.
type Row []interface{}

type Dataset struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

func New(columns []string) *Dataset {
	return &Dataset{Columns: columns}
}

func (d *Dataset) Len() int {
	return len(d.Rows)
}

func (d *Dataset) Append(row Row) error {
	if len(row) != len(d.Columns) {
		return fmt.Errorf("row has %d cells, dataset has %d columns", len(row), len(d.Columns))
	}
	d.Rows = append(d.Rows, row)
	return nil
}

// Validate checks that every row is aligned with the column list.
func (d *Dataset) Validate() error {
	for i, row := range d.Rows {
		if len(row) != len(d.Columns) {
			return fmt.Errorf("row %d has %d cells, dataset has %d columns", i, len(row), len(d.Columns))
		}
	}
	return nil
}

// Column returns the cells of the named column in row order.
func (d *Dataset) Column(name string) ([]interface{}, bool) {
	idx := -1
	for i, c := range d.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	values := make([]interface{}, len(d.Rows))
	for i, row := range d.Rows {
		values[i] = row[idx]
	}
	return values, true
}

// IsMissing reports whether the cell carries no value.
func IsMissing(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// ToFloat coerces a cell to float64. Missing cells and non-numeric
// strings are not coercible.
func ToFloat(v interface{}) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int32:
		return float64(value), true
	case int64:
		return float64(value), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
