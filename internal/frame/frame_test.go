package frame

import (
	"errors"
	"math"
	"testing"

	"trendspotter/internal/dataset"
)

func newDataset(t *testing.T, columns []string, rows []dataset.Row) *dataset.Dataset {
	t.Helper()
	ds := dataset.New(columns)
	for _, row := range rows {
		if err := ds.Append(row); err != nil {
			t.Fatalf("append row: %v", err)
		}
	}
	return ds
}

func TestNewInsufficientData(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		rows    []dataset.Row
	}{
		{
			name:    "no_numeric_columns",
			columns: []string{"city"},
			rows:    []dataset.Row{{"a"}, {"b"}, {"c"}},
		},
		{
			name:    "too_few_rows",
			columns: []string{"x"},
			rows:    []dataset.Row{{1.0}, {2.0}},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := New(newDataset(t, test.columns, test.rows))
			var insufficient *InsufficientDataError
			if !errors.As(err, &insufficient) {
				t.Errorf("expected InsufficientDataError, got: %v", err)
			}
		})
	}
}

func TestNewStandardizes(t *testing.T) {
	ds := newDataset(t, []string{"x", "label"}, []dataset.Row{
		{1.0, "a"}, {2.0, "b"}, {3.0, "c"},
	})
	f, err := New(ds)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	if len(f.Columns) != 1 || f.Columns[0].Name != "x" {
		t.Fatalf("numeric columns, got: %+v, expected only x", f.Columns)
	}
	if len(f.MatrixColumns) != 1 {
		t.Fatalf("matrix columns, got: %v, expected: [x]", f.MatrixColumns)
	}
	// mean 2, population std sqrt(2/3)
	std := math.Sqrt(2.0 / 3.0)
	expected := []float64{-1 / std, 0, 1 / std}
	for i, row := range f.Matrix {
		if math.Abs(row[0]-expected[i]) > 1e-12 {
			t.Errorf("standardized value %d, got: %v, expected: %v", i, row[0], expected[i])
		}
	}
}

func TestNewDegenerateColumn(t *testing.T) {
	ds := newDataset(t, []string{"x", "const"}, []dataset.Row{
		{1.0, 5.0}, {2.0, 5.0}, {9.0, 5.0},
	})
	f, err := New(ds)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	if len(f.Degenerate) != 1 || f.Degenerate[0] != "const" {
		t.Errorf("degenerate columns, got: %v, expected: [const]", f.Degenerate)
	}
	// constant column stays visible to the threshold detectors
	if len(f.Columns) != 2 {
		t.Errorf("raw columns, got: %d, expected: 2", len(f.Columns))
	}
	if len(f.MatrixColumns) != 1 || f.MatrixColumns[0] != "x" {
		t.Errorf("matrix columns, got: %v, expected: [x]", f.MatrixColumns)
	}
	var found bool
	for _, w := range f.Warnings {
		if w.Kind == WarnDegenerateColumn && w.Column == "const" {
			found = true
		}
	}
	if !found {
		t.Errorf("a degenerate column warning is expected, got: %+v", f.Warnings)
	}
}

func TestNewHeavyMissingColumn(t *testing.T) {
	ds := newDataset(t, []string{"x", "sparse"}, []dataset.Row{
		{1.0, nil}, {2.0, nil}, {3.0, nil}, {4.0, 1.0},
	})
	f, err := New(ds)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	if len(f.Columns) != 1 || f.Columns[0].Name != "x" {
		t.Errorf("sparse column must be excluded, got: %+v", f.Columns)
	}
	var found bool
	for _, w := range f.Warnings {
		if w.Kind == WarnHeavyMissing && w.Column == "sparse" {
			found = true
		}
	}
	if !found {
		t.Errorf("a heavy missing warning is expected, got: %+v", f.Warnings)
	}
}

func TestNewImputesMissing(t *testing.T) {
	ds := newDataset(t, []string{"x"}, []dataset.Row{
		{1.0}, {nil}, {3.0},
	})
	f, err := New(ds)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	if f.Columns[0].Missing != 1 {
		t.Errorf("missing count, got: %d, expected: 1", f.Columns[0].Missing)
	}
	// the imputed row sits on the column mean, standardized zero
	if f.Matrix[1][0] != 0 {
		t.Errorf("imputed standardized value, got: %v, expected: 0", f.Matrix[1][0])
	}
	if !math.IsNaN(f.Columns[0].Values[1]) {
		t.Errorf("raw column must keep the missing entry as NaN")
	}
}
