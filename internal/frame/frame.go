// Package frame turns a raw dataset into the numeric material the
// detectors read: raw per-column values for the threshold methods and a
// standardized matrix for the density methods.
package frame

import (
	"fmt"
	"math"

	"trendspotter/internal/dataset"
	"trendspotter/pkg/stat"
)

// MinRows is the smallest dataset basic statistics are computed for.
const MinRows = 3

const maxMissingShare = 0.5

// InsufficientDataError aborts the whole analysis: there is nothing the
// ensemble could run on.
type InsufficientDataError struct {
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %s", e.Reason)
}

const (
	WarnHeavyMissing     = "heavy_missing"
	WarnDegenerateColumn = "degenerate_column"
	WarnIQRSkip          = "iqr_skip"
	WarnNarrative        = "narrative"
)

// Warning is non-fatal computation metadata carried through to the
// report.
type Warning struct {
	Kind    string `json:"kind"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

// Column is a numeric dataset column with missing entries kept as NaN.
// Mean and Std are computed over the non-missing values only.
type Column struct {
	Name    string
	Values  []float64
	Missing int
	Mean    float64
	Std     float64
}

// Frame is the preprocessed view of one dataset. Detectors read it, no
// one mutates it after New returns.
type Frame struct {
	rows int

	// Columns holds every usable numeric column, degenerate ones
	// included, for the per-column threshold detectors.
	Columns []Column

	// Matrix is the standardized, mean-imputed matrix over the
	// non-degenerate columns.
	Matrix        [][]float64
	MatrixColumns []string

	Degenerate []string
	Warnings   []Warning
}

func (f *Frame) Rows() int {
	return f.rows
}

// New selects the numeric columns, imputes and standardizes them.
func New(ds *dataset.Dataset) (*Frame, error) {
	if ds.Len() < MinRows {
		return nil, &InsufficientDataError{Reason: fmt.Sprintf("%d rows, at least %d required", ds.Len(), MinRows)}
	}

	f := &Frame{rows: ds.Len()}
	for _, name := range ds.Columns {
		cells, _ := ds.Column(name)
		col, ok := numericColumn(name, cells)
		if !ok {
			continue
		}
		if share := float64(col.Missing) / float64(len(cells)); share > maxMissingShare {
			f.Warnings = append(f.Warnings, Warning{
				Kind:    WarnHeavyMissing,
				Column:  name,
				Message: fmt.Sprintf("column %s is %.0f%% missing and was excluded", name, share*100),
			})
			continue
		}
		f.Columns = append(f.Columns, col)
	}

	if len(f.Columns) == 0 {
		return nil, &InsufficientDataError{Reason: "no numeric columns"}
	}

	f.buildMatrix()
	return f, nil
}

func numericColumn(name string, cells []interface{}) (Column, bool) {
	col := Column{Name: name, Values: make([]float64, len(cells))}
	for i, cell := range cells {
		if dataset.IsMissing(cell) {
			col.Values[i] = math.NaN()
			col.Missing++
			continue
		}
		v, ok := dataset.ToFloat(cell)
		if !ok {
			return Column{}, false
		}
		col.Values[i] = v
	}
	if col.Missing == len(cells) {
		return Column{}, false
	}
	col.Mean = stat.Mean(col.Values)
	col.Std = stat.Std(col.Values)
	return col, true
}

func (f *Frame) buildMatrix() {
	var kept []int
	for i, col := range f.Columns {
		if col.Std == 0 {
			f.Degenerate = append(f.Degenerate, col.Name)
			f.Warnings = append(f.Warnings, Warning{
				Kind:    WarnDegenerateColumn,
				Column:  col.Name,
				Message: fmt.Sprintf("column %s has zero variance and was excluded from density methods", col.Name),
			})
			continue
		}
		kept = append(kept, i)
		f.MatrixColumns = append(f.MatrixColumns, col.Name)
	}

	f.Matrix = make([][]float64, f.rows)
	for r := 0; r < f.rows; r++ {
		row := make([]float64, len(kept))
		for j, i := range kept {
			col := f.Columns[i]
			v := col.Values[r]
			if math.IsNaN(v) {
				// imputed value standardizes to zero
				row[j] = 0
				continue
			}
			row[j] = (v - col.Mean) / col.Std
		}
		f.Matrix[r] = row
	}
}
