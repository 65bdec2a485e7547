package dataset

import (
	"trendspotter/pkg/stat"
)

// ColumnSummary mirrors the describe-style digest attached to reports.
type ColumnSummary struct {
	Name       string  `json:"name"`
	Numeric    bool    `json:"numeric"`
	Count      int     `json:"count"`
	Missing    int     `json:"missing"`
	MissingPct float64 `json:"missingPct"`
	Distinct   int     `json:"distinct,omitempty"`
	Mean       float64 `json:"mean,omitempty"`
	Std        float64 `json:"std,omitempty"`
	Min        float64 `json:"min,omitempty"`
	Max        float64 `json:"max,omitempty"`
}

// Summarize computes a per-column digest of the dataset.
func Summarize(d *Dataset) []ColumnSummary {
	summaries := make([]ColumnSummary, 0, len(d.Columns))
	for _, name := range d.Columns {
		cells, _ := d.Column(name)
		s := ColumnSummary{Name: name}

		numeric := true
		values := make([]float64, 0, len(cells))
		for _, cell := range cells {
			if IsMissing(cell) {
				s.Missing++
				continue
			}
			s.Count++
			f, ok := ToFloat(cell)
			if !ok {
				numeric = false
				continue
			}
			values = append(values, f)
		}
		if len(d.Rows) > 0 {
			s.MissingPct = float64(s.Missing) / float64(len(d.Rows)) * 100
		}
		if numeric && len(values) > 0 {
			s.Numeric = true
			s.Distinct = stat.Distinct(values)
			s.Mean = stat.Mean(values)
			s.Std = stat.Std(values)
			s.Min, s.Max = stat.MinMax(values)
		}
		summaries = append(summaries, s)
	}
	return summaries
}
