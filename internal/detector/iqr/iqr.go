// Package iqr flags rows falling outside the interquartile fences of a
// column.
package iqr

import (
	"context"
	"fmt"
	"math"

	"trendspotter/internal/detector"
	"trendspotter/internal/frame"
	"trendspotter/pkg/stat"
)

const DefaultFactor = 1.5

// minDistinct is the smallest number of distinct column values that
// keeps the quartile fences apart.
const minDistinct = 4

var _ detector.Detector = (*iqr)(nil)

type Option func(*iqr)

func WithFactor(f float64) Option {
	return func(q *iqr) {
		q.factor = f
	}
}

func New(opts ...Option) *iqr {
	q := &iqr{factor: DefaultFactor}
	for _, f := range opts {
		f(q)
	}
	return q
}

type iqr struct {
	factor float64
}

func (q *iqr) Kind() detector.Kind {
	return detector.KindIQR
}

// Detect scores each row with the largest relative fence exceedance
// across columns and flags it when any column value falls outside its
// fences. Columns whose fences would collapse to a point are skipped
// with a warning.
func (q *iqr) Detect(ctx context.Context, f *frame.Frame) (*detector.Result, error) {
	result := &detector.Result{
		Kind:     detector.KindIQR,
		Scores:   make([]float64, f.Rows()),
		Flags:    make([]bool, f.Rows()),
		Triggers: make([][]string, f.Rows()),
	}

	var usable int
	for _, col := range f.Columns {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		q1 := stat.Quantile(col.Values, 0.25)
		q3 := stat.Quantile(col.Values, 0.75)
		spread := q3 - q1
		if stat.Distinct(col.Values) < minDistinct || spread == 0 {
			result.Warnings = append(result.Warnings, frame.Warning{
				Kind:    frame.WarnIQRSkip,
				Column:  col.Name,
				Message: fmt.Sprintf("column %s has degenerate quartile fences and was skipped", col.Name),
			})
			continue
		}
		usable++

		lower := q1 - q.factor*spread
		upper := q3 + q.factor*spread
		for i, v := range col.Values {
			if math.IsNaN(v) {
				continue
			}
			var score float64
			switch {
			case v < lower:
				score = (lower - v) / spread
			case v > upper:
				score = (v - upper) / spread
			default:
				continue
			}
			if score > result.Scores[i] {
				result.Scores[i] = score
			}
			result.Flags[i] = true
			result.Triggers[i] = append(result.Triggers[i], col.Name)
		}
	}

	if usable == 0 {
		return nil, &detector.UnavailableError{
			Kind:   detector.KindIQR,
			Reason: "no columns with enough distinct values",
		}
	}
	return result, nil
}
