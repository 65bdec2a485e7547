// Package zscore flags rows whose distance from a column mean exceeds a
// threshold in standard deviations.
package zscore

import (
	"context"
	"math"

	"trendspotter/internal/detector"
	"trendspotter/internal/frame"
)

const DefaultThreshold = 3.0

var _ detector.Detector = (*zscore)(nil)

type Option func(*zscore)

func WithThreshold(t float64) Option {
	return func(z *zscore) {
		z.thresh = t
	}
}

func New(opts ...Option) *zscore {
	z := &zscore{thresh: DefaultThreshold}
	for _, f := range opts {
		f(z)
	}
	return z
}

type zscore struct {
	thresh float64
}

func (z *zscore) Kind() detector.Kind {
	return detector.KindZScore
}

// Detect scores each row with the largest per-column |x-mean|/std and
// flags it when any column exceeds the threshold. Column statistics come
// from the raw values, missing entries excluded.
func (z *zscore) Detect(ctx context.Context, f *frame.Frame) (*detector.Result, error) {
	result := &detector.Result{
		Kind:     detector.KindZScore,
		Scores:   make([]float64, f.Rows()),
		Flags:    make([]bool, f.Rows()),
		Triggers: make([][]string, f.Rows()),
	}

	for _, col := range f.Columns {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if col.Std == 0 {
			// a constant column scores zero everywhere
			continue
		}
		for i, v := range col.Values {
			if math.IsNaN(v) {
				continue
			}
			score := math.Abs(v-col.Mean) / col.Std
			if score > result.Scores[i] {
				result.Scores[i] = score
			}
			if score > z.thresh {
				result.Flags[i] = true
				result.Triggers[i] = append(result.Triggers[i], col.Name)
			}
		}
	}
	return result, nil
}
