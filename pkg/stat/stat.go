// Package stat holds the scalar statistics shared by the detectors.
package stat

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean of values. NaN entries are skipped.
func Mean(values []float64) float64 {
	var sum float64
	var n int
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// Std returns the population standard deviation of values. NaN entries
// are skipped.
func Std(values []float64) float64 {
	mean := Mean(values)
	if math.IsNaN(mean) {
		return math.NaN()
	}
	var sum float64
	var n int
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += (v - mean) * (v - mean)
		n++
	}
	return math.Sqrt(sum / float64(n))
}

// Quantile returns the q-th quantile of values, q in [0, 1], with linear
// interpolation between order statistics. NaN entries are skipped.
func Quantile(values []float64, q float64) float64 {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sorted = append(sorted, v)
	}
	if len(sorted) == 0 {
		return math.NaN()
	}
	sort.Float64s(sorted)
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Percentile is Quantile with p expressed in percent.
func Percentile(values []float64, p float64) float64 {
	return Quantile(values, p/100)
}

// Distinct returns the number of distinct non-NaN values.
func Distinct(values []float64) int {
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		seen[v] = struct{}{}
	}
	return len(seen)
}

// MinMax returns the smallest and largest non-NaN values.
func MinMax(values []float64) (float64, float64) {
	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
