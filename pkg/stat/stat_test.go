package stat

import (
	"math"
	"testing"
)

func TestMean(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{name: "positive", values: []float64{1, 2, 3, 4}, expected: 2.5},
		{name: "positive", values: []float64{5}, expected: 5},
		{name: "skip_nan", values: []float64{1, math.NaN(), 3}, expected: 2},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Mean(test.values); got != test.expected {
				t.Errorf("compute Mean, got: %v, expected: %v", got, test.expected)
			}
		})
	}
	if got := Mean(nil); !math.IsNaN(got) {
		t.Errorf("mean of the empty set must be NaN, got: %v", got)
	}
}

func TestStd(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{name: "positive", values: []float64{2, 4, 4, 4, 5, 5, 7, 9}, expected: 2},
		{name: "constant", values: []float64{3, 3, 3}, expected: 0},
		{name: "skip_nan", values: []float64{2, math.NaN(), 2}, expected: 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Std(test.values); math.Abs(got-test.expected) > 1e-12 {
				t.Errorf("compute Std, got: %v, expected: %v", got, test.expected)
			}
		})
	}
}

func TestQuantile(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		q        float64
		expected float64
	}{
		{name: "median_odd", values: []float64{3, 1, 2}, q: 0.5, expected: 2},
		{name: "median_even", values: []float64{4, 1, 3, 2}, q: 0.5, expected: 2.5},
		{name: "q1_interpolated", values: []float64{1, 2, 3, 4}, q: 0.25, expected: 1.75},
		{name: "bounds_low", values: []float64{1, 2, 3}, q: 0, expected: 1},
		{name: "bounds_high", values: []float64{1, 2, 3}, q: 1, expected: 3},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Quantile(test.values, test.q); math.Abs(got-test.expected) > 1e-12 {
				t.Errorf("compute Quantile, got: %v, expected: %v", got, test.expected)
			}
		})
	}
}

func TestDistinct(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected int
	}{
		{name: "positive", values: []float64{1, 1, 2, 3, 3}, expected: 3},
		{name: "skip_nan", values: []float64{1, math.NaN()}, expected: 1},
		{name: "empty", values: nil, expected: 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Distinct(test.values); got != test.expected {
				t.Errorf("compute Distinct, got: %v, expected: %v", got, test.expected)
			}
		})
	}
}

func TestMinMax(t *testing.T) {
	min, max := MinMax([]float64{3, math.NaN(), -1, 7})
	if min != -1 || max != 7 {
		t.Errorf("compute MinMax, got: %v %v, expected: -1 7", min, max)
	}
}
