// Package lof scores rows by their local density relative to that of
// their nearest neighbours.
package lof

import (
	"context"
	"fmt"
	"math"
	"sort"

	"trendspotter/internal/detector"
	"trendspotter/internal/frame"
	"trendspotter/internal/geom"
)

const (
	MinKNum     = 3
	DefaultKNum = 20
)

const DefaultContamination = 0.01

// reachEps floors reachability sums so a duplicate cluster keeps a
// finite local density and the scores stay JSON-encodable.
const reachEps = 1e-10

var _ detector.Detector = (*lof)(nil)

type Option func(*lof)

func WithKNum(k int) Option {
	return func(l *lof) {
		l.kNum = k
	}
}

func WithContamination(c float64) Option {
	return func(l *lof) {
		l.contamination = c
	}
}

func WithDistance(f func(vec, vec1 []float64) (float64, error)) Option {
	return func(l *lof) {
		l.distFunc = f
	}
}

func New(opts ...Option) *lof {
	l := &lof{
		kNum:          DefaultKNum,
		contamination: DefaultContamination,
		distFunc:      geom.EuclideanDistance,
	}
	for _, f := range opts {
		f(l)
	}
	return l
}

type lof struct {
	kNum          int
	contamination float64
	distFunc      func(vec, vec1 []float64) (float64, error)
}

func (l *lof) Kind() detector.Kind {
	return detector.KindLOF
}

// Detect computes the local outlier factor of every row with brute-force
// kNN over the standardized matrix and flags the top contamination
// fraction. k is halved on small datasets; below 2*MinKNum rows the
// method is unavailable.
func (l *lof) Detect(ctx context.Context, f *frame.Frame) (*detector.Result, error) {
	if len(f.MatrixColumns) == 0 {
		return nil, &detector.UnavailableError{
			Kind:   detector.KindLOF,
			Reason: "no usable matrix columns",
		}
	}

	n := f.Rows()
	k := l.kNum
	if n < 2*k {
		k = n / 2
	}
	if k < MinKNum {
		return nil, &detector.UnavailableError{
			Kind:   detector.KindLOF,
			Reason: fmt.Sprintf("%d rows, at least %d required", n, 2*MinKNum),
		}
	}

	dist, err := l.distances(ctx, f.Matrix)
	if err != nil {
		return nil, err
	}

	// k nearest neighbours of every row, self excluded
	neighbors := make([][]int, n)
	kDist := make([]float64, n)
	order := make([]int, 0, n-1)
	for i := 0; i < n; i++ {
		order = order[:0]
		for j := 0; j < n; j++ {
			if j != i {
				order = append(order, j)
			}
		}
		sort.Slice(order, func(a, b int) bool {
			if dist[i][order[a]] != dist[i][order[b]] {
				return dist[i][order[a]] < dist[i][order[b]]
			}
			return order[a] < order[b]
		})
		neighbors[i] = append([]int(nil), order[:k]...)
		kDist[i] = dist[i][neighbors[i][k-1]]
	}

	lrd := make([]float64, n)
	for i := 0; i < n; i++ {
		var rSum float64
		for _, o := range neighbors[i] {
			rSum += math.Max(kDist[o], dist[i][o])
		}
		lrd[i] = float64(k) / math.Max(rSum, reachEps)
	}

	scores := make([]float64, n)
	for i := 0; i < n; i++ {
		var lrdSum float64
		for _, o := range neighbors[i] {
			lrdSum += lrd[o]
		}
		scores[i] = lrdSum / float64(k) / lrd[i]
	}

	flags := make([]bool, n)
	flagCount := int(math.Ceil(l.contamination * float64(n)))
	ranked := make([]int, n)
	for i := range ranked {
		ranked[i] = i
	}
	sort.Slice(ranked, func(a, b int) bool {
		if scores[ranked[a]] != scores[ranked[b]] {
			return scores[ranked[a]] > scores[ranked[b]]
		}
		return ranked[a] < ranked[b]
	})
	for _, i := range ranked[:flagCount] {
		flags[i] = true
	}

	return &detector.Result{
		Kind:   detector.KindLOF,
		Scores: scores,
		Flags:  flags,
	}, nil
}

func (l *lof) distances(ctx context.Context, matrix [][]float64) ([][]float64, error) {
	n := len(matrix)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		for j := i + 1; j < n; j++ {
			d, err := l.distFunc(matrix[i], matrix[j])
			if err != nil {
				return nil, fmt.Errorf("unable compute distance: %w", err)
			}
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist, nil
}
