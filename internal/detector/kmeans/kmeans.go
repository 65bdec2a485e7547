// Package kmeans flags rows that sit far from their cluster centroid.
package kmeans

import (
	"context"
	"math"
	"math/rand"

	"trendspotter/internal/detector"
	"trendspotter/internal/frame"
	"trendspotter/internal/geom"
	"trendspotter/pkg/stat"
)

const (
	DefaultClusters = 5

	// iteration cap so a pathological dataset cannot hang the request
	maxIterations = 100

	seed = 42
)

const DefaultContamination = 0.01

var _ detector.Detector = (*kmeans)(nil)

type Option func(*kmeans)

func WithClusters(k int) Option {
	return func(m *kmeans) {
		m.clusters = k
	}
}

func WithContamination(c float64) Option {
	return func(m *kmeans) {
		m.contamination = c
	}
}

func New(opts ...Option) *kmeans {
	m := &kmeans{
		clusters:      DefaultClusters,
		contamination: DefaultContamination,
	}
	for _, f := range opts {
		f(m)
	}
	return m
}

type kmeans struct {
	clusters      int
	contamination float64
}

func (m *kmeans) Kind() detector.Kind {
	return detector.KindKMeans
}

// Detect fits min(clusters, rows) centroids over the standardized
// matrix, scores each row with the distance to its centroid and flags
// distances above the (1 - contamination) quantile.
func (m *kmeans) Detect(ctx context.Context, f *frame.Frame) (*detector.Result, error) {
	if len(f.MatrixColumns) == 0 {
		return nil, &detector.UnavailableError{
			Kind:   detector.KindKMeans,
			Reason: "no usable matrix columns",
		}
	}

	data := f.Matrix
	n := len(data)
	k := m.clusters
	if k > n {
		k = n
	}

	rng := rand.New(rand.NewSource(seed))
	centroids := make([]geom.Point, k)
	for i, idx := range rng.Perm(n)[:k] {
		centroids[i] = geom.NewPoint(data[idx]).Copy()
	}

	assignments := make([]int, n)
	dists := make([]float64, n)
	for iter := 0; iter < maxIterations; iter++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		changed := false
		for i, row := range data {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				d, err := geom.EuclideanDistance(row, centroid.Points())
				if err != nil {
					return nil, err
				}
				if d < bestDist {
					best, bestDist = c, d
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
			dists[i] = bestDist
		}
		if !changed {
			break
		}

		counts := make([]int, k)
		sums := make([]geom.Point, k)
		for c := range sums {
			sums[c] = make(geom.Point, len(data[0]))
		}
		for i, row := range data {
			sums[assignments[i]].Add(row)
			counts[assignments[i]]++
		}
		for c := range centroids {
			if counts[c] == 0 {
				// empty cluster keeps its centroid
				continue
			}
			sums[c].Scale(1 / float64(counts[c]))
			centroids[c] = sums[c]
		}
	}

	threshold := stat.Quantile(dists, 1-m.contamination)
	flags := make([]bool, n)
	for i, d := range dists {
		flags[i] = d > threshold
	}

	scores := make([]float64, n)
	copy(scores, dists)

	return &detector.Result{
		Kind:   detector.KindKMeans,
		Scores: scores,
		Flags:  flags,
	}, nil
}
