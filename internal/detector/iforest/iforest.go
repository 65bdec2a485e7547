// Package iforest isolates anomalies with randomized binary trees:
// points separated in few splits score high.
package iforest

import (
	"context"
	"math"
	"math/rand"

	"trendspotter/internal/detector"
	"trendspotter/internal/frame"
	"trendspotter/pkg/stat"
)

const (
	DefaultTrees      = 100
	DefaultSampleSize = 256

	// fixed seed keeps repeated runs over identical input identical
	seed = 42

	// Euler-Mascheroni constant for the harmonic number approximation
	gamma = 0.5772156649
)

const DefaultContamination = 0.01

var _ detector.Detector = (*iforest)(nil)

type Option func(*iforest)

func WithTrees(n int) Option {
	return func(f *iforest) {
		f.trees = n
	}
}

func WithSampleSize(n int) Option {
	return func(f *iforest) {
		f.sampleSize = n
	}
}

func WithContamination(c float64) Option {
	return func(f *iforest) {
		f.contamination = c
	}
}

func New(opts ...Option) *iforest {
	f := &iforest{
		trees:         DefaultTrees,
		sampleSize:    DefaultSampleSize,
		contamination: DefaultContamination,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type iforest struct {
	trees         int
	sampleSize    int
	contamination float64
}

type node struct {
	splitFeature int
	splitValue   float64
	left         *node
	right        *node
	size         int
}

func (f *iforest) Kind() detector.Kind {
	return detector.KindIsolationForest
}

// Detect fits the forest on the standardized matrix and flags rows whose
// score clears the contamination-implied percentile of the scores.
func (f *iforest) Detect(ctx context.Context, fr *frame.Frame) (*detector.Result, error) {
	if len(fr.MatrixColumns) == 0 {
		return nil, &detector.UnavailableError{
			Kind:   detector.KindIsolationForest,
			Reason: "no usable matrix columns",
		}
	}

	data := fr.Matrix
	n := len(data)
	features := len(fr.MatrixColumns)

	sampleSize := f.sampleSize
	if sampleSize > n {
		sampleSize = n
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sampleSize))))
	if maxDepth < 1 {
		maxDepth = 1
	}

	rng := rand.New(rand.NewSource(seed))
	roots := make([]*node, f.trees)
	for i := range roots {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		indices := rng.Perm(n)[:sampleSize]
		sample := make([][]float64, sampleSize)
		for j, idx := range indices {
			sample[j] = data[idx]
		}
		roots[i] = buildNode(rng, sample, features, 0, maxDepth)
	}

	norm := avgPathLength(float64(sampleSize))
	scores := make([]float64, n)
	for i, row := range data {
		var total float64
		for _, root := range roots {
			total += pathLength(row, root, 0)
		}
		// s = 2^(-E(h)/c(n)), approaches 1 for easily isolated points
		scores[i] = math.Pow(2, -total/float64(f.trees)/norm)
	}

	threshold := stat.Percentile(scores, 100*(1-f.contamination))
	flags := make([]bool, n)
	for i, s := range scores {
		flags[i] = s >= threshold
	}

	return &detector.Result{
		Kind:   detector.KindIsolationForest,
		Scores: scores,
		Flags:  flags,
	}, nil
}

func buildNode(rng *rand.Rand, data [][]float64, features, depth, maxDepth int) *node {
	n := len(data)
	if depth >= maxDepth || n <= 1 {
		return &node{size: n}
	}

	feature := rng.Intn(features)
	minVal, maxVal := data[0][feature], data[0][feature]
	for _, row := range data[1:] {
		if row[feature] < minVal {
			minVal = row[feature]
		}
		if row[feature] > maxVal {
			maxVal = row[feature]
		}
	}
	if minVal == maxVal {
		return &node{size: n}
	}

	splitValue := minVal + rng.Float64()*(maxVal-minVal)
	var left, right [][]float64
	for _, row := range data {
		if row[feature] < splitValue {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}

	return &node{
		splitFeature: feature,
		splitValue:   splitValue,
		left:         buildNode(rng, left, features, depth+1, maxDepth),
		right:        buildNode(rng, right, features, depth+1, maxDepth),
	}
}

func pathLength(row []float64, n *node, depth int) float64 {
	if n.left == nil && n.right == nil {
		return float64(depth) + avgPathLength(float64(n.size))
	}
	if row[n.splitFeature] < n.splitValue {
		return pathLength(row, n.left, depth+1)
	}
	return pathLength(row, n.right, depth+1)
}

// avgPathLength is the expected path length of an unsuccessful BST
// search over n points.
func avgPathLength(n float64) float64 {
	if n <= 1 {
		return 0
	}
	return 2*(math.Log(n-1)+gamma) - 2*(n-1)/n
}
