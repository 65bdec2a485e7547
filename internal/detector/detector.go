// Package detector defines the closed set of outlier detection methods
// and the result shape they share.
package detector

import (
	"context"
	"errors"
	"fmt"

	"trendspotter/internal/frame"
)

type Kind string

const (
	KindZScore          Kind = "z_score"
	KindIQR             Kind = "iqr"
	KindIsolationForest Kind = "isolation_forest"
	KindLOF             Kind = "lof"
	KindKMeans          Kind = "kmeans_distance"
)

// Kinds lists every detector in the order they are reported.
func Kinds() []Kind {
	return []Kind{KindZScore, KindIQR, KindIsolationForest, KindLOF, KindKMeans}
}

func ValidKind(k Kind) bool {
	for _, kind := range Kinds() {
		if kind == k {
			return true
		}
	}
	return false
}

// Detector runs one method over a preprocessed frame. Implementations
// are stateless across calls and never mutate the frame.
type Detector interface {
	Kind() Kind
	Detect(ctx context.Context, f *frame.Frame) (*Result, error)
}

// Result is one detector's verdicts, aligned 1:1 with the dataset rows.
// Scores grow with anomalousness; Flags follow the detector's own
// threshold policy.
type Result struct {
	Kind   Kind      `json:"kind"`
	Scores []float64 `json:"scores"`
	Flags  []bool    `json:"flags"`

	// Triggers names, per row, the columns that tripped a threshold
	// method. Density methods leave it nil.
	Triggers [][]string `json:"triggers,omitempty"`

	Warnings []frame.Warning `json:"warnings,omitempty"`
}

func (r *Result) Flagged() int {
	var n int
	for _, f := range r.Flags {
		if f {
			n++
		}
	}
	return n
}

// UnavailableError reports that one method cannot run on this dataset
// shape. It is local to the method: the ensemble proceeds without it.
type UnavailableError struct {
	Kind   Kind
	Reason string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("detector %s unavailable: %s", e.Kind, e.Reason)
}

func IsUnavailable(err error) bool {
	var unavailable *UnavailableError
	return errors.As(err, &unavailable)
}
