// Package ensemble fans a preprocessed dataset out to the five outlier
// detection methods and folds their verdicts into one consensus per row.
package ensemble

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trendspotter/internal/dataset"
	"trendspotter/internal/detector"
	"trendspotter/internal/detector/iforest"
	"trendspotter/internal/detector/iqr"
	"trendspotter/internal/detector/kmeans"
	"trendspotter/internal/detector/lof"
	"trendspotter/internal/detector/zscore"
	"trendspotter/internal/frame"
	"trendspotter/internal/logging"
	"trendspotter/internal/telemetry"
	"trendspotter/pkg/rworker"
)

// MethodReport is one detector's contribution to the report, or the
// reason it sat the analysis out.
type MethodReport struct {
	Kind      detector.Kind   `json:"kind"`
	Available bool            `json:"available"`
	Reason    string          `json:"reason,omitempty"`
	Flagged   int             `json:"flagged"`
	Scores    []float64       `json:"scores,omitempty"`
	Flags     []bool          `json:"flags,omitempty"`
	Triggers  [][]string      `json:"triggers,omitempty"`
	Warnings  []frame.Warning `json:"warnings,omitempty"`
}

// Verdict is the consensus judgment for one row. Methods names the
// detectors that flagged it.
type Verdict struct {
	Score   float64  `json:"score"`
	Outlier bool     `json:"outlier"`
	Methods []string `json:"methods,omitempty"`
}

// Report is the structured ensemble output handed to the report
// assembler. It serializes to JSON without loss.
type Report struct {
	Rows              int             `json:"rows"`
	NumericColumns    []string        `json:"numericColumns"`
	DegenerateColumns []string        `json:"degenerateColumns,omitempty"`
	Methods           []MethodReport  `json:"methods"`
	Verdicts          []Verdict       `json:"verdicts"`
	Warnings          []frame.Warning `json:"warnings,omitempty"`
	ReducedMethodSet  bool            `json:"reducedMethodSet"`
	Config            Config          `json:"config"`
}

func (r *Report) Anomalies() int {
	var n int
	for _, v := range r.Verdicts {
		if v.Outlier {
			n++
		}
	}
	return n
}

type Option func(*Runner)

// WithSingleVote makes one detector flag enough for a consensus
// anomaly. Off by default: two votes are required.
func WithSingleVote(v bool) Option {
	return func(r *Runner) {
		r.opts.singleVote = v
	}
}

func WithMaxConcurrency(n int) Option {
	return func(r *Runner) {
		r.opts.maxConcurrency = n
	}
}

type Options struct {
	singleVote     bool
	maxConcurrency int
}

// New validates the configuration and returns a runner bound to it.
func New(cfg Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{
		cfg:  cfg,
		opts: Options{maxConcurrency: len(detector.Kinds())},
	}
	for _, f := range opts {
		f(r)
	}
	return r, nil
}

type Runner struct {
	cfg  Config
	opts Options
}

// detectors builds the closed method set for this request, honoring the
// disable switches.
func (r *Runner) detectors() []detector.Detector {
	all := []detector.Detector{
		zscore.New(zscore.WithThreshold(r.cfg.ZThresh)),
		iqr.New(iqr.WithFactor(r.cfg.IQRFactor)),
		iforest.New(iforest.WithContamination(r.cfg.Contamination)),
		lof.New(lof.WithContamination(r.cfg.Contamination)),
		kmeans.New(kmeans.WithContamination(r.cfg.Contamination)),
	}
	enabled := all[:0]
	for _, d := range all {
		if r.cfg.Enabled(d.Kind()) {
			enabled = append(enabled, d)
		}
	}
	return enabled
}

// Run preprocesses the dataset, runs every enabled detector
// concurrently over the shared frame and aggregates the verdicts.
func (r *Runner) Run(ctx context.Context, ds *dataset.Dataset) (*Report, error) {
	logger := logging.FromContext(ctx)

	fr, err := frame.New(ds)
	if err != nil {
		return nil, err
	}

	dets := r.detectors()
	var (
		wg      sync.WaitGroup
		mtx     sync.Mutex
		rate    = make(chan struct{}, r.opts.maxConcurrency)
		errCh   = make(chan error, len(dets))
		methods = make(map[detector.Kind]MethodReport, len(dets))
	)
	for _, d := range dets {
		d := d
		rworker.Job(&wg, func() error {
			start := time.Now()
			result, err := d.Detect(ctx, fr)
			if err != nil {
				telemetry.RecordDetector(ctx, string(d.Kind()), time.Since(start), false)
				if !detector.IsUnavailable(err) {
					return fmt.Errorf("detector %s: %w", d.Kind(), err)
				}
				logger.Infof("detector %s skipped: %v", d.Kind(), err)
				mtx.Lock()
				methods[d.Kind()] = MethodReport{Kind: d.Kind(), Reason: err.Error()}
				mtx.Unlock()
				return nil
			}
			telemetry.RecordDetector(ctx, string(d.Kind()), time.Since(start), true)
			mtx.Lock()
			methods[d.Kind()] = MethodReport{
				Kind:      d.Kind(),
				Available: true,
				Flagged:   result.Flagged(),
				Scores:    result.Scores,
				Flags:     result.Flags,
				Triggers:  result.Triggers,
				Warnings:  result.Warnings,
			}
			mtx.Unlock()
			return nil
		}, rate, errCh)
	}
	wg.Wait()

	select {
	case err := <-errCh:
		return nil, fmt.Errorf("ensemble run failed: %w", err)
	default:
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{
		Rows:              fr.Rows(),
		DegenerateColumns: fr.Degenerate,
		Warnings:          fr.Warnings,
		Config:            r.cfg,
	}
	for _, col := range fr.Columns {
		report.NumericColumns = append(report.NumericColumns, col.Name)
	}

	var available []*detector.Result
	for _, kind := range detector.Kinds() {
		m, ok := methods[kind]
		if !ok {
			continue
		}
		report.Methods = append(report.Methods, m)
		if m.Available {
			available = append(available, &detector.Result{
				Kind:   m.Kind,
				Scores: m.Scores,
				Flags:  m.Flags,
			})
		}
	}
	report.ReducedMethodSet = len(available) < len(dets)
	report.Verdicts = combine(fr.Rows(), available, r.opts.singleVote)
	return report, nil
}
