// Package telemetry wires the opencensus measures exported on /metrics.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"contrib.go.opencensus.io/exporter/prometheus"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	KeyDetector = tag.MustNewKey("detector")
	KeyStatus   = tag.MustNewKey("status")
)

var (
	MAnalyzeLatencyMs = stats.Float64(
		"trendspotter/analyze/latency",
		"End to end analysis latency",
		stats.UnitMilliseconds,
	)
	MAnalyzeRequests = stats.Int64(
		"trendspotter/analyze/requests",
		"Analysis requests",
		stats.UnitDimensionless,
	)
	MDetectorLatencyMs = stats.Float64(
		"trendspotter/detector/latency",
		"Per detector run latency",
		stats.UnitMilliseconds,
	)
	MDetectorUnavailable = stats.Int64(
		"trendspotter/detector/unavailable",
		"Detector runs skipped as unavailable",
		stats.UnitDimensionless,
	)
)

func Views() []*view.View {
	latencyDist := view.Distribution(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000)
	return []*view.View{
		{
			Name:        "trendspotter/analyze/latency",
			Measure:     MAnalyzeLatencyMs,
			Description: "Distribution of analysis latency",
			TagKeys:     []tag.Key{KeyStatus},
			Aggregation: latencyDist,
		},
		{
			Name:        "trendspotter/analyze/requests",
			Measure:     MAnalyzeRequests,
			Description: "Count of analysis requests",
			TagKeys:     []tag.Key{KeyStatus},
			Aggregation: view.Count(),
		},
		{
			Name:        "trendspotter/detector/latency",
			Measure:     MDetectorLatencyMs,
			Description: "Distribution of per detector latency",
			TagKeys:     []tag.Key{KeyDetector},
			Aggregation: latencyDist,
		},
		{
			Name:        "trendspotter/detector/unavailable",
			Measure:     MDetectorUnavailable,
			Description: "Count of unavailable detector runs",
			TagKeys:     []tag.Key{KeyDetector},
			Aggregation: view.Count(),
		},
	}
}

// NewExporter registers the views and returns the prometheus handler.
func NewExporter() (*prometheus.Exporter, error) {
	if err := view.Register(Views()...); err != nil {
		return nil, fmt.Errorf("unable to register views: %w", err)
	}
	pe, err := prometheus.NewExporter(prometheus.Options{Namespace: "trendspotter"})
	if err != nil {
		return nil, fmt.Errorf("unable to create prometheus exporter: %w", err)
	}
	view.RegisterExporter(pe)
	return pe, nil
}

func RecordAnalyze(ctx context.Context, took time.Duration, status string) {
	ctx, _ = tag.New(ctx, tag.Upsert(KeyStatus, status))
	stats.Record(ctx, MAnalyzeRequests.M(1), MAnalyzeLatencyMs.M(float64(took.Milliseconds())))
}

func RecordDetector(ctx context.Context, detector string, took time.Duration, available bool) {
	ctx, _ = tag.New(ctx, tag.Upsert(KeyDetector, detector))
	stats.Record(ctx, MDetectorLatencyMs.M(float64(took.Milliseconds())))
	if !available {
		stats.Record(ctx, MDetectorUnavailable.M(1))
	}
}
