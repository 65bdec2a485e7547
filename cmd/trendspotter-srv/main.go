package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"trendspotter/internal/analyze"
	"trendspotter/internal/buildinfo"
	trendspotter "trendspotter/internal/config"
	"trendspotter/internal/logging"
	"trendspotter/internal/reports"
	"trendspotter/internal/server"
	"trendspotter/internal/setup"
	"trendspotter/internal/shutdown"
	"trendspotter/internal/telemetry"
)

func main() {
	_, _ = fmt.Fprint(os.Stdout, buildinfo.Graffiti)
	_, _ = fmt.Fprintf(
		os.Stdout,
		"%s: %s, %s\n",
		buildinfo.Info.Name(),
		buildinfo.Info.Time(),
		buildinfo.Info.Tag(),
	)

	ctx, done := shutdown.New()
	logger := logging.FromContext(ctx)
	if err := run(ctx, done); err != nil {
		logger.Fatal(err)
	}

	defer done()
}

func run(ctx context.Context, cancel func()) error {
	logger := logging.FromContext(ctx)

	config := trendspotter.Config{}
	env, err := setup.Setup(ctx, &config)
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}
	defer func() {
		if err := env.Close(context.Background()); err != nil {
			logger.Errorf("unable to close server environment: %v", err)
		}
	}()

	srv, err := server.New(config.SrvAddr)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	mux := http.NewServeMux()

	analyzeHandler, err := analyze.NewHandler(&config.Analyze, env.Archive(), env.Narrator())
	if err != nil {
		return fmt.Errorf("analyze.NewHandler: %w", err)
	}
	mux.Handle("/analyze", analyzeHandler)

	reportsHandler, err := reports.NewHandler(&config.Reports, env.Finder())
	if err != nil {
		return fmt.Errorf("reports.NewHandler: %w", err)
	}
	mux.Handle("/reports", reportsHandler)

	mux.Handle("/health", server.HandleHealth(ctx))

	exporter, err := telemetry.NewExporter()
	if err != nil {
		return fmt.Errorf("telemetry.NewExporter: %w", err)
	}
	mux.Handle("/metrics", exporter)

	go func() {
		if err := http.ListenAndServe("0.0.0.0:8080", nil); err != nil {
			cancel()
		}
	}()

	logger.Infof("listening on %s", config.SrvAddr)
	return srv.ServeHTTPHandler(ctx, mux)
}
