package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"trendspotter/internal/buildinfo"
	"trendspotter/internal/dataset"
	"trendspotter/internal/detector"
	"trendspotter/internal/ensemble"
	"trendspotter/internal/logging"
	"trendspotter/internal/report/model"
	"trendspotter/internal/shutdown"
)

func main() {
	ctx, done := shutdown.New()
	defer done()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		logging.FromContext(ctx).Fatal(err)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "trendspotter",
		Short:         "Consensus anomaly detection over tabular data",
		Version:       buildinfo.Info.Tag(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(analyzeCmd(), summarizeCmd())
	return cmd
}

type analyzeFlags struct {
	contamination float64
	zThresh       float64
	iqrFactor     float64
	disable       []string
	configFile    string
	out           string
	singleVote    bool
}

func analyzeCmd() *cobra.Command {
	var flags analyzeFlags
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Run the detection ensemble over a CSV or SQLite file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, &flags)
			if err != nil {
				return err
			}
			return runAnalyze(cmd.Context(), args[0], cfg, &flags)
		},
	}
	defaults := ensemble.DefaultConfig()
	cmd.Flags().Float64Var(&flags.contamination, "contamination", defaults.Contamination, "expected share of anomalous rows, in (0, 0.5)")
	cmd.Flags().Float64Var(&flags.zThresh, "z-thresh", defaults.ZThresh, "z-score flagging threshold")
	cmd.Flags().Float64Var(&flags.iqrFactor, "iqr-factor", defaults.IQRFactor, "IQR fence factor")
	cmd.Flags().StringSliceVar(&flags.disable, "disable", nil, "detectors to skip (z_score, iqr, isolation_forest, lof, kmeans_distance)")
	cmd.Flags().StringVar(&flags.configFile, "config", "", "TOML file with analysis parameters")
	cmd.Flags().StringVar(&flags.out, "out", "", "write the JSON report to a file instead of stdout")
	cmd.Flags().BoolVar(&flags.singleVote, "single-vote", false, "flag rows on a single detector vote")
	return cmd
}

// buildConfig layers defaults, then the TOML file, then explicit flags.
func buildConfig(cmd *cobra.Command, flags *analyzeFlags) (ensemble.Config, error) {
	cfg := ensemble.DefaultConfig()

	if flags.configFile != "" {
		if _, err := toml.DecodeFile(flags.configFile, &cfg); err != nil {
			return cfg, fmt.Errorf("unable to read config file %s: %w", flags.configFile, err)
		}
	}

	if cmd.Flags().Changed("contamination") {
		cfg.Contamination = flags.contamination
	}
	if cmd.Flags().Changed("z-thresh") {
		cfg.ZThresh = flags.zThresh
	}
	if cmd.Flags().Changed("iqr-factor") {
		cfg.IQRFactor = flags.iqrFactor
	}
	if cmd.Flags().Changed("disable") {
		cfg.Disabled = nil
		for _, kind := range flags.disable {
			cfg.Disabled = append(cfg.Disabled, detector.Kind(strings.TrimSpace(kind)))
		}
	}

	return cfg, nil
}

func runAnalyze(ctx context.Context, path string, cfg ensemble.Config, flags *analyzeFlags) error {
	tables, err := readTables(ctx, path)
	if err != nil {
		return err
	}

	var opts []ensemble.Option
	if flags.singleVote {
		opts = append(opts, ensemble.WithSingleVote(true))
	}
	runner, err := ensemble.New(cfg, opts...)
	if err != nil {
		return err
	}

	var (
		mu      sync.Mutex
		reports = make(map[string]model.Report, len(tables))
	)
	g, gctx := errgroup.WithContext(ctx)
	for name, ds := range tables {
		name, ds := name, ds
		g.Go(func() error {
			rpt, err := runner.Run(gctx, ds)
			if err != nil {
				return fmt.Errorf("analyze %s: %w", name, err)
			}
			mu.Lock()
			reports[name] = model.New(name, dataset.Summarize(ds), rpt)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return writeJSON(flags.out, reports)
}

func summarizeCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "summarize <file>",
		Short: "Print per-column summaries for a CSV or SQLite file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := readTables(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			summaries := make(map[string][]dataset.ColumnSummary, len(tables))
			for name, ds := range tables {
				summaries[name] = dataset.Summarize(ds)
			}
			return writeJSON(out, summaries)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write the JSON summary to a file instead of stdout")
	return cmd
}

// readTables loads a CSV file as a single table named after the file, or
// every table of a SQLite database.
func readTables(ctx context.Context, path string) (map[string]*dataset.Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return dataset.ReadSQLite(ctx, path)
	default:
		ds, err := dataset.ReadCSVFile(path)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return map[string]*dataset.Dataset{name: ds}, nil
	}
}

func writeJSON(out string, v interface{}) error {
	bytes, err := json.MarshalIndent(sorted(v), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output json: %w", err)
	}
	bytes = append(bytes, '\n')

	if out == "" {
		_, err = os.Stdout.Write(bytes)
		return err
	}
	if err := os.WriteFile(out, bytes, 0o600); err != nil {
		return fmt.Errorf("unable to write %s: %w", out, err)
	}
	return nil
}

// sorted keeps map output order stable for multi-table databases.
func sorted(v interface{}) interface{} {
	switch m := v.(type) {
	case map[string]model.Report:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make([]tableReport, 0, len(keys))
		for _, k := range keys {
			ordered = append(ordered, tableReport{Table: k, Report: m[k]})
		}
		return ordered
	case map[string][]dataset.ColumnSummary:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make([]tableSummary, 0, len(keys))
		for _, k := range keys {
			ordered = append(ordered, tableSummary{Table: k, Columns: m[k]})
		}
		return ordered
	default:
		return v
	}
}

type tableReport struct {
	Table  string       `json:"table"`
	Report model.Report `json:"report"`
}

type tableSummary struct {
	Table   string                  `json:"table"`
	Columns []dataset.ColumnSummary `json:"columns"`
}
