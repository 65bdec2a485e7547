package setup

import (
	"context"
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"trendspotter/internal/analyze"
	"trendspotter/internal/database"
	"trendspotter/internal/logging"
	"trendspotter/internal/narrative"
	reportdb "trendspotter/internal/report/database"
	"trendspotter/internal/reports"
	"trendspotter/internal/srvenv"
)

type AnalyzeConfigProvider interface {
	AnalyzeConfig() *analyze.Config
}

type ReportsConfigProvider interface {
	ReportsConfig() *reports.Config
}

type NarrativeConfigProvider interface {
	NarrativeConfig() *narrative.Config
}

type DatabaseConfigProvider interface {
	DatabaseConfig() *database.Config
}

func Setup(ctx context.Context, config interface{}) (*srvenv.SrvEnv, error) {
	logger := logging.FromContext(ctx)
	var serverEnvOpts []srvenv.Option
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	var db *database.DB
	if dbConfigProvider, ok := config.(DatabaseConfigProvider); ok {
		logger.Info("Configuring db")
		dbFromEnv, err := database.NewFromEnv(ctx, dbConfigProvider.DatabaseConfig())
		if err != nil {
			return nil, fmt.Errorf("unable to connect to database: %v", err)
		}
		db = dbFromEnv
		archive := reportdb.New(db)
		serverEnvOpts = append(serverEnvOpts,
			srvenv.WithDatabase(db),
			srvenv.WithArchive(archive),
			srvenv.WithFinder(archive),
		)
	}

	if narrativeConfigProvider, ok := config.(NarrativeConfigProvider); ok {
		cfg := narrativeConfigProvider.NarrativeConfig()
		if cfg.Enabled() {
			logger.Info("Configuring narrative client")
			serverEnvOpts = append(serverEnvOpts, srvenv.WithNarrator(narrative.NewClient(cfg)))
		}
	}

	return srvenv.New(serverEnvOpts...), nil
}
