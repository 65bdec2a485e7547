package trendspotter

import (
	"trendspotter/internal/analyze"
	"trendspotter/internal/database"
	"trendspotter/internal/narrative"
	"trendspotter/internal/reports"
	"trendspotter/internal/setup"
)

var (
	_ setup.AnalyzeConfigProvider   = (*Config)(nil)
	_ setup.ReportsConfigProvider   = (*Config)(nil)
	_ setup.NarrativeConfigProvider = (*Config)(nil)
	_ setup.DatabaseConfigProvider  = (*Config)(nil)
)

type Config struct {
	SrvAddr   string `envconfig:"TREND_ADDR" default:":8787"`
	Analyze   analyze.Config
	Reports   reports.Config
	Database  database.Config
	Narrative narrative.Config
}

func (c Config) AnalyzeConfig() *analyze.Config {
	return &c.Analyze
}

func (c Config) ReportsConfig() *reports.Config {
	return &c.Reports
}

func (c Config) NarrativeConfig() *narrative.Config {
	return &c.Narrative
}

func (c Config) DatabaseConfig() *database.Config {
	return &c.Database
}
