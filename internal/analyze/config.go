package analyze

import (
	"time"

	"trendspotter/internal/ensemble"
)

type Config struct {
	RequestTimeout time.Duration `envconfig:"TREND_ANALYZE_REQUEST_TIMEOUT" default:"60s"`
	MaxRows        int           `envconfig:"TREND_ANALYZE_MAX_ROWS" default:"100000"`
	Contamination  float64       `envconfig:"TREND_ANALYZE_CONTAMINATION" default:"0.01"`
	ZThresh        float64       `envconfig:"TREND_ANALYZE_Z_THRESH" default:"3.0"`
	IQRFactor      float64       `envconfig:"TREND_ANALYZE_IQR_FACTOR" default:"1.5"`
}

// EnsembleConfig is the service default, overridable per request.
func (c *Config) EnsembleConfig() ensemble.Config {
	return ensemble.Config{
		Contamination: c.Contamination,
		ZThresh:       c.ZThresh,
		IQRFactor:     c.IQRFactor,
	}
}
