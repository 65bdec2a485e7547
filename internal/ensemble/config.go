package ensemble

import (
	"fmt"

	"trendspotter/internal/detector"
)

const (
	DefaultContamination = 0.01
	DefaultZThresh       = 3.0
	DefaultIQRFactor     = 1.5
)

// ValidationError rejects a malformed configuration before any detector
// runs. Out of range values are never clamped.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Config carries the per-request tunables. It is built once per request
// and never mutated mid-run.
type Config struct {
	// Contamination is the expected outlier fraction for the density
	// methods, 0 < c < 0.5.
	Contamination float64 `json:"contamination" toml:"contamination"`
	ZThresh       float64 `json:"zThresh" toml:"z_thresh"`
	IQRFactor     float64 `json:"iqrFactor" toml:"iqr_factor"`

	// Disabled switches individual methods off.
	Disabled []detector.Kind `json:"disabled,omitempty" toml:"disabled"`
}

func DefaultConfig() Config {
	return Config{
		Contamination: DefaultContamination,
		ZThresh:       DefaultZThresh,
		IQRFactor:     DefaultIQRFactor,
	}
}

func (c Config) Validate() error {
	if c.Contamination <= 0 || c.Contamination >= 0.5 {
		return &ValidationError{Field: "contamination", Reason: fmt.Sprintf("%v is out of (0, 0.5)", c.Contamination)}
	}
	if c.ZThresh <= 0 {
		return &ValidationError{Field: "zThresh", Reason: fmt.Sprintf("%v must be positive", c.ZThresh)}
	}
	if c.IQRFactor <= 0 {
		return &ValidationError{Field: "iqrFactor", Reason: fmt.Sprintf("%v must be positive", c.IQRFactor)}
	}
	for _, kind := range c.Disabled {
		if !detector.ValidKind(kind) {
			return &ValidationError{Field: "disabled", Reason: fmt.Sprintf("unknown method %q", kind)}
		}
	}
	if len(c.Disabled) == len(detector.Kinds()) {
		return &ValidationError{Field: "disabled", Reason: "all methods are disabled"}
	}
	return nil
}

func (c Config) Enabled(kind detector.Kind) bool {
	for _, disabled := range c.Disabled {
		if disabled == kind {
			return false
		}
	}
	return true
}
