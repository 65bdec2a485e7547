package model

import (
	"time"

	"github.com/google/uuid"

	"trendspotter/internal/dataset"
	"trendspotter/internal/ensemble"
)

// Report is the assembled analysis document: the ensemble output plus
// the dataset digest and the optional narrative. It is the unit stored
// in the archive and returned by the API.
type Report struct {
	ID        uuid.UUID `json:"id"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	Summary   []dataset.ColumnSummary `json:"summary,omitempty"`
	Ensemble  *ensemble.Report        `json:"ensemble"`
	Narrative string                  `json:"narrative,omitempty"`
}

func New(source string, summary []dataset.ColumnSummary, ens *ensemble.Report) Report {
	return Report{
		ID:        uuid.New(),
		Source:    source,
		CreatedAt: time.Now().UTC(),
		Summary:   summary,
		Ensemble:  ens,
	}
}

func (r Report) Anomalies() int {
	if r.Ensemble == nil {
		return 0
	}
	return r.Ensemble.Anomalies()
}
