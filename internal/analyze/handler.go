package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trendspotter/internal/dataset"
	"trendspotter/internal/detector"
	"trendspotter/internal/ensemble"
	"trendspotter/internal/frame"
	"trendspotter/internal/httputil"
	"trendspotter/internal/logging"
	"trendspotter/internal/narrative"
	"trendspotter/internal/report/model"
	"trendspotter/internal/telemetry"
)

const maxBodyBytes = 64 * 1024 * 1024

// Archiver persists assembled reports so they can be fetched later.
type Archiver interface {
	Store(ctx context.Context, report model.Report) error
}

// Narrator asks the report-assembly collaborator for a narrative.
type Narrator interface {
	Generate(ctx context.Context, r narrative.Request) (string, error)
}

type request struct {
	Source  string           `json:"source"`
	Dataset dataset.Dataset  `json:"dataset"`
	Config  *ensemble.Config `json:"config"`
}

func NewHandler(cfg *Config, archive Archiver, narrator Narrator) (http.Handler, error) {
	return &handler{
		cfg:      cfg,
		archive:  archive,
		narrator: narrator,
	}, nil
}

type handler struct {
	cfg      *Config
	archive  Archiver
	narrator Narrator
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()
	logger := logging.FromContext(ctx)

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		logger.Debug(fmt.Sprintf(`{"error": "method %v is not allowed"}`, r.Method))
		_, _ = fmt.Fprintf(w, `{"error": "method %v is not allowed"}`, r.Method)
		return
	}

	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	ds, cfg, source, ok := h.decode(ctx, w, r)
	if !ok {
		telemetry.RecordAnalyze(ctx, time.Since(start), "bad_request")
		return
	}

	if ds.Len() > h.cfg.MaxRows {
		telemetry.RecordAnalyze(ctx, time.Since(start), "bad_request")
		httputil.RespBadRequest(ctx, w, `{"error": "dataset is too large, max allowed rows is %d"}`, h.cfg.MaxRows)
		return
	}

	runner, err := ensemble.New(cfg)
	if err != nil {
		telemetry.RecordAnalyze(ctx, time.Since(start), "invalid_config")
		httputil.RespBadRequest(ctx, w, `{"error": "%v"}`, err)
		return
	}

	ensReport, err := runner.Run(ctx, ds)
	if err != nil {
		var insufficient *frame.InsufficientDataError
		if errors.As(err, &insufficient) {
			telemetry.RecordAnalyze(ctx, time.Since(start), "insufficient_data")
			httputil.RespUnprocessable(ctx, w, `{"error": "%v"}`, insufficient)
			return
		}
		telemetry.RecordAnalyze(ctx, time.Since(start), "error")
		httputil.RespInternalError(ctx, w, `{"error": "analysis error, %v"}`, err)
		return
	}

	rpt := model.New(source, dataset.Summarize(ds), ensReport)
	h.assemble(ctx, &rpt)

	telemetry.RecordAnalyze(ctx, time.Since(start), "ok")
	bytes, err := json.Marshal(rpt)
	if err != nil {
		httputil.RespInternalError(ctx, w, `{"error": "failed to encode output json %v"}`, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(bytes)
}

// decode reads the dataset and configuration from either a JSON request
// or a raw CSV body with query parameter overrides.
func (h *handler) decode(ctx context.Context, w http.ResponseWriter, r *http.Request) (*dataset.Dataset, ensemble.Config, string, bool) {
	cfg := h.cfg.EnsembleConfig()
	contentType := r.Header.Get("content-type")

	switch {
	case strings.HasPrefix(contentType, "application/json"):
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.DecodeErr(ctx, w, err)
			return nil, cfg, "", false
		}
		if req.Config != nil {
			cfg = mergeConfig(cfg, *req.Config)
		}
		ds := req.Dataset
		if err := ds.Validate(); err != nil {
			httputil.RespBadRequest(ctx, w, `{"error": "%v"}`, err)
			return nil, cfg, "", false
		}
		return &ds, cfg, req.Source, true

	case strings.HasPrefix(contentType, "text/csv"):
		ds, err := dataset.ReadCSV(r.Body)
		if err != nil {
			httputil.RespBadRequest(ctx, w, `{"error": "%v"}`, err)
			return nil, cfg, "", false
		}
		cfg, err = queryConfig(cfg, r)
		if err != nil {
			httputil.RespBadRequest(ctx, w, `{"error": "%v"}`, err)
			return nil, cfg, "", false
		}
		return ds, cfg, r.URL.Query().Get("source"), true

	default:
		w.WriteHeader(http.StatusUnsupportedMediaType)
		_, _ = fmt.Fprintf(w, `{"error": "content-type must be application/json or text/csv"}`)
		return nil, cfg, "", false
	}
}

// mergeConfig lets a request override individual defaults without
// restating the rest.
func mergeConfig(base, override ensemble.Config) ensemble.Config {
	if override.Contamination != 0 {
		base.Contamination = override.Contamination
	}
	if override.ZThresh != 0 {
		base.ZThresh = override.ZThresh
	}
	if override.IQRFactor != 0 {
		base.IQRFactor = override.IQRFactor
	}
	if override.Disabled != nil {
		base.Disabled = override.Disabled
	}
	return base
}

func queryConfig(cfg ensemble.Config, r *http.Request) (ensemble.Config, error) {
	query := r.URL.Query()
	for param, target := range map[string]*float64{
		"contamination": &cfg.Contamination,
		"z_thresh":      &cfg.ZThresh,
		"iqr_factor":    &cfg.IQRFactor,
	} {
		raw := query.Get(param)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return cfg, fmt.Errorf("unable to parse %s: %w", param, err)
		}
		*target = v
	}
	if raw := query.Get("disabled"); raw != "" {
		for _, kind := range strings.Split(raw, ",") {
			cfg.Disabled = append(cfg.Disabled, detector.Kind(strings.TrimSpace(kind)))
		}
	}
	return cfg, nil
}

// assemble attaches the narrative and archives the report; both steps
// degrade without failing the request.
func (h *handler) assemble(ctx context.Context, rpt *model.Report) {
	logger := logging.FromContext(ctx)

	if h.narrator != nil {
		text, err := h.narrator.Generate(ctx, narrative.Request{
			Source:     rpt.Source,
			Rows:       rpt.Ensemble.Rows,
			Columns:    len(rpt.Summary),
			Anomalies:  rpt.Anomalies(),
			AnomalyPct: float64(rpt.Anomalies()) / float64(rpt.Ensemble.Rows) * 100,
			Summary:    rpt.Summary,
		})
		if err != nil {
			logger.Errorf("narrative generation failed: %v", err)
			rpt.Ensemble.Warnings = append(rpt.Ensemble.Warnings, frame.Warning{
				Kind:    frame.WarnNarrative,
				Message: fmt.Sprintf("narrative generation failed: %v", err),
			})
		} else {
			rpt.Narrative = text
		}
	}

	if h.archive != nil {
		if err := h.archive.Store(ctx, *rpt); err != nil {
			logger.Errorf("unable to archive report %s: %v", rpt.ID, err)
		}
	}
}
