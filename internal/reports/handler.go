// Package reports serves archived analysis reports.
package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"trendspotter/internal/httputil"
	"trendspotter/internal/logging"
	"trendspotter/internal/report/database"
	"trendspotter/internal/report/model"
)

type Config struct {
	RequestTimeout time.Duration `envconfig:"TREND_REPORTS_REQUEST_TIMEOUT" default:"10s"`
}

// Finder fetches archived reports by id.
type Finder interface {
	Find(ctx context.Context, id uuid.UUID) (model.Report, error)
	Keys() ([]string, error)
}

func NewHandler(cfg *Config, finder Finder) (http.Handler, error) {
	if finder == nil {
		return nil, fmt.Errorf("report finder instance is not created")
	}
	return &handler{cfg: cfg, finder: finder}, nil
}

type handler struct {
	cfg    *Config
	finder Finder
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()
	logger := logging.FromContext(ctx)

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		logger.Debug(fmt.Sprintf(`{"error": "method %v is not allowed"}`, r.Method))
		_, _ = fmt.Fprintf(w, `{"error": "method %v is not allowed"}`, r.Method)
		return
	}

	rawID := r.URL.Query().Get("id")
	if rawID == "" {
		h.list(ctx, w)
		return
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		httputil.RespBadRequest(ctx, w, `{"error": "malformed report id %q"}`, rawID)
		return
	}

	report, err := h.finder.Find(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		httputil.RespNotFound(ctx, w, `{"error": "report %s not found"}`, id)
		return
	}
	if err != nil {
		httputil.RespInternalError(ctx, w, `{"error": "unable to fetch report, %v"}`, err)
		return
	}

	bytes, err := json.Marshal(report)
	if err != nil {
		httputil.RespInternalError(ctx, w, `{"error": "failed to encode output json %v"}`, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(bytes)
}

func (h *handler) list(ctx context.Context, w http.ResponseWriter) {
	keys, err := h.finder.Keys()
	if err != nil {
		httputil.RespInternalError(ctx, w, `{"error": "unable to list reports, %v"}`, err)
		return
	}
	bytes, err := json.Marshal(struct {
		Reports []string `json:"reports"`
	}{Reports: keys})
	if err != nil {
		httputil.RespInternalError(ctx, w, `{"error": "failed to encode output json %v"}`, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(bytes)
}
