package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trendspotter/internal/narrative"
	"trendspotter/internal/report/model"
)

func testConfig() *Config {
	return &Config{
		RequestTimeout: 10 * time.Second,
		MaxRows:        1000,
		Contamination:  0.1,
		ZThresh:        3.0,
		IQRFactor:      1.5,
	}
}

type memArchive struct {
	stored []model.Report
}

func (m *memArchive) Store(_ context.Context, report model.Report) error {
	m.stored = append(m.stored, report)
	return nil
}

type stubNarrator struct {
	text string
	err  error
}

func (s *stubNarrator) Generate(context.Context, narrative.Request) (string, error) {
	return s.text, s.err
}

// jsonBody builds an analyze request over a 20-row, 2-column dataset
// with one extreme row.
func jsonBody(t *testing.T) []byte {
	t.Helper()
	body := map[string]interface{}{
		"source": "unit",
		"dataset": map[string]interface{}{
			"columns": []string{"a", "b"},
			"rows":    testRows(),
		},
		"config": map[string]interface{}{"contamination": 0.1},
	}
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return b
}

func testRows() [][]interface{} {
	rows := make([][]interface{}, 0, 20)
	for i := 0; i < 19; i++ {
		rows = append(rows, []interface{}{float64(i % 5), float64(10 + i%3)})
	}
	rows = append(rows, []interface{}{1000.0, -500.0})
	return rows
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	t.Parallel()
	h, err := NewHandler(testConfig(), nil, nil)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	r := httptest.NewRequest(http.MethodGet, "/analyze", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected %d, got %d", http.StatusMethodNotAllowed, w.Code)
	}
}

func TestHandler_UnsupportedMediaType(t *testing.T) {
	t.Parallel()
	h, _ := NewHandler(testConfig(), nil, nil)
	r := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("x"))
	r.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected %d, got %d", http.StatusUnsupportedMediaType, w.Code)
	}
}

func TestHandler_MalformedJSON(t *testing.T) {
	t.Parallel()
	h, _ := NewHandler(testConfig(), nil, nil)
	r := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{"dataset": `))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestHandler_InvalidConfig(t *testing.T) {
	t.Parallel()
	h, _ := NewHandler(testConfig(), nil, nil)

	body := fmt.Sprintf(`{"dataset": {"columns": ["a"], "rows": %s}, "config": {"contamination": 0.9}}`, rowsJSON(t))
	r := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected %d, got %d: %s", http.StatusBadRequest, w.Code, w.Body.String())
	}
}

func rowsJSON(t *testing.T) string {
	t.Helper()
	rows := make([][]interface{}, 10)
	for i := range rows {
		rows[i] = []interface{}{float64(i)}
	}
	b, err := json.Marshal(rows)
	if err != nil {
		t.Fatalf("marshal rows: %v", err)
	}
	return string(b)
}

func TestHandler_InsufficientData(t *testing.T) {
	t.Parallel()
	h, _ := NewHandler(testConfig(), nil, nil)

	body := `{"dataset": {"columns": ["a"], "rows": [[1], [2]]}}`
	r := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected %d, got %d: %s", http.StatusUnprocessableEntity, w.Code, w.Body.String())
	}
}

func TestHandler_RaggedRows(t *testing.T) {
	t.Parallel()
	h, _ := NewHandler(testConfig(), nil, nil)

	body := `{"dataset": {"columns": ["a", "b"], "rows": [[1, 2], [3], [4, 5]]}}`
	r := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected %d, got %d: %s", http.StatusBadRequest, w.Code, w.Body.String())
	}
}

func TestHandler_AnalyzeJSON(t *testing.T) {
	t.Parallel()
	archive := &memArchive{}
	h, err := NewHandler(testConfig(), archive, &stubNarrator{text: "one extreme row dominates"})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(jsonBody(t)))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var rpt model.Report
	if err := json.Unmarshal(w.Body.Bytes(), &rpt); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rpt.Source != "unit" {
		t.Fatalf("expected source %q, got %q", "unit", rpt.Source)
	}
	if rpt.Ensemble == nil || rpt.Ensemble.Rows != 20 {
		t.Fatalf("expected ensemble over 20 rows, got %+v", rpt.Ensemble)
	}
	if got := len(rpt.Ensemble.Verdicts); got != 20 {
		t.Fatalf("expected 20 verdicts, got %d", got)
	}
	if !rpt.Ensemble.Verdicts[19].Outlier {
		t.Fatalf("expected the extreme row to be flagged: %+v", rpt.Ensemble.Verdicts[19])
	}
	if rpt.Narrative != "one extreme row dominates" {
		t.Fatalf("expected narrative attached, got %q", rpt.Narrative)
	}
	if len(archive.stored) != 1 {
		t.Fatalf("expected 1 archived report, got %d", len(archive.stored))
	}
	if archive.stored[0].ID != rpt.ID {
		t.Fatalf("archived id %s does not match response id %s", archive.stored[0].ID, rpt.ID)
	}
}

func TestHandler_NarratorFailureDegrades(t *testing.T) {
	t.Parallel()
	h, _ := NewHandler(testConfig(), nil, &stubNarrator{err: fmt.Errorf("collaborator down")})

	r := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(jsonBody(t)))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var rpt model.Report
	if err := json.Unmarshal(w.Body.Bytes(), &rpt); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rpt.Narrative != "" {
		t.Fatalf("expected no narrative, got %q", rpt.Narrative)
	}
	found := false
	for _, warning := range rpt.Ensemble.Warnings {
		if warning.Kind == "narrative" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a narrative warning, got %+v", rpt.Ensemble.Warnings)
	}
}

func TestHandler_AnalyzeCSV(t *testing.T) {
	t.Parallel()
	h, _ := NewHandler(testConfig(), nil, nil)

	var csv strings.Builder
	csv.WriteString("a,b\n")
	for i := 0; i < 19; i++ {
		fmt.Fprintf(&csv, "%d,%d\n", i%5, 10+i%3)
	}
	csv.WriteString("1000,-500\n")

	r := httptest.NewRequest(http.MethodPost, "/analyze?source=file.csv&contamination=0.1&disabled=lof", strings.NewReader(csv.String()))
	r.Header.Set("Content-Type", "text/csv")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var rpt model.Report
	if err := json.Unmarshal(w.Body.Bytes(), &rpt); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rpt.Source != "file.csv" {
		t.Fatalf("expected source from query, got %q", rpt.Source)
	}
	for _, method := range rpt.Ensemble.Methods {
		if method.Kind == "lof" {
			t.Fatalf("lof was disabled but reported: %+v", method)
		}
	}
	if !rpt.Ensemble.Verdicts[19].Outlier {
		t.Fatalf("expected the extreme row to be flagged: %+v", rpt.Ensemble.Verdicts[19])
	}
}

func TestHandler_TooManyRows(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.MaxRows = 5
	h, _ := NewHandler(cfg, nil, nil)

	r := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(jsonBody(t)))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected %d, got %d", http.StatusBadRequest, w.Code)
	}
}
