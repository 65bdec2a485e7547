// Package narrative is the boundary client for the report-assembly
// collaborator that words the findings. Only the transport lives here.
package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"trendspotter/internal/dataset"
)

const UserAgent = "TRENDSPOTTER/0.1"

type Config struct {
	URL            string        `envconfig:"TREND_NARRATIVE_URL"`
	RequestTimeout time.Duration `envconfig:"TREND_NARRATIVE_REQUEST_TIMEOUT" default:"30s"`
}

func (c *Config) Enabled() bool {
	return c.URL != ""
}

// Request is the digest the narrative service writes about.
type Request struct {
	Source     string                  `json:"source,omitempty"`
	Rows       int                     `json:"rows"`
	Columns    int                     `json:"columns"`
	Anomalies  int                     `json:"anomalies"`
	AnomalyPct float64                 `json:"anomalyPct"`
	Summary    []dataset.ColumnSummary `json:"summary,omitempty"`
}

type response struct {
	Narrative string `json:"narrative"`
}

func NewClient(cfg *Config) *Client {
	return &Client{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

type Client struct {
	url    string
	client *http.Client
}

// Generate asks the collaborator for a narrative over the digest.
func (c *Client) Generate(ctx context.Context, r Request) (string, error) {
	b, err := json.Marshal(&r)
	if err != nil {
		return "", fmt.Errorf("unable marshal narrative request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error with sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("narrative service returned status %d", resp.StatusCode)
	}

	var out response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("unable decode narrative response: %w", err)
	}
	return out.Narrative, nil
}
