package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"odta/internal/config"
	"odta/internal/pkg/circuit"
	"odta/internal/pkg/text"
)

// HTTPDecider talks to the external decision-making service over REST.
// One POST per phase invocation; the body is the session snapshot, the
// response a CycleResult payload (trading) or a bare acknowledgement
// (pre-market, end of day).
type HTTPDecider struct {
	baseURL    *url.URL
	httpClient *http.Client
	breaker    *circuit.Breaker
}

// NewHTTPDecider constructs the client from configuration.
func NewHTTPDecider(cfg config.DecisionConfig) (*HTTPDecider, error) {
	raw := strings.TrimSpace(cfg.Endpoint)
	if raw == "" {
		return nil, fmt.Errorf("decision.endpoint cannot be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing decision.endpoint failed: %w", err)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPDecider{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: timeout},
		// Three straight failures trip the breaker for one monitoring
		// interval's worth of wall time; the scheduler rides through on
		// its previous state meanwhile.
		breaker: circuit.NewBreaker("decision-endpoint", 3, 2*time.Minute),
	}, nil
}

// SetHTTPClient sets the HTTP client for testing.
func (d *HTTPDecider) SetHTTPClient(client *http.Client) {
	d.httpClient = client
}

func (d *HTTPDecider) PreMarket(ctx context.Context, snap SessionSnapshot) error {
	_, err := d.post(ctx, "pre-market", preMarketRequest{Snapshot: snap})
	return err
}

func (d *HTTPDecider) RunCycle(ctx context.Context, snap SessionSnapshot) (CycleResult, error) {
	body, err := d.post(ctx, "cycle", cycleRequest{Snapshot: snap})
	if err != nil {
		return CycleResult{}, err
	}
	return ParseCycleResult(string(body))
}

func (d *HTTPDecider) EndOfDay(ctx context.Context, snap SessionSnapshot, stopReason string) error {
	_, err := d.post(ctx, "end-of-day", eodRequest{Snapshot: snap, StopReason: stopReason})
	return err
}

type preMarketRequest struct {
	Snapshot SessionSnapshot `json:"snapshot"`
}

type cycleRequest struct {
	Snapshot SessionSnapshot `json:"snapshot"`
}

type eodRequest struct {
	Snapshot   SessionSnapshot `json:"snapshot"`
	StopReason string          `json:"stop_reason"`
}

func (d *HTTPDecider) post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	if !d.breaker.Allow() {
		return nil, fmt.Errorf("decision: %s skipped, endpoint circuit open", endpoint)
	}
	target := d.baseURL.JoinPath(endpoint)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("decision: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decision: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.breaker.RecordFailure()
		return nil, fmt.Errorf("decision: %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		d.breaker.RecordFailure()
		return nil, fmt.Errorf("decision: read %s response: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		d.breaker.RecordFailure()
		return nil, fmt.Errorf("decision: %s returned HTTP %d: %s", endpoint, resp.StatusCode, text.Truncate(string(raw), 200))
	}
	d.breaker.RecordSuccess()
	return raw, nil
}
