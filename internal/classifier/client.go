package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"grifttracker/internal/config"
)

// Verdict is the external classifier's answer for one entity. When it
// arrives, it replaces the locally computed recommendation and the
// suggestion is marked externally sourced.
type Verdict struct {
	Recommendation string  `json:"recommendation"`
	Confidence     float64 `json:"confidence"`
	Rationale      string  `json:"rationale"`
}

type classifyRequest struct {
	EntityID       string   `json:"entity_id"`
	Symbol         string   `json:"symbol"`
	AggregateScore float64  `json:"aggregate_score"`
	Reasons        []string `json:"reasons"`
}

// Client calls the optional external classification service. Absence or
// failure of the service is never fatal to suggestion generation.
type Client struct {
	BaseURL  string
	TokenEnv string

	HTTP *http.Client
}

func New(cfg config.ClassifierConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:  cfg.BaseURL,
		TokenEnv: cfg.TokenEnv,
		HTTP:     &http.Client{Timeout: timeout},
	}
}

// Classify asks the service for a verdict. A nil Verdict with nil error
// means the service declined to override.
func (c *Client) Classify(ctx context.Context, entityID, symbol string, score float64, reasons []string) (*Verdict, error) {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return nil, errors.New("classifier base url is empty")
	}
	body, err := json.Marshal(classifyRequest{
		EntityID:       entityID,
		Symbol:         symbol,
		AggregateScore: score,
		Reasons:        reasons,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/v1/classify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.TokenEnv != "" {
		if token := os.Getenv(c.TokenEnv); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("classifier http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var v Verdict
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	if v.Recommendation == "" {
		return nil, nil
	}
	return &v, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 10 * time.Second}
}
