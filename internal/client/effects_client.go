package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chromox/api/internal/config"
)

// EffectsProcessor defines the interface for the effects microservice
type EffectsProcessor interface {
	Process(ctx context.Context, req *ProcessRequest) (*ProcessResponse, error)
	HealthCheck(ctx context.Context) error
	IsConfigured() bool
}

// EffectsClient implements EffectsProcessor for the Python microservice
type EffectsClient struct {
	httpClient *http.Client
	baseURL    string
}

// ProcessRequest represents the request for an effects pass
type ProcessRequest struct {
	AudioURL       string             `json:"audio_url"`
	Engine         string             `json:"engine"`
	Preset         string             `json:"preset,omitempty"`
	Params         map[string]float64 `json:"params,omitempty"`
	PreviewSeconds int                `json:"preview_seconds,omitempty"`
	OutputKey      string             `json:"output_key"`
}

// ProcessResponse represents the response from an effects pass
type ProcessResponse struct {
	OutputURL string  `json:"output_url"`
	Duration  float64 `json:"duration"`
	Engine    string  `json:"engine"`
}

// NewEffectsClient creates a new effects processing client
func NewEffectsClient(cfg *config.EffectsConfig) *EffectsClient {
	return &EffectsClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.ServiceURL,
	}
}

// Process runs an effects engine over the audio at AudioURL
func (c *EffectsClient) Process(ctx context.Context, req *ProcessRequest) (*ProcessResponse, error) {
	var result ProcessResponse
	if err := c.post(ctx, "/process", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// HealthCheck checks if the effects service is available
func (c *EffectsClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("effects service unhealthy: status %d", resp.StatusCode)
	}

	return nil
}

// post sends a POST request with JSON body and parses the response
func (c *EffectsClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("effects service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *EffectsClient) IsConfigured() bool {
	return c.baseURL != ""
}
