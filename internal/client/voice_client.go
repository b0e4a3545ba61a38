package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/chromox/api/internal/config"
)

// VocalRenderer defines the interface for vocal rendering operations
type VocalRenderer interface {
	RenderVocal(ctx context.Context, req *RenderVocalRequest) (*RenderVocalResponse, error)
	GetRenderStatus(ctx context.Context, taskID string) (*VocalResult, error)
	IsConfigured() bool
}

// VoiceClient implements VocalRenderer for the Chromox voice API
type VoiceClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// RenderVocalRequest represents the request for a vocal render
type RenderVocalRequest struct {
	Lyrics    string  `json:"lyrics"`
	PersonaID string  `json:"persona_id"`
	Style     string  `json:"style,omitempty"`
	Accent    string  `json:"accent,omitempty"`
	GuideURL  string  `json:"guide_url,omitempty"`
	GuideGain float64 `json:"guide_gain,omitempty"`
}

// RenderVocalResponse represents the response from render initiation
type RenderVocalResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// VocalResult represents a completed vocal render
type VocalResult struct {
	ID       string  `json:"id"`
	AudioURL string  `json:"audio_url"`
	Duration float64 `json:"duration"`
	Status   string  `json:"status"`
}

// NewVoiceClient creates a new voice API client
func NewVoiceClient(cfg *config.VoiceConfig) *VoiceClient {
	return &VoiceClient{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// RenderVocal initiates a vocal render
func (c *VoiceClient) RenderVocal(ctx context.Context, req *RenderVocalRequest) (*RenderVocalResponse, error) {
	var result RenderVocalResponse
	if err := c.post(ctx, "/v1/vocal/render", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRenderStatus retrieves the status of a vocal render task
func (c *VoiceClient) GetRenderStatus(ctx context.Context, taskID string) (*VocalResult, error) {
	endpoint := fmt.Sprintf("/v1/vocal/status/%s", taskID)
	var result VocalResult
	if err := c.get(ctx, endpoint, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// post sends a POST request with JSON body
func (c *VoiceClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// get sends a GET request and parses JSON response
func (c *VoiceClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// doRequest executes an HTTP request and parses the response
func (c *VoiceClient) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	log.Printf("[Voice API] → %s %s", req.Method, req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Voice API] ✗ %s %s — request failed: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[Voice API] ✗ %s %s — failed to read response: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to read response: %w", err)
	}

	log.Printf("[Voice API] ← %d %s %s", resp.StatusCode, req.Method, req.URL.String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("voice API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		log.Printf("[Voice API] ✗ unmarshal error for %s %s: %v (body: %s)", req.Method, req.URL.String(), err, string(respBody))
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *VoiceClient) IsConfigured() bool {
	return c.apiKey != ""
}

// PollRenderStatus polls for vocal render completion
func (c *VoiceClient) PollRenderStatus(ctx context.Context, taskID string, interval time.Duration, maxWait time.Duration) (*VocalResult, error) {
	deadline := time.Now().Add(maxWait)
	attempt := 0

	for time.Now().Before(deadline) {
		attempt++
		result, err := c.GetRenderStatus(ctx, taskID)
		if err != nil {
			log.Printf("[Voice API] Poll render #%d (task=%s) — error: %v", attempt, taskID, err)
			return nil, err
		}

		log.Printf("[Voice API] Poll render #%d (task=%s) — status: %s", attempt, taskID, result.Status)

		switch result.Status {
		case "completed", "success":
			return result, nil
		case "failed", "error":
			return nil, fmt.Errorf("vocal render failed: %s", result.Status)
		}

		select {
		case <-ctx.Done():
			log.Printf("[Voice API] Poll render (task=%s) — context cancelled", taskID)
			return nil, ctx.Err()
		case <-time.After(interval):
			continue
		}
	}

	return nil, fmt.Errorf("vocal render timed out after %v", maxWait)
}
