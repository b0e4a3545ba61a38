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

// BeatAnalyzer defines the interface for the beat analysis microservice
type BeatAnalyzer interface {
	Analyze(ctx context.Context, audioURL string) (*AnalyzeResponse, error)
	IsConfigured() bool
}

// BeatClient implements BeatAnalyzer for the Python microservice
type BeatClient struct {
	httpClient *http.Client
	baseURL    string
}

// AnalyzeResponse represents the beat grid extracted from a track
type AnalyzeResponse struct {
	BPM        float64   `json:"bpm"`
	Confidence float64   `json:"confidence"`
	Beats      []float64 `json:"beats"`
	Downbeats  []float64 `json:"downbeats"`
	Duration   float64   `json:"duration"`
}

// NewBeatClient creates a new beat analysis client
func NewBeatClient(cfg *config.BeatConfig) *BeatClient {
	return &BeatClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.ServiceURL,
	}
}

// Analyze extracts BPM, beats and downbeats from the audio at audioURL
func (c *BeatClient) Analyze(ctx context.Context, audioURL string) (*AnalyzeResponse, error) {
	body := map[string]string{"audio_url": audioURL}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("beat service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result AnalyzeResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &result, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *BeatClient) IsConfigured() bool {
	return c.baseURL != ""
}
