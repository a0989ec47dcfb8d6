// Package docgen provides the HTTP client for the external document-generation
// service. The service renders BOQ, quotation, and master-project PDFs and
// returns the URL of the stored document. Generation is always best-effort:
// callers queue requests and retry out of band, and a generation failure never
// affects committed workflow state.
package docgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fieldline/casework-api/internal/config"
	"github.com/fieldline/casework-api/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultRequestTimeout = 30 * time.Second

	// maxErrorBodyBytes caps how much of an error response body is read for logging
	maxErrorBodyBytes = 2048
)

// Client calls the document-generation service over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// renderRequest is the payload sent to the generation endpoints.
type renderRequest struct {
	Kind     domain.DocumentKind `json:"kind"`
	CaseID   string              `json:"caseId"`
	SourceID string              `json:"sourceId"`
}

// renderResponse is the payload returned on success.
type renderResponse struct {
	URL string `json:"url"`
}

// NewClient creates a document-generation client.
// Returns nil if the generator is not enabled or not configured.
func NewClient(cfg *config.DocGenConfig, logger *zap.Logger) *Client {
	if cfg == nil || !cfg.Enabled {
		logger.Info("Document generation disabled")
		return nil
	}
	if cfg.BaseURL == "" {
		logger.Warn("Document generation enabled but no base URL configured, skipping")
		return nil
	}

	timeout := cfg.RequestTimeoutDuration()
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	logger.Info("Initializing document generation client",
		zap.String("base_url", cfg.BaseURL),
		zap.Duration("request_timeout", timeout),
	)

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// IsEnabled returns true if the client is initialized and ready for requests.
func (c *Client) IsEnabled() bool {
	return c != nil && c.httpClient != nil
}

// Render asks the generation service to produce the document of the given
// kind and returns the URL the rendered PDF was stored at.
func (c *Client) Render(ctx context.Context, kind domain.DocumentKind, caseID, sourceID string) (string, error) {
	if !c.IsEnabled() {
		return "", fmt.Errorf("document generation client not initialized")
	}

	body, err := json.Marshal(renderRequest{
		Kind:     kind,
		CaseID:   caseID,
		SourceID: sourceID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal render request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/render", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Document generation request failed",
			zap.Error(err),
			zap.String("kind", string(kind)),
			zap.String("case_id", caseID),
			zap.Duration("duration", time.Since(start)),
		)
		return "", fmt.Errorf("render request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		c.logger.Warn("Document generation returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.String("kind", string(kind)),
			zap.String("case_id", caseID),
			zap.ByteString("body", snippet),
		)
		return "", fmt.Errorf("render request returned status %d", resp.StatusCode)
	}

	var out renderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode render response: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("render response missing document URL")
	}

	c.logger.Debug("Document generated",
		zap.String("kind", string(kind)),
		zap.String("case_id", caseID),
		zap.Duration("duration", time.Since(start)),
	)

	return out.URL, nil
}

// HealthCheck pings the generation service.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsEnabled() {
		return nil
	}

	url := fmt.Sprintf("%s/health", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("document generator unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("document generator health returned status %d", resp.StatusCode)
	}
	return nil
}
