package reasoner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"study-advisor/internal/common/logger"
)

// HTTPClient calls an external text-generation endpoint to narrate report
// sections. It retries transient failures with exponential backoff and maps
// context expiry to ErrReasoningTimeout so callers can fall back to their
// deterministic templates.
type HTTPClient struct {
	baseURL    string
	maxRetries int
	client     *http.Client
	logger     logger.Logger
}

// NewHTTPClient builds a reasoner client for the given base URL.
func NewHTTPClient(baseURL string, timeout time.Duration, maxRetries int, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		maxRetries: maxRetries,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: log.With(map[string]interface{}{
			"component": "reasoner",
		}),
	}
}

// Narrate posts the section facts to the narration endpoint and returns the
// generated text.
func (c *HTTPClient) Narrate(ctx context.Context, section string, facts map[string]string) (string, error) {
	requestBody := map[string]interface{}{
		"section": section,
		"facts":   facts,
	}

	body, _ := json.Marshal(requestBody)

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ErrReasoningTimeout
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/ai/narrate", bytes.NewBuffer(body))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrReasoningFailed, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, lastErr = c.client.Do(req)

		// If the context expired during the request, report timeout
		// immediately instead of burning the remaining retries.
		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return "", ErrReasoningTimeout
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", ErrReasoningTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrReasoningFailed, lastErr)
	}

	if resp == nil {
		return "", fmt.Errorf("%w: no successful response after retries", ErrReasoningFailed)
	}
	defer resp.Body.Close()

	var apiResponse struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", fmt.Errorf("%w: decode error: %v", ErrReasoningFailed, err)
	}

	c.logger.Debug("narration generated", map[string]interface{}{
		"section": section,
		"length":  len(apiResponse.Text),
	})

	return apiResponse.Text, nil
}
