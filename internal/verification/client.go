// Package verification holds the synchronous client for the external
// face-encoding service. The client signals success or failure and
// never retries; retry policy belongs to the caller.
package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusd/admission-api/pkg/config"
)

// Result reports the verification outcome. Encoded is authoritative:
// the engine never approves a gated request without it.
type Result struct {
	Encoded bool   `json:"encoded"`
	Detail  string `json:"detail,omitempty"`
}

type verifyPayload struct {
	StudentUID string   `json:"student_uid"`
	Course     string   `json:"course"`
	PhotoURLs  []string `json:"photo_urls"`
}

type verifyResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// Client calls the face-encoding verification endpoint.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient constructs a verification client bounded by the configured
// timeout.
func NewClient(cfg config.VerificationConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Verify submits one encoding job and waits for the answer. Transport
// errors, timeouts and non-2xx responses all come back as a failed
// Result with the transport error attached; callers treat any of them
// as a definitive verification failure.
func (c *Client) Verify(ctx context.Context, studentUID string, photoURLs []string, course string) (*Result, error) {
	body, err := json.Marshal(verifyPayload{StudentUID: studentUID, Course: course, PhotoURLs: photoURLs})
	if err != nil {
		return nil, fmt.Errorf("marshal verification payload: %w", err)
	}

	url := c.baseURL + "/api/encode"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("verification call failed", zap.String("student_uid", studentUID), zap.Error(err))
		return &Result{Encoded: false, Detail: "verification service unreachable"}, fmt.Errorf("verification call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &Result{Encoded: false, Detail: "unreadable verification response"}, fmt.Errorf("read verification response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail := fmt.Sprintf("verification service returned %d", resp.StatusCode)
		c.logger.Warn("verification rejected", zap.String("student_uid", studentUID), zap.Int("status", resp.StatusCode))
		return &Result{Encoded: false, Detail: detail}, nil
	}

	var parsed verifyResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &Result{Encoded: false, Detail: "malformed verification response"}, nil
	}

	if !strings.EqualFold(parsed.Status, "success") {
		detail := parsed.Detail
		if detail == "" {
			detail = "encoding not confirmed"
		}
		return &Result{Encoded: false, Detail: detail}, nil
	}

	return &Result{Encoded: true, Detail: parsed.Detail}, nil
}
