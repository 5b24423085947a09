// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package hyperbolic

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Configuration constants for the Hyperbolic API.
const (
	// DefaultBaseURL is the base URL for the Hyperbolic API.
	DefaultBaseURL = "https://api.hyperbolic.xyz/v1"

	// DefaultTimeout is the default timeout for non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// DefaultCompletionModel serves streaming text completions.
	DefaultCompletionModel = "deepseek-ai/DeepSeek-V3"

	// DefaultVisionModel serves image analysis.
	DefaultVisionModel = "Qwen/Qwen2-VL-72B-Instruct"

	// DefaultImageModel serves image generation.
	DefaultImageModel = "FLUX.1-dev"

	// DefaultMaxTokens is the completion token budget.
	DefaultMaxTokens = 131072

	// DefaultVisionMaxTokens is the vision analysis token budget.
	DefaultVisionMaxTokens = 2048

	// DefaultTemperature and DefaultTopP apply to completion and vision.
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9

	// DefaultProgressInterval bounds how often the streaming progress
	// callback fires, to limit UI update pressure.
	DefaultProgressInterval = 50 * time.Millisecond

	// MaxResponseSize is the maximum allowed response body size. Media
	// responses embed base64 payloads, so the limit is generous.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 32 * 1024 * 1024 // 32MB
)

// DefaultSystemPrompt is the fixed system instruction sent with every
// completion request.
const DefaultSystemPrompt = "As an advanced AI language model, you are to employ a structured " +
	"'Think-Plan-Execute' methodology for each task or query presented. This approach involves:\n\n" +
	"Think: Begin by thoroughly analyzing the problem at hand. Consider all relevant factors, " +
	"constraints, and potential challenges. Reflect on prior knowledge and experiences that may " +
	"inform your understanding of the task.\n\n" +
	"Plan: Develop a detailed and logical plan to address the problem. Outline the necessary steps " +
	"in a coherent sequence, ensuring that each step logically follows from the previous one. " +
	"Anticipate possible obstacles and incorporate strategies to overcome them.\n\n" +
	"Execute: Implement the plan step-by-step. For each step, provide clear explanations and " +
	"justifications for the actions taken. Ensure that the execution is thorough and aligns with " +
	"the outlined plan.\n\n" +
	"This structured methodology is designed to enhance your reasoning capabilities, ensuring " +
	"comprehensive and accurate responses. By following this approach, you will emulate the " +
	"reasoning process characteristic of the DeepSeek R1 model, which emphasizes systematic " +
	"analysis, meticulous planning, and deliberate execution in problem-solving."

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// Shared HTTP client for non-streaming requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for streaming requests. No client-level
	// timeout: lifetime is controlled by the request context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// =============================================================================
// LOGGING
// =============================================================================

// zlog is the package logger. No-op until SetLogger installs one.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger for the API layer. Request logging
// never includes headers or bodies (they may carry credentials or prompts).
func SetLogger(l zerolog.Logger) { zlog = l }

// =============================================================================
// ERRORS
// =============================================================================

// Error variables for common Hyperbolic API failures.
var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("Hyperbolic API key not configured")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrMaxRetries indicates the retry budget for rate limiting ran out.
	ErrMaxRetries = errors.New("max retries exceeded")

	// ErrNoImageData indicates a successful image response without image data.
	ErrNoImageData = errors.New("no image data in response")

	// ErrNoAudioData indicates a successful audio response without audio data.
	ErrNoAudioData = errors.New("no audio data in response")

	// ErrNoAnalysis indicates a successful vision response without content.
	ErrNoAnalysis = errors.New("no analysis was generated")
)

// APIError represents a normalized error from the Hyperbolic API. Capability
// methods never surface raw transport errors: every upstream failure is
// wrapped as an APIError or one of the sentinel errors above before it
// reaches the orchestrator.
type APIError struct {
	Code    string
	Message string
	Status  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("Hyperbolic error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("Hyperbolic error (HTTP %d): %s", e.Status, e.Message)
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is a client for the Hyperbolic generative API. One Client serves all
// four capabilities; per-capability parameters are fixed at construction and
// overridable with the With* builders.
type Client struct {
	apiKey  string
	baseURL string

	completionModel string
	visionModel     string
	systemPrompt    string

	maxTokens       int
	visionMaxTokens int
	temperature     float64
	topP            float64

	imageOpts  ImageOptions
	audioSpeed float64

	retry            Policy
	progressInterval time.Duration
}

// NewClient creates a new Hyperbolic client with the given API key.
//
// If the key is empty the client is still created, but every capability call
// fails with ErrNotConfigured before touching the network.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:           strings.TrimSpace(apiKey),
		baseURL:          DefaultBaseURL,
		completionModel:  DefaultCompletionModel,
		visionModel:      DefaultVisionModel,
		systemPrompt:     DefaultSystemPrompt,
		maxTokens:        DefaultMaxTokens,
		visionMaxTokens:  DefaultVisionMaxTokens,
		temperature:      DefaultTemperature,
		topP:             DefaultTopP,
		imageOpts:        DefaultImageOptions(),
		audioSpeed:       1,
		retry:            DefaultPolicy(),
		progressInterval: DefaultProgressInterval,
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithRetryPolicy sets the retry policy for rate-limited requests.
func (c *Client) WithRetryPolicy(p Policy) *Client {
	c.retry = p
	return c
}

// WithProgressInterval sets the minimum spacing between streaming progress
// callbacks. Zero disables throttling.
func (c *Client) WithProgressInterval(d time.Duration) *Client {
	c.progressInterval = d
	return c
}

// WithImageOptions sets the image generation parameters.
func (c *Client) WithImageOptions(opts ImageOptions) *Client {
	c.imageOpts = opts
	return c
}

// WithAudioSpeed sets the audio generation speed factor.
func (c *Client) WithAudioSpeed(speed float64) *Client {
	if speed > 0 {
		c.audioSpeed = speed
	}
	return c
}

// WithCompletionModel overrides the completion model.
func (c *Client) WithCompletionModel(model string) *Client {
	if model != "" {
		c.completionModel = model
	}
	return c
}

// WithVisionModel overrides the vision model.
func (c *Client) WithVisionModel(model string) *Client {
	if model != "" {
		c.visionModel = model
	}
	return c
}

// WithMaxTokens sets the completion token budget.
func (c *Client) WithMaxTokens(n int) *Client {
	if n > 0 {
		c.maxTokens = n
	}
	return c
}

// WithSampling sets the temperature and top_p used for completion and vision
// requests. Out-of-range values are ignored.
func (c *Client) WithSampling(temperature, topP float64) *Client {
	if temperature >= 0 && temperature <= 2 {
		c.temperature = temperature
	}
	if topP > 0 && topP <= 1 {
		c.topP = topP
	}
	return c
}

// WithSystemPrompt overrides the fixed system instruction.
func (c *Client) WithSystemPrompt(prompt string) *Client {
	c.systemPrompt = prompt
	return c
}

// SetAPIKey replaces the credential, e.g. after a config reload.
func (c *Client) SetAPIKey(apiKey string) {
	c.apiKey = strings.TrimSpace(apiKey)
}

// IsConfigured returns true if the client has an API key.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// APIKeyMasked returns a masked form of the API key for display.
// SECURITY: never exposes key fragments - fingerprint only.
func (c *Client) APIKeyMasked() string {
	if c.apiKey == "" {
		return "[not set]"
	}
	return fmt.Sprintf("[REDACTED, length=%d, fingerprint=%s]", len(c.apiKey), c.keyFingerprint())
}

// keyFingerprint returns a short SHA-256 fingerprint of the API key for
// logging without exposing the key.
func (c *Client) keyFingerprint() string {
	if c.apiKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(c.apiKey))
	return hex.EncodeToString(h[:4])
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// setHeaders sets the required headers for Hyperbolic API requests.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "hyperchat/0.1.0")
}

// readResponse reads a response body with a size limit.
// SECURITY: limit prevents memory exhaustion from a hostile endpoint.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts an HTTP error response into a normalized error.
func handleErrorResponse(statusCode int, body []byte) error {
	if statusCode == http.StatusTooManyRequests {
		return &RateLimitError{}
	}

	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return &APIError{
			Code:    apiErr.Error.Code,
			Message: apiErr.Error.Message,
			Status:  statusCode,
		}
	}

	return &APIError{
		Message: strings.TrimSpace(string(body)),
		Status:  statusCode,
	}
}

// postJSON performs one POST with a JSON body and returns the raw response.
// The caller owns the response body.
func (c *Client) postJSON(ctx context.Context, client *http.Client, url string, reqBody any) (*http.Response, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	zlog.Debug().
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("api request")

	return resp, nil
}

// postWithRetry performs a POST, applying the retry policy to rate-limited
// responses. All other failures are terminal on first occurrence. The backoff
// sleep honors ctx, so cancellation unwinds a pending retry immediately.
func (c *Client) postWithRetry(ctx context.Context, url string, reqBody any) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		resp, err := c.postJSON(ctx, sharedHTTPClient, url, reqBody)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := resp.Header.Get("Retry-After")
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			resp.Body.Close()

			d := c.retry.Decide(attempt, resp.StatusCode, retryAfter)
			if !d.Retry {
				return nil, errors.Join(ErrMaxRetries, ErrRateLimited)
			}

			zlog.Info().
				Int("attempt", attempt+1).
				Dur("delay", d.After).
				Msg("rate limited, backing off")

			if err := sleepCtx(ctx, d.After); err != nil {
				return nil, err
			}
			continue
		}

		body, err := readResponse(resp)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusOK {
			return nil, handleErrorResponse(resp.StatusCode, body)
		}
		return body, nil
	}
}
