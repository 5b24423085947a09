// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package hyperbolic

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// streamDonePayload is the sentinel the server emits before closing the
// stream. It is informational only: end of stream is signalled by EOF.
const streamDonePayload = "[DONE]"

// maxStreamLineSize bounds one SSE line. Chunks carry small deltas, so
// anything near this size indicates a broken stream.
const maxStreamLineSize = 1024 * 1024 // 1MB

// StreamDecoder incrementally decodes a server-sent-event completion stream
// into cumulative text snapshots. Each successful Next advances the
// accumulated text; Text never shrinks between calls.
type StreamDecoder struct {
	scanner *bufio.Scanner
	builder strings.Builder
}

// NewStreamDecoder creates a decoder reading SSE lines from r.
func NewStreamDecoder(r io.Reader) *StreamDecoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxStreamLineSize)
	return &StreamDecoder{scanner: scanner}
}

// Next consumes lines until a chunk with a non-empty text delta arrives,
// then returns the updated snapshot. It returns io.EOF when the stream ends.
// Malformed lines are logged and skipped; a malformed line never aborts the
// stream or corrupts the snapshot.
func (d *StreamDecoder) Next() (string, error) {
	for d.scanner.Scan() {
		line := strings.TrimSpace(d.scanner.Text())
		if line == "" {
			continue
		}
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		if data == streamDonePayload {
			continue
		}

		var chunk completionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			zlog.Warn().Err(err).Msg("skipping malformed stream chunk")
			continue
		}

		delta := chunk.content()
		if delta == "" {
			continue
		}
		d.builder.WriteString(delta)
		return d.Text(), nil
	}

	if err := d.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// Text returns the current trimmed snapshot of the accumulated response.
func (d *StreamDecoder) Text() string {
	return strings.TrimSpace(d.builder.String())
}

// ChatStream sends a completion request and streams the response. onSnapshot
// receives cumulative snapshots of the assistant text as it grows, throttled
// to the client's progress interval; the final snapshot is always delivered.
// The returned string is the complete trimmed response.
//
// Each call sends the fixed system prompt plus only the given user prompt.
// Earlier conversation turns are not transmitted.
func (c *Client) ChatStream(ctx context.Context, prompt string, onSnapshot func(string)) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	reqBody := CompletionRequest{
		Model: c.completionModel,
		Messages: []ChatMessage{
			NewSystemMessage(c.systemPrompt),
			NewUserMessage(prompt),
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		Stream:      true,
	}

	resp, err := c.openStream(ctx, reqBody)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// PERFORMANCE: throttle intermediate snapshots so a fast stream cannot
	// flood the consumer. The final snapshot bypasses the limiter.
	var limiter *rate.Limiter
	if c.progressInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(c.progressInterval), 1)
	}

	decoder := NewStreamDecoder(resp.Body)
	for {
		snapshot, err := decoder.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if ctx.Err() != nil {
				return decoder.Text(), ctx.Err()
			}
			return decoder.Text(), err
		}
		if onSnapshot != nil && (limiter == nil || limiter.Allow()) {
			onSnapshot(snapshot)
		}
	}

	final := decoder.Text()
	if onSnapshot != nil {
		onSnapshot(final)
	}
	return final, nil
}

// openStream opens the streaming completion request, retrying the initial
// response on rate limiting. Once a 200 arrives the stream itself is never
// retried: a mid-stream failure is terminal.
func (c *Client) openStream(ctx context.Context, reqBody CompletionRequest) (*http.Response, error) {
	url := c.baseURL + "/chat/completions"
	for attempt := 0; ; attempt++ {
		resp, err := c.postJSON(ctx, sharedStreamingClient, url, reqBody)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		retryAfter := resp.Header.Get("Retry-After")
		body, _ := readResponse(resp)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
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
		return nil, handleErrorResponse(resp.StatusCode, body)
	}
}
