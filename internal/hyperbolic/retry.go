// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package hyperbolic

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// Retry defaults.
const (
	// DefaultMaxRetries is the number of retries after the initial attempt.
	DefaultMaxRetries = 3

	// DefaultBaseDelay seeds the exponential backoff.
	DefaultBaseDelay = 1000 * time.Millisecond
)

// Policy controls retry behavior for rate-limited requests. Only HTTP 429 is
// retryable; every other failure is terminal on first occurrence.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultPolicy returns the standard retry policy: three retries with
// exponential backoff of 2s, 4s, 8s.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
	}
}

// Decision is the outcome of consulting the policy after a failed attempt.
type Decision struct {
	Retry bool
	After time.Duration
}

// Decide returns whether to retry after the given zero-based attempt and how
// long to wait first. The wait is the larger of the server's Retry-After hint
// and the exponential backoff schedule, so a server hint can extend a delay
// but never shorten it.
func (p Policy) Decide(attempt, statusCode int, retryAfter string) Decision {
	if statusCode != http.StatusTooManyRequests {
		return Decision{}
	}
	if attempt >= p.MaxRetries {
		return Decision{}
	}

	delay := p.BaseDelay << (attempt + 1)
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
		if hint := time.Duration(secs) * time.Second; hint > delay {
			delay = hint
		}
	}
	return Decision{Retry: true, After: delay}
}

// RateLimitError indicates an HTTP 429 response.
type RateLimitError struct {
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return "rate limited (retry after " + e.RetryAfter.String() + ")"
	}
	return "rate limited"
}

// Is makes RateLimitError match ErrRateLimited with errors.Is.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// sleepCtx sleeps for d or until ctx is cancelled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
