// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package hyperbolic provides the client for the Hyperbolic generative API.
//
// Hyperbolic exposes several model families behind one bearer-token API:
// streaming chat completion (DeepSeek-V3), image generation (FLUX.1-dev),
// audio generation, and vision analysis (Qwen2-VL). This package implements
// one adapter per capability on a shared Client, plus the SSE stream decoder
// and the rate-limit retry policy they consult.
//
// # Key Types
//
//   - Client: HTTP client for the Hyperbolic API, one method per capability
//   - StreamDecoder: incremental SSE decoder producing cumulative snapshots
//   - Policy: retry-with-backoff decisions for rate-limited requests
//   - APIError: normalized upstream error with HTTP status
//
// # Usage
//
// Create a client and stream a completion:
//
//	client := hyperbolic.NewClient(apiKey)
//	text, err := client.ChatStream(ctx, "hello", func(snapshot string) {
//	    fmt.Print("\r" + snapshot)
//	})
//
// # Security
//
// API keys are never logged; diagnostics use a SHA-256 fingerprint instead.
// All requests use TLS 1.2+.
package hyperbolic
