// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package hyperbolic

import (
	"context"
	"encoding/json"
	"fmt"
)

// GenerateAudio synthesizes speech from text and returns it as a base64 data
// URL (data:audio/mp3;base64,...). The client's audio speed factor controls
// playback rate; 1 is normal speed. Rate-limited responses are retried per
// the client's policy.
func (c *Client) GenerateAudio(ctx context.Context, text string) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	reqBody := audioRequest{
		Text:  text,
		Speed: c.audioSpeed,
	}

	body, err := c.postWithRetry(ctx, c.baseURL+"/audio/generation", reqBody)
	if err != nil {
		return "", err
	}

	var audioResp audioResponse
	if err := json.Unmarshal(body, &audioResp); err != nil {
		return "", fmt.Errorf("failed to parse audio response: %w", err)
	}
	if audioResp.Audio == "" {
		return "", ErrNoAudioData
	}
	return "data:audio/mp3;base64," + audioResp.Audio, nil
}
