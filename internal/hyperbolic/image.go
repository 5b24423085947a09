// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package hyperbolic

import (
	"context"
	"encoding/json"
	"fmt"
)

// Image generation defaults.
const (
	DefaultImageSteps    = 30
	DefaultImageCfgScale = 5
	DefaultImageHeight   = 1024
	DefaultImageWidth    = 1024
	DefaultImageBackend  = "auto"
)

// ImageOptions holds the tunable parameters for image generation.
type ImageOptions struct {
	Model         string
	Steps         int
	CfgScale      float64
	EnableRefiner bool
	Height        int
	Width         int
	Backend       string
}

// DefaultImageOptions returns the standard image generation parameters.
func DefaultImageOptions() ImageOptions {
	return ImageOptions{
		Model:    DefaultImageModel,
		Steps:    DefaultImageSteps,
		CfgScale: DefaultImageCfgScale,
		Height:   DefaultImageHeight,
		Width:    DefaultImageWidth,
		Backend:  DefaultImageBackend,
	}
}

// GenerateImage generates an image from a text prompt and returns it as a
// base64 data URL (data:image/png;base64,...), ready for direct display or
// storage. Rate-limited responses are retried per the client's policy.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	opts := c.imageOpts
	reqBody := imageRequest{
		ModelName:     opts.Model,
		Prompt:        prompt,
		Steps:         opts.Steps,
		CfgScale:      opts.CfgScale,
		EnableRefiner: opts.EnableRefiner,
		Height:        opts.Height,
		Width:         opts.Width,
		Backend:       opts.Backend,
	}

	body, err := c.postWithRetry(ctx, c.baseURL+"/image/generation", reqBody)
	if err != nil {
		return "", err
	}

	var imgResp imageResponse
	if err := json.Unmarshal(body, &imgResp); err != nil {
		return "", fmt.Errorf("failed to parse image response: %w", err)
	}
	if len(imgResp.Images) == 0 || imgResp.Images[0].base64 == "" {
		return "", ErrNoImageData
	}
	return "data:image/png;base64," + imgResp.Images[0].base64, nil
}
