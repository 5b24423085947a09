// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package hyperbolic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// AnalyzeImage analyzes an image with a vision model. imageURL is either a
// remote URL or a base64 data URL, typically the output of a previous
// GenerateImage call. question directs the analysis; when empty a general
// description is requested. Rate-limited responses are retried per the
// client's policy.
func (c *Client) AnalyzeImage(ctx context.Context, imageURL, question string) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	question = strings.TrimSpace(question)
	if question == "" {
		question = "Describe this image in detail."
	}

	reqBody := visionRequest{
		Model: c.visionModel,
		Messages: []visionMessage{
			{
				Role: "user",
				Content: []visionPart{
					{Type: "text", Text: question},
					{Type: "image_url", ImageURL: &visionImagePart{
						URL:    imageURL,
						Detail: "high",
					}},
				},
			},
		},
		MaxTokens:   c.visionMaxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		Stream:      false,
	}

	body, err := c.postWithRetry(ctx, c.baseURL+"/chat/completions", reqBody)
	if err != nil {
		return "", err
	}

	var result completionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse vision response: %w", err)
	}
	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return "", ErrNoAnalysis
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
