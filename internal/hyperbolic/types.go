// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package hyperbolic

import (
	"encoding/json"
)

// =============================================================================
// CHAT COMPLETION TYPES
// =============================================================================

// ChatMessage represents a single message in a chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`    // "user", "assistant", or "system"
	Content string `json:"content"` // The message content
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: content}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) ChatMessage {
	return ChatMessage{Role: "system", Content: content}
}

// CompletionRequest is the body for the chat completions endpoint.
type CompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	Stream      bool          `json:"stream"`
}

// completionChunk is one parsed streaming delta from an SSE data line.
type completionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// content returns the delta content of the first choice, or "".
func (c *completionChunk) content() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// completionResponse is a non-streaming chat completions response, used by
// the vision capability.
type completionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// =============================================================================
// VISION TYPES
// =============================================================================

// visionRequest is the body for a vision (image analysis) request. The
// messages carry mixed content parts instead of a plain string.
type visionRequest struct {
	Model       string          `json:"model"`
	Messages    []visionMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	TopP        float64         `json:"top_p"`
	Stream      bool            `json:"stream"`
}

type visionMessage struct {
	Role    string       `json:"role"`
	Content []visionPart `json:"content"`
}

// visionPart is one content part: either text or an image reference.
type visionPart struct {
	Type     string           `json:"type"`
	Text     string           `json:"text,omitempty"`
	ImageURL *visionImagePart `json:"image_url,omitempty"`
}

type visionImagePart struct {
	URL    string `json:"url"`
	Detail string `json:"detail"`
}

// =============================================================================
// IMAGE GENERATION TYPES
// =============================================================================

// imageRequest is the body for the image generation endpoint.
type imageRequest struct {
	ModelName     string `json:"model_name"`
	Prompt        string `json:"prompt"`
	Steps         int    `json:"steps"`
	CfgScale      float64 `json:"cfg_scale"`
	EnableRefiner bool   `json:"enable_refiner"`
	Height        int    `json:"height"`
	Width         int    `json:"width"`
	Backend       string `json:"backend"`
}

// imageResponse is the image generation response. images[0] is either a raw
// base64 string or an object carrying an "image" field, depending on the
// backend that served the request.
type imageResponse struct {
	Images []imagePayload `json:"images"`
}

// imagePayload tolerates both wire shapes for a generated image.
type imagePayload struct {
	base64 string
}

// UnmarshalJSON accepts either "…base64…" or {"image": "…base64…"}.
func (p *imagePayload) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		p.base64 = s
		return nil
	}
	var obj struct {
		Image string `json:"image"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	p.base64 = obj.Image
	return nil
}

// =============================================================================
// AUDIO GENERATION TYPES
// =============================================================================

// audioRequest is the body for the audio generation endpoint.
type audioRequest struct {
	Text  string  `json:"text"`
	Speed float64 `json:"speed"`
}

// audioResponse is the audio generation response.
type audioResponse struct {
	Audio string `json:"audio"`
}

// =============================================================================
// API ERROR ENVELOPE
// =============================================================================

// apiErrorResponse is the upstream error envelope.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
