// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// KIND TYPE
// =============================================================================

// Kind distinguishes plain text messages from generated media messages.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

// MIME types for media references.
const (
	MediaTypePNG = "image/png"
	MediaTypeJPG = "image/jpeg"
	MediaTypeMP3 = "audio/mpeg"
)

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
//
// Messages are immutable once finalized, with one exception: the trailing
// assistant message of an in-flight streaming exchange is mutated in place as
// cumulative snapshots arrive, then finalized.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Content string `json:"content"`
	Kind    Kind   `json:"kind"`

	// Media payload for image/audio messages: a self-contained data: URI,
	// never a path into the local filesystem.
	MediaRef  string `json:"media_ref,omitempty"`
	MediaType string `json:"media_type,omitempty"`

	// Streaming state (not persisted)
	IsStreaming bool `json:"-"`
}

// NewMessage creates a new text message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Kind:      KindText,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewStreamingMessage creates an empty assistant message acting as the
// placeholder for an in-flight streaming completion.
func NewStreamingMessage() *Message {
	return &Message{
		ID:          uuid.New().String(),
		Role:        RoleAssistant,
		Kind:        KindText,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// NewMediaMessage creates an assistant message carrying generated media.
func NewMediaMessage(kind Kind, caption, mediaRef, mediaType string) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Role:      RoleAssistant,
		Kind:      kind,
		Content:   caption,
		MediaRef:  mediaRef,
		MediaType: mediaType,
		Timestamp: time.Now(),
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// SetSnapshot replaces the content of a streaming message with the latest
// cumulative snapshot. Snapshots are monotonically growing, so replacement
// can never lose text. No-op once the message is finalized.
func (m *Message) SetSnapshot(snapshot string) {
	if m.IsStreaming {
		m.Content = snapshot
	}
}

// Finalize completes streaming with the authoritative full response.
func (m *Message) Finalize(content string) {
	if !m.IsStreaming {
		return
	}
	m.Content = content
	m.IsStreaming = false
}

// IsEmpty returns true if the message has no content and no media.
func (m *Message) IsEmpty() bool {
	return m.Content == "" && m.MediaRef == ""
}

// IsUser returns true for user-authored messages.
func (m *Message) IsUser() bool {
	return m.Role == RoleUser
}

// Preview returns a truncated preview of the message content.
func (m *Message) Preview(maxRunes int) string {
	if m.Content == "" && m.MediaRef != "" {
		return "[" + string(m.Kind) + "]"
	}
	runes := []rune(m.Content)
	if len(runes) <= maxRunes {
		return m.Content
	}
	return string(runes[:maxRunes-3]) + "..."
}
