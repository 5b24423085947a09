// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package command routes raw user input to a backend capability.
package command

import (
	"strings"
	"unicode"
)

// =============================================================================
// CAPABILITY KIND
// =============================================================================

// Kind identifies the backend capability a command targets.
type Kind int

const (
	// KindCompletion is unprefixed text routed to streaming text completion.
	KindCompletion Kind = iota
	// KindImage is the /image command (image generation).
	KindImage
	// KindVision is the /vision command (image analysis).
	KindVision
	// KindAudio is the /audio command (audio generation).
	KindAudio
)

// String returns the capability name.
func (k Kind) String() string {
	switch k {
	case KindCompletion:
		return "completion"
	case KindImage:
		return "image"
	case KindVision:
		return "vision"
	case KindAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// =============================================================================
// COMMAND
// =============================================================================

// Command is the classified form of one line of user input: the target
// capability plus its argument. It is produced once per send and consumed
// exhaustively by the dispatch step, so prefix matching happens in exactly
// one place.
type Command struct {
	Kind Kind

	// Arg is the capability argument: the prompt for /image, the question
	// for /vision, the text for /audio, or the full input for completion.
	Arg string
}

// =============================================================================
// VALIDATION ERROR
// =============================================================================

// ValidationError reports a command with a missing or empty argument. It is
// raised before any network call and is user-visible immediately.
type ValidationError struct {
	Command string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// =============================================================================
// ROUTER
// =============================================================================

// prefixes lists the recognized command prefixes in fixed priority order.
var prefixes = []struct {
	prefix  string
	kind    Kind
	missing string
}{
	{"/image", KindImage, "Please provide a prompt for image generation."},
	{"/vision", KindVision, "Please provide a question for image analysis."},
	{"/audio", KindAudio, "Please provide text for audio generation."},
}

// Parse classifies raw input into a Command. Prefix matching is
// case-insensitive and re-evaluated on every call; routing holds no state.
// A recognized prefix with an empty or whitespace-only argument yields a
// *ValidationError and no Command.
func Parse(input string) (Command, error) {
	trimmed := strings.TrimSpace(input)
	lower := strings.ToLower(trimmed)

	for _, p := range prefixes {
		if !hasCommandPrefix(lower, p.prefix) {
			continue
		}
		arg := strings.TrimSpace(trimmed[len(p.prefix):])
		if arg == "" {
			return Command{}, &ValidationError{
				Command: p.prefix,
				Message: p.missing,
			}
		}
		return Command{Kind: p.kind, Arg: arg}, nil
	}

	return Command{Kind: KindCompletion, Arg: trimmed}, nil
}

// IsCommand returns true if the input carries a recognized capability prefix.
func IsCommand(input string) bool {
	lower := strings.ToLower(strings.TrimSpace(input))
	for _, p := range prefixes {
		if hasCommandPrefix(lower, p.prefix) {
			return true
		}
	}
	return false
}

// hasCommandPrefix matches a prefix only at a word boundary, so "/imagery"
// is not an /image command.
func hasCommandPrefix(lower, prefix string) bool {
	if !strings.HasPrefix(lower, prefix) {
		return false
	}
	rest := lower[len(prefix):]
	if rest == "" {
		return true
	}
	return unicode.IsSpace(rune(rest[0]))
}
