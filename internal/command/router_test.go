// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package command

import (
	"errors"
	"testing"
)

func TestParseRouting(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		kind     Kind
		arg      string
	}{
		{
			name:  "plain text",
			input: "why is the sky blue",
			kind:  KindCompletion,
			arg:   "why is the sky blue",
		},
		{
			name:  "image command",
			input: "/image a red fox in the snow",
			kind:  KindImage,
			arg:   "a red fox in the snow",
		},
		{
			name:  "vision command",
			input: "/vision what is in this picture",
			kind:  KindVision,
			arg:   "what is in this picture",
		},
		{
			name:  "audio command",
			input: "/audio read this aloud",
			kind:  KindAudio,
			arg:   "read this aloud",
		},
		{
			name:  "case insensitive prefix",
			input: "/IMAGE a castle",
			kind:  KindImage,
			arg:   "a castle",
		},
		{
			name:  "mixed case prefix",
			input: "/Vision describe the scene",
			kind:  KindVision,
			arg:   "describe the scene",
		},
		{
			name:  "surrounding whitespace",
			input: "  /audio hello there  ",
			kind:  KindAudio,
			arg:   "hello there",
		},
		{
			name:  "slash mid-sentence is plain text",
			input: "what does /image mean",
			kind:  KindCompletion,
			arg:   "what does /image mean",
		},
		{
			name:  "prefix without word boundary is plain text",
			input: "/imagery of foxes",
			kind:  KindCompletion,
			arg:   "/imagery of foxes",
		},
		{
			name:  "tab after prefix",
			input: "/image\ta red fox",
			kind:  KindImage,
			arg:   "a red fox",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd, err := Parse(tc.input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tc.input, err)
			}
			if cmd.Kind != tc.kind {
				t.Errorf("kind = %s, expected %s", cmd.Kind, tc.kind)
			}
			if cmd.Arg != tc.arg {
				t.Errorf("arg = %q, expected %q", cmd.Arg, tc.arg)
			}
		})
	}
}

func TestParseEmptyArgument(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "bare image command", input: "/image"},
		{name: "image with trailing spaces", input: "/image   "},
		{name: "bare vision command", input: "/vision"},
		{name: "bare audio command", input: "/audio"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.input)
			if err == nil {
				t.Fatalf("Parse(%q) should fail on empty argument", tc.input)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error should be a *ValidationError, got %T", err)
			}
			if verr.Message == "" {
				t.Error("validation error should carry a user-facing message")
			}
		})
	}
}

func TestParseIsStateless(t *testing.T) {
	// Re-parsing the same edited input must give the same result each time.
	for i := 0; i < 3; i++ {
		cmd, err := Parse("/image a boat")
		if err != nil || cmd.Kind != KindImage || cmd.Arg != "a boat" {
			t.Fatalf("iteration %d: cmd=%+v err=%v", i, cmd, err)
		}
	}
}

func TestIsCommand(t *testing.T) {
	if !IsCommand("/image something") {
		t.Error("IsCommand(/image ...) should be true")
	}
	if IsCommand("plain text") {
		t.Error("IsCommand(plain) should be false")
	}
	if IsCommand("/imagery of foxes") {
		t.Error("IsCommand(/imagery ...) should be false")
	}
}
