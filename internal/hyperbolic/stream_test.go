// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package hyperbolic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func sseBody(deltas ...string) string {
	var b strings.Builder
	for _, d := range deltas {
		fmt.Fprintf(&b, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", d)
	}
	b.WriteString("data: [DONE]\n\n")
	return b.String()
}

func TestStreamDecoderSnapshots(t *testing.T) {
	d := NewStreamDecoder(strings.NewReader(sseBody("Hel", "lo")))

	first, err := d.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if first != "Hel" {
		t.Errorf("first snapshot = %q, want %q", first, "Hel")
	}

	second, err := d.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if second != "Hello" {
		t.Errorf("second snapshot = %q, want %q", second, "Hello")
	}

	if _, err := d.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() after [DONE] error = %v, want io.EOF", err)
	}
	if d.Text() != "Hello" {
		t.Errorf("Text() = %q, want %q", d.Text(), "Hello")
	}
}

func TestStreamDecoderSkipsMalformedLines(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"ok \"}}]}\n" +
		"data: {not json at all\n" +
		"garbage line without prefix\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"fine\"}}]}\n" +
		"data: [DONE]\n"

	d := NewStreamDecoder(strings.NewReader(body))

	var snapshots []string
	for {
		s, err := d.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		snapshots = append(snapshots, s)
	}

	if len(snapshots) != 2 {
		t.Fatalf("got %d snapshots, want 2: %v", len(snapshots), snapshots)
	}
	if d.Text() != "ok fine" {
		t.Errorf("Text() = %q, want %q", d.Text(), "ok fine")
	}
}

func TestStreamDecoderSkipsEmptyDeltas(t *testing.T) {
	d := NewStreamDecoder(strings.NewReader(sseBody("", "a", "", "b")))

	var snapshots []string
	for {
		s, err := d.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		snapshots = append(snapshots, s)
	}

	if len(snapshots) != 2 || snapshots[0] != "a" || snapshots[1] != "ab" {
		t.Errorf("snapshots = %v, want [a ab]", snapshots)
	}
}

func TestStreamDecoderMonotonic(t *testing.T) {
	d := NewStreamDecoder(strings.NewReader(sseBody("The", " quick", " brown", " fox")))

	prev := ""
	for {
		s, err := d.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if !strings.HasPrefix(s, prev) {
			t.Errorf("snapshot %q does not extend previous %q", s, prev)
		}
		if len(s) < len(prev) {
			t.Errorf("snapshot shrank: %q -> %q", prev, s)
		}
		prev = s
	}
}

func TestChatStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseBody("Hel", "lo", " world"))
	}))
	defer server.Close()

	client := NewClient("test-key").
		WithBaseURL(server.URL).
		WithProgressInterval(0)

	var snapshots []string
	result, err := client.ChatStream(context.Background(), "hi", func(s string) {
		snapshots = append(snapshots, s)
	})
	if err != nil {
		t.Fatalf("ChatStream() error = %v", err)
	}
	if result != "Hello world" {
		t.Errorf("result = %q, want %q", result, "Hello world")
	}
	if len(snapshots) == 0 {
		t.Fatal("no snapshots delivered")
	}
	if last := snapshots[len(snapshots)-1]; last != result {
		t.Errorf("final snapshot = %q, want %q", last, result)
	}
	for i := 1; i < len(snapshots); i++ {
		if !strings.HasPrefix(snapshots[i], snapshots[i-1]) {
			t.Errorf("snapshot %q does not extend %q", snapshots[i], snapshots[i-1])
		}
	}
}

func TestChatStreamNotConfigured(t *testing.T) {
	client := NewClient("")
	_, err := client.ChatStream(context.Background(), "hi", nil)
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("error = %v, want ErrNotConfigured", err)
	}
}

func TestChatStreamRetriesRateLimitedOpen(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, sseBody("ok"))
	}))
	defer server.Close()

	client := NewClient("test-key").
		WithBaseURL(server.URL).
		WithProgressInterval(0).
		WithRetryPolicy(Policy{MaxRetries: 3, BaseDelay: time.Millisecond})

	result, err := client.ChatStream(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("ChatStream() error = %v", err)
	}
	if result != "ok" {
		t.Errorf("result = %q, want %q", result, "ok")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestChatStreamCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
		w.(http.Flusher).Flush()
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewClient("test-key").
		WithBaseURL(server.URL).
		WithProgressInterval(0)

	ctx, cancel := context.WithCancel(context.Background())
	var got string
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := client.ChatStream(ctx, "hi", func(s string) {
			got = s
			cancel()
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ChatStream did not return after cancellation")
	}
	if got != "partial" {
		t.Errorf("last snapshot = %q, want %q", got, "partial")
	}
}

func TestChatStreamSendsLatestTurnOnly(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		io.WriteString(w, sseBody("ok"))
	}))
	defer server.Close()

	client := NewClient("test-key").
		WithBaseURL(server.URL).
		WithProgressInterval(0)

	if _, err := client.ChatStream(context.Background(), "current question", nil); err != nil {
		t.Fatalf("ChatStream() error = %v", err)
	}

	body := string(gotBody)
	if !strings.Contains(body, "current question") {
		t.Error("request body missing the user prompt")
	}
	if !strings.Contains(body, "Think-Plan-Execute") {
		t.Error("request body missing the system prompt")
	}
	if n := strings.Count(body, `"role":"user"`); n != 1 {
		t.Errorf("user messages in request = %d, want 1", n)
	}
}

func TestChatStreamThrottlesIntermediateSnapshots(t *testing.T) {
	const chunks = 20
	deltas := make([]string, chunks)
	for i := range deltas {
		deltas[i] = "x"
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sseBody(deltas...))
	}))
	defer server.Close()

	// A long interval with a burst of back-to-back chunks: only the first
	// intermediate snapshot clears the limiter, the rest coalesce.
	client := NewClient("test-key").
		WithBaseURL(server.URL).
		WithProgressInterval(time.Second)

	var snapshots []string
	result, err := client.ChatStream(context.Background(), "hi", func(s string) {
		snapshots = append(snapshots, s)
	})
	if err != nil {
		t.Fatalf("ChatStream() error = %v", err)
	}

	if len(snapshots) < 2 {
		t.Fatalf("got %d snapshots, want at least the first and the final", len(snapshots))
	}
	if len(snapshots) >= chunks {
		t.Errorf("got %d snapshots for %d chunks, throttle delivered every one", len(snapshots), chunks)
	}
	if last := snapshots[len(snapshots)-1]; last != result {
		t.Errorf("final snapshot = %q, want the full result %q", last, result)
	}
	for i := 1; i < len(snapshots); i++ {
		if !strings.HasPrefix(snapshots[i], snapshots[i-1]) {
			t.Errorf("snapshot %q does not extend %q", snapshots[i], snapshots[i-1])
		}
	}
}

func TestChatStreamAppliesGenerationOverrides(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		io.WriteString(w, sseBody("ok"))
	}))
	defer server.Close()

	client := NewClient("test-key").
		WithBaseURL(server.URL).
		WithProgressInterval(0).
		WithCompletionModel("custom/model").
		WithMaxTokens(4096).
		WithSampling(0.2, 0.5)

	if _, err := client.ChatStream(context.Background(), "hi", nil); err != nil {
		t.Fatalf("ChatStream() error = %v", err)
	}

	body := string(gotBody)
	for _, want := range []string{`"custom/model"`, `"max_tokens":4096`, `"temperature":0.2`, `"top_p":0.5`} {
		if !strings.Contains(body, want) {
			t.Errorf("request body missing %s: %s", want, body)
		}
	}
}
