// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat orchestrates a conversation against a generative backend.
//
// A Session owns one Conversation and mediates every turn: it routes the
// input to the right capability, enforces preconditions, consults the
// response cache, and keeps the message list consistent through streaming,
// cancellation, and failure. At most one turn is in flight at a time;
// concurrent sends are rejected rather than queued.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jeranaias/hyperchat/internal/cache"
	"github.com/jeranaias/hyperchat/internal/command"
	"github.com/jeranaias/hyperchat/internal/hyperbolic"
	"github.com/jeranaias/hyperchat/internal/model"
)

// Backend is the capability surface a Session drives. *hyperbolic.Client
// satisfies it; tests substitute fakes.
type Backend interface {
	IsConfigured() bool
	ChatStream(ctx context.Context, prompt string, onSnapshot func(string)) (string, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
	GenerateAudio(ctx context.Context, text string) (string, error)
	AnalyzeImage(ctx context.Context, imageURL, question string) (string, error)
}

// Session errors.
var (
	// ErrBusy indicates a send was attempted while a turn is in flight.
	ErrBusy = errors.New("a request is already in progress")

	// ErrNoImageAvailable indicates a vision request with no prior image in
	// the conversation.
	ErrNoImageAvailable = errors.New("no image available to analyze")
)

// State describes what the session is currently doing.
type State int

const (
	// StateIdle means no turn is in flight.
	StateIdle State = iota
	// StateSending means a turn has been accepted but no response activity
	// has started yet.
	StateSending
	// StateStreaming means completion text is arriving incrementally.
	StateStreaming
	// StateAwaiting means a single-shot capability call is pending.
	StateAwaiting
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateAwaiting:
		return "awaiting"
	default:
		return "unknown"
	}
}

// Outcome classifies how a turn settled.
type Outcome int

const (
	// OutcomeSuccess means the turn produced a response.
	OutcomeSuccess Outcome = iota
	// OutcomeCancelled means the user cancelled the turn. Partial streamed
	// content, if any, is kept.
	OutcomeCancelled
	// OutcomeFailed means the turn failed with an error.
	OutcomeFailed
	// OutcomeRejected means the turn never started (another was in flight).
	OutcomeRejected
)

// String returns a human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Result is the settled outcome of one turn.
type Result struct {
	Outcome   Outcome
	Err       error
	FromCache bool
}

// Session orchestrates turns of a single conversation.
type Session struct {
	backend Backend
	cache   *cache.ResponseCache
	conv    *model.Conversation

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc

	onUpdate func()
}

// NewSession creates a session over the given backend and conversation. A nil
// cache disables completion caching; a nil conversation gets a fresh one.
func NewSession(backend Backend, c *cache.ResponseCache, conv *model.Conversation) *Session {
	if conv == nil {
		conv = model.NewConversation()
	}
	return &Session{
		backend: backend,
		cache:   c,
		conv:    conv,
	}
}

// SetOnUpdate registers a callback invoked whenever the conversation changes,
// including on every streaming snapshot. The callback runs on the sending
// goroutine; it must not call back into the session.
func (s *Session) SetOnUpdate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpdate = fn
}

// Conversation returns the session's conversation.
func (s *Session) Conversation() *model.Conversation {
	return s.conv
}

// Cache returns the session's response cache, or nil when caching is
// disabled.
func (s *Session) Cache() *cache.ResponseCache {
	return s.cache
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Busy reports whether a turn is in flight.
func (s *Session) Busy() bool {
	return s.State() != StateIdle
}

// Stop cancels the in-flight turn, if any. For a streaming completion the
// partial content received so far is kept.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Send processes one user input: routes it, appends the user message, and
// runs the matching capability to completion. It blocks until the turn
// settles. A send while another turn is in flight is rejected without side
// effects.
func (s *Session) Send(ctx context.Context, input string) Result {
	return s.run(ctx, input, true)
}

// Resubmit replaces the content of the user message at index, discards that
// message's successors, and replays the turn. No new user message is
// appended. index must address a user message.
func (s *Session) Resubmit(ctx context.Context, index int, newContent string) Result {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return Result{Outcome: OutcomeRejected, Err: ErrBusy}
	}
	msg := s.conv.At(index)
	if msg == nil || !msg.IsUser() {
		s.mu.Unlock()
		return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("message %d is not an editable user message", index)}
	}
	msg.Content = newContent
	s.conv.TruncateAfter(index)
	s.mu.Unlock()

	s.notify()
	return s.run(ctx, newContent, false)
}

// run executes one turn. appendUser controls whether the input becomes a new
// user message; resubmission reuses the edited one already in place.
func (s *Session) run(ctx context.Context, input string, appendUser bool) Result {
	ctx, ok := s.begin(ctx)
	if !ok {
		return Result{Outcome: OutcomeRejected, Err: ErrBusy}
	}
	defer s.finish()

	cmd, err := command.Parse(input)
	if err != nil {
		// Validation failures never touch the network or the transcript; the
		// caller reports them.
		return Result{Outcome: OutcomeFailed, Err: err}
	}

	if appendUser {
		s.appendMessage(model.NewUserMessage(input))
	}

	if !s.backend.IsConfigured() {
		return Result{Outcome: OutcomeFailed, Err: hyperbolic.ErrNotConfigured}
	}

	switch cmd.Kind {
	case command.KindImage:
		return s.runImage(ctx, cmd.Arg)
	case command.KindAudio:
		return s.runAudio(ctx, cmd.Arg)
	case command.KindVision:
		return s.runVision(ctx, cmd.Arg)
	default:
		return s.runCompletion(ctx, cmd.Arg)
	}
}

// runCompletion handles a plain chat turn: cache first, then a streaming
// request with a placeholder assistant message mutated in place.
func (s *Session) runCompletion(ctx context.Context, prompt string) Result {
	if s.cache != nil {
		if cached, ok := s.cache.Get(prompt); ok {
			s.appendMessage(model.NewMessage(model.RoleAssistant, cached))
			return Result{Outcome: OutcomeSuccess, FromCache: true}
		}
	}

	placeholder := model.NewStreamingMessage()
	s.appendMessage(placeholder)
	s.setState(StateStreaming)

	final, err := s.backend.ChatStream(ctx, prompt, func(snapshot string) {
		placeholder.SetSnapshot(snapshot)
		s.notify()
	})

	switch {
	case err == nil:
		placeholder.Finalize(final)
		if s.cache != nil {
			s.cache.Put(prompt, final)
		}
		s.notify()
		return Result{Outcome: OutcomeSuccess}

	case errors.Is(err, context.Canceled):
		// Keep whatever streamed before the cancel.
		placeholder.Finalize(placeholder.Content)
		s.notify()
		return Result{Outcome: OutcomeCancelled}

	default:
		// A failed stream leaves no trace beyond the user message; the error
		// travels out through the Result.
		s.removeMessage(placeholder)
		return Result{Outcome: OutcomeFailed, Err: err}
	}
}

func (s *Session) runImage(ctx context.Context, prompt string) Result {
	s.setState(StateAwaiting)

	dataURL, err := s.backend.GenerateImage(ctx, prompt)
	if err != nil {
		return s.settleSingleShot(err)
	}
	s.appendMessage(model.NewMediaMessage(model.KindImage, prompt, dataURL, model.MediaTypePNG))
	return Result{Outcome: OutcomeSuccess}
}

func (s *Session) runAudio(ctx context.Context, text string) Result {
	s.setState(StateAwaiting)

	dataURL, err := s.backend.GenerateAudio(ctx, text)
	if err != nil {
		return s.settleSingleShot(err)
	}
	s.appendMessage(model.NewMediaMessage(model.KindAudio, text, dataURL, model.MediaTypeMP3))
	return Result{Outcome: OutcomeSuccess}
}

func (s *Session) runVision(ctx context.Context, question string) Result {
	imageRef := s.conv.LatestImageRef()
	if imageRef == "" {
		return Result{Outcome: OutcomeFailed, Err: ErrNoImageAvailable}
	}

	s.setState(StateAwaiting)

	analysis, err := s.backend.AnalyzeImage(ctx, imageRef, question)
	if err != nil {
		return s.settleSingleShot(err)
	}
	s.appendMessage(model.NewMessage(model.RoleAssistant, analysis))
	return Result{Outcome: OutcomeSuccess}
}

// settleSingleShot maps a single-shot capability error to a result. Neither
// cancellation nor failure leaves a transcript trace.
func (s *Session) settleSingleShot(err error) Result {
	if errors.Is(err, context.Canceled) {
		return Result{Outcome: OutcomeCancelled}
	}
	return Result{Outcome: OutcomeFailed, Err: err}
}

// begin claims the single in-flight slot and derives a cancellable context.
func (s *Session) begin(ctx context.Context) (context.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return nil, false
	}
	ctx, cancel := context.WithCancel(ctx)
	s.state = StateSending
	s.cancel = cancel
	return ctx, true
}

// finish releases the in-flight slot.
func (s *Session) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = StateIdle
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) appendMessage(m *model.Message) {
	s.conv.Append(m)
	s.notify()
}

func (s *Session) removeMessage(m *model.Message) {
	if last := s.conv.Last(); last != nil && last.ID == m.ID {
		s.conv.RemoveLast()
	}
	s.notify()
}

func (s *Session) notify() {
	s.mu.Lock()
	fn := s.onUpdate
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
