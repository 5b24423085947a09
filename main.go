// hyperchat - a terminal chat client for the Hyperbolic generative API.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/rs/zerolog"

	"github.com/jeranaias/hyperchat/internal/cache"
	"github.com/jeranaias/hyperchat/internal/chat"
	"github.com/jeranaias/hyperchat/internal/command"
	"github.com/jeranaias/hyperchat/internal/config"
	"github.com/jeranaias/hyperchat/internal/hyperbolic"
	"github.com/jeranaias/hyperchat/internal/model"
	"github.com/jeranaias/hyperchat/internal/storage"
	"github.com/jeranaias/hyperchat/internal/util"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	cfg := config.Global()

	logger := setupLogging()
	hyperbolic.SetLogger(logger)

	app, err := newApp(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging configures the structured logger. Logs go to a file under the
// config directory so they never interleave with chat output.
func setupLogging() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	dir, err := config.ConfigDir()
	if err != nil {
		return zerolog.Nop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return zerolog.Nop()
	}

	f, err := os.OpenFile(filepath.Join(dir, "hyperchat.log"),
		os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return zerolog.Nop()
	}

	return zerolog.New(f).With().Timestamp().Str("version", Version).Logger().
		Level(zerolog.InfoLevel)
}

// =============================================================================
// APPLICATION
// =============================================================================

// app wires the session, storage, and REPL together.
type app struct {
	cfg     *config.Config
	client  *hyperbolic.Client
	session *chat.Session
	store   *storage.ChatStore
	watcher config.Watcher
	line    *liner.State
	logger  zerolog.Logger
}

func newApp(cfg *config.Config, logger zerolog.Logger) (*app, error) {
	client := clientFromConfig(cfg)

	store, err := storage.NewChatStoreWithDir(cfg.Chat.Dir)
	if err != nil {
		return nil, fmt.Errorf("could not initialize chat storage: %w", err)
	}

	session := chat.NewSession(client, cacheFromConfig(cfg), model.NewConversation())

	a := &app{
		cfg:     cfg,
		client:  client,
		session: session,
		store:   store,
		logger:  logger,
	}

	// Hot-reload the credential on config changes so a key edit takes effect
	// without restarting.
	watcher, err := config.StartWatcher(func(fresh *config.Config) {
		a.cfg = fresh
		client.SetAPIKey(fresh.API.Key)
		logger.Info().Msg("configuration reloaded")
	})
	if err == nil {
		a.watcher = watcher
	}

	return a, nil
}

// clientFromConfig builds a Hyperbolic client from configuration.
func clientFromConfig(cfg *config.Config) *hyperbolic.Client {
	return hyperbolic.NewClient(cfg.API.Key).
		WithBaseURL(cfg.API.BaseURL).
		WithCompletionModel(cfg.API.CompletionModel).
		WithVisionModel(cfg.API.VisionModel).
		WithMaxTokens(cfg.Generation.MaxTokens).
		WithSampling(cfg.Generation.Temperature, cfg.Generation.TopP).
		WithRetryPolicy(hyperbolic.Policy{
			MaxRetries: cfg.API.MaxRetries,
			BaseDelay:  hyperbolic.DefaultBaseDelay,
		}).
		WithImageOptions(hyperbolic.ImageOptions{
			Model:         cfg.API.ImageModel,
			Steps:         cfg.Generation.ImageSteps,
			CfgScale:      cfg.Generation.ImageCfgScale,
			EnableRefiner: cfg.Generation.ImageRefiner,
			Height:        cfg.Generation.ImageHeight,
			Width:         cfg.Generation.ImageWidth,
			Backend:       hyperbolic.DefaultImageBackend,
		}).
		WithAudioSpeed(cfg.Generation.AudioSpeed)
}

// cacheFromConfig returns the response cache, or nil when caching is
// disabled.
func cacheFromConfig(cfg *config.Config) *cache.ResponseCache {
	if !cfg.Cache.Enabled {
		return nil
	}
	return cache.New(cfg.Cache.MaxEntries)
}

// Close releases REPL and watcher resources.
func (a *app) Close() {
	if a.line != nil {
		a.saveHistory()
		a.line.Close()
	}
	if a.watcher != nil {
		a.watcher.Close()
	}
}

// =============================================================================
// REPL
// =============================================================================

// Run starts the interactive loop and blocks until the user quits.
func (a *app) Run() error {
	a.line = liner.NewLiner()
	a.line.SetCtrlCAborts(true)
	a.loadHistory()

	fmt.Printf("hyperchat %s - Hyperbolic chat client\n", Version)
	fmt.Printf("Model: %s | API key: %s\n", a.cfg.API.CompletionModel, a.client.APIKeyMasked())
	fmt.Println("Type a message, /image, /vision, /audio, or /help. Ctrl+C cancels, /quit exits.")
	fmt.Println()

	// SIGINT during a turn cancels the turn instead of killing the process.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			if a.session.Busy() {
				a.session.Stop()
			}
		}
	}()

	for {
		input, err := a.line.Prompt("> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				// Ctrl+C at an empty prompt
				continue
			}
			// io.EOF: Ctrl+D
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		a.line.AppendHistory(input)

		if input == "/quit" || input == "/exit" {
			return nil
		}
		if a.handleMetaCommand(input) {
			continue
		}

		a.runTurn(input)
	}
}

// runTurn sends one input through the session and prints the response as it
// arrives.
func (a *app) runTurn(input string) {
	printer := newStreamPrinter()
	a.session.SetOnUpdate(func() { printer.render(a.session.Conversation()) })
	defer a.session.SetOnUpdate(nil)

	res := a.session.Send(context.Background(), input)
	printer.finish(a.session.Conversation())

	switch res.Outcome {
	case chat.OutcomeCancelled:
		fmt.Println("\n[cancelled]")
	case chat.OutcomeRejected:
		fmt.Println("[a request is already in progress]")
	case chat.OutcomeFailed:
		if res.Err != nil {
			a.logger.Error().Err(res.Err).Msg("turn failed")
			fmt.Printf("Error: %s\n", errorText(res.Err))
		}
	}

	if res.Outcome != chat.OutcomeRejected && a.cfg.Chat.AutoSave {
		if _, err := a.store.Save(a.session.Conversation()); err != nil {
			a.logger.Error().Err(err).Msg("auto-save failed")
		}
	}
}

// =============================================================================
// META COMMANDS
// =============================================================================

// handleMetaCommand runs REPL-level commands. Returns false for inputs that
// belong to the conversation.
func (a *app) handleMetaCommand(input string) bool {
	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "/help":
		a.printHelp()
	case "/new":
		a.session = chat.NewSession(a.client, a.currentCache(), model.NewConversation())
		fmt.Println("Started a new chat.")
	case "/list", "/history":
		metas, err := a.store.List()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return true
		}
		fmt.Print(storage.FormatChatList(metas))
	case "/load":
		a.loadChat(arg)
	case "/save":
		id, err := a.store.Save(a.session.Conversation())
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return true
		}
		fmt.Printf("Saved chat %s.\n", id)
	case "/delete":
		if err := a.store.Delete(arg); err != nil {
			fmt.Printf("Error: %v\n", err)
			return true
		}
		fmt.Println("Deleted.")
	case "/search":
		metas, err := a.store.SearchMessages(arg)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return true
		}
		fmt.Print(storage.FormatChatList(metas))
	case "/edit":
		a.editMessage(arg)
	case "/export":
		fmt.Print(storage.ExportMarkdown(a.session.Conversation()))
	case "/key":
		a.setKey(arg)
	case "/set":
		a.setConfig(arg)
	case "/config":
		fmt.Println(a.cfg.String())
	case "/cache":
		c := a.session.Cache()
		if c == nil {
			fmt.Println("Cache: disabled")
			return true
		}
		stats := c.Stats()
		fmt.Printf("Cache: %d entries, %d hits, %d misses (%.0f%% hit rate)\n",
			stats.Entries, stats.Hits, stats.Misses, stats.HitRate*100)
	default:
		return false
	}
	return true
}

func (a *app) printHelp() {
	fmt.Println(`Commands:
  <text>             chat with the model
  /image <prompt>    generate an image
  /vision <question> analyze the most recent generated image
  /audio <text>      synthesize speech

  /new               start a new chat
  /list              list saved chats
  /load <#|id>       load a saved chat
  /save              save the current chat now
  /delete <id>       delete a saved chat
  /search <text>     search saved chats by message content
  /edit <#> <text>   edit a user message and replay from there
  /export            print the chat as Markdown
  /key <api-key>     store the API key
  /set <key> <val>   change a config value (e.g. /set generation.temperature 0.5)
  /config            show the current configuration
  /cache             show response cache statistics
  /quit              exit`)
}

// loadChat loads a conversation by list index or ID.
func (a *app) loadChat(arg string) {
	if arg == "" {
		fmt.Println("Usage: /load <#|id>")
		return
	}

	var conv *model.Conversation
	var err error
	if idx, convErr := strconv.Atoi(arg); convErr == nil {
		conv, err = a.store.LoadByIndex(idx)
	} else {
		conv, err = a.store.Load(arg)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	a.session = chat.NewSession(a.client, a.currentCache(), conv)
	fmt.Printf("Loaded %q (%d messages).\n", conv.GetTitle(), conv.Len())
	for _, msg := range conv.History() {
		printMessage(msg)
	}
}

// editMessage handles "/edit <index> <new content>".
func (a *app) editMessage(arg string) {
	idxStr, content, _ := strings.Cut(arg, " ")
	idx, err := strconv.Atoi(idxStr)
	content = strings.TrimSpace(content)
	if err != nil || content == "" {
		fmt.Println("Usage: /edit <message#> <new content>")
		return
	}

	printer := newStreamPrinter()
	a.session.SetOnUpdate(func() { printer.render(a.session.Conversation()) })
	defer a.session.SetOnUpdate(nil)

	res := a.session.Resubmit(context.Background(), idx, content)
	printer.finish(a.session.Conversation())

	if res.Outcome == chat.OutcomeFailed && res.Err != nil {
		fmt.Printf("Error: %s\n", errorText(res.Err))
	}
}

// errorText maps a turn error to the line shown to the user. Failures never
// become transcript messages; they are reported here instead.
func errorText(err error) string {
	var verr *command.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, hyperbolic.ErrNotConfigured):
		return "API key not configured. Set it with /key or the HYPERBOLIC_API_KEY environment variable."
	case errors.Is(err, chat.ErrNoImageAvailable):
		return "No image available to analyze. Generate an image first with /image."
	}
	return err.Error()
}

func (a *app) setKey(arg string) {
	if arg == "" {
		fmt.Printf("API key: %s\n", a.client.APIKeyMasked())
		return
	}
	if err := config.SaveAPIKey(arg); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	a.client.SetAPIKey(arg)
	fmt.Println("API key saved.")
}

// setConfig handles "/set <dotted.key> <value>".
func (a *app) setConfig(arg string) {
	key, value, ok := strings.Cut(arg, " ")
	value = strings.TrimSpace(value)
	if !ok || key == "" || value == "" {
		fmt.Println("Usage: /set <key> <value>")
		fmt.Println("Keys: " + strings.Join(config.GetAllKeys(), ", "))
		return
	}

	if err := a.cfg.Set(key, value); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if err := a.cfg.Validate(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if err := config.Save(a.cfg); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	config.SetGlobal(a.cfg)

	// Rebuild the client so generation settings take effect immediately.
	a.client = clientFromConfig(a.cfg)
	a.session = chat.NewSession(a.client, a.currentCache(), a.session.Conversation())
	fmt.Printf("%s = %s\n", key, value)
}

// currentCache returns a cache consistent with the enabled flag, reusing the
// session's cache when there is one.
func (a *app) currentCache() *cache.ResponseCache {
	if !a.cfg.Cache.Enabled {
		return nil
	}
	if c := a.session.Cache(); c != nil {
		return c
	}
	return cache.New(a.cfg.Cache.MaxEntries)
}

// =============================================================================
// OUTPUT
// =============================================================================

// streamPrinter incrementally prints the trailing assistant message as it
// streams, then flushes whatever remains once the turn settles.
type streamPrinter struct {
	printed int
}

func newStreamPrinter() *streamPrinter {
	return &streamPrinter{}
}

// render prints the unprinted suffix of the trailing streaming message.
// Snapshots only ever grow, so the suffix is always valid.
func (p *streamPrinter) render(conv *model.Conversation) {
	last := conv.Last()
	if last == nil || !last.IsStreaming {
		return
	}
	if len(last.Content) > p.printed {
		fmt.Print(last.Content[p.printed:])
		p.printed = len(last.Content)
	}
}

// finish flushes the final state of the trailing message.
func (p *streamPrinter) finish(conv *model.Conversation) {
	last := conv.Last()
	if last == nil || last.IsUser() {
		return
	}

	if last.Kind != model.KindText {
		printMessage(last)
		return
	}

	if len(last.Content) > p.printed {
		fmt.Print(last.Content[p.printed:])
		p.printed = len(last.Content)
	}
	if p.printed > 0 {
		fmt.Println()
	} else if last.Content != "" {
		// Cached or error reply: nothing was printed incrementally.
		fmt.Println(last.Content)
	}
}

// printMessage renders one message for the terminal. Media payloads are
// summarized, never dumped.
func printMessage(msg *model.Message) {
	prefix := "you"
	if msg.Role == model.RoleAssistant {
		prefix = "assistant"
	}

	switch msg.Kind {
	case model.KindImage:
		fmt.Printf("[%s] generated image (%s, %d bytes): %s\n",
			prefix, msg.MediaType, len(msg.MediaRef), util.TruncateRunes(msg.Content, 60))
	case model.KindAudio:
		fmt.Printf("[%s] generated audio (%s, %d bytes): %s\n",
			prefix, msg.MediaType, len(msg.MediaRef), util.TruncateRunes(msg.Content, 60))
	default:
		fmt.Printf("[%s] %s\n", prefix, msg.Content)
	}
}

// =============================================================================
// HISTORY
// =============================================================================

func (a *app) loadHistory() {
	if a.cfg.Chat.HistoryFile == "" {
		return
	}
	f, err := os.Open(a.cfg.Chat.HistoryFile)
	if err != nil {
		return
	}
	defer f.Close()
	a.line.ReadHistory(f)
}

func (a *app) saveHistory() {
	if a.cfg.Chat.HistoryFile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(a.cfg.Chat.HistoryFile), 0755); err != nil {
		return
	}
	f, err := os.OpenFile(a.cfg.Chat.HistoryFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	a.line.WriteHistory(f)
}
