// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/hyperchat/internal/model"
)

// =============================================================================
// CHAT STORE TESTS
// =============================================================================

func newTestConversation(userContent, reply string) *model.Conversation {
	conv := model.NewConversation()
	conv.AppendUserMessage(userContent)
	conv.Append(model.NewMessage(model.RoleAssistant, reply))
	return conv
}

func TestNewChatStoreWithDir(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewChatStoreWithDir(tempDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if store.BaseDir != tempDir {
		t.Errorf("BaseDir = %q, want %q", store.BaseDir, tempDir)
	}
	if store.MaxChats != 100 {
		t.Errorf("MaxChats = %d, want 100", store.MaxChats)
	}
}

func TestChatStore_SaveAndLoad(t *testing.T) {
	store, err := NewChatStoreWithDir(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	conv := newTestConversation("Hello", "Hi there!")

	id, err := store.Save(conv)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if id == "" {
		t.Error("Expected non-empty ID")
	}

	loaded, err := store.Load(id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.ID != id {
		t.Errorf("Loaded ID = %q, want %q", loaded.ID, id)
	}
	if loaded.Len() != 2 {
		t.Errorf("Loaded message count = %d, want 2", loaded.Len())
	}
	if loaded.Messages[0].Content != "Hello" {
		t.Errorf("first message = %q", loaded.Messages[0].Content)
	}
	if loaded.Messages[1].Role != model.RoleAssistant {
		t.Errorf("second message role = %q", loaded.Messages[1].Role)
	}
}

func TestChatStore_MediaMessageRoundTrip(t *testing.T) {
	store, _ := NewChatStoreWithDir(t.TempDir())

	conv := model.NewConversation()
	conv.AppendUserMessage("/image a fox")
	conv.Append(model.NewMediaMessage(model.KindImage, "a fox", "data:image/png;base64,aW1n", model.MediaTypePNG))

	id, err := store.Save(conv)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	img := loaded.Messages[1]
	if img.Kind != model.KindImage {
		t.Errorf("kind = %q, want image", img.Kind)
	}
	if img.MediaRef != "data:image/png;base64,aW1n" {
		t.Errorf("media ref = %q", img.MediaRef)
	}
	if loaded.LatestImageRef() == "" {
		t.Error("LatestImageRef should survive a round trip")
	}
}

func TestChatStore_LoadNotFound(t *testing.T) {
	store, _ := NewChatStoreWithDir(t.TempDir())

	_, err := store.Load("nonexistent")
	if !errors.Is(err, ErrChatNotFound) {
		t.Errorf("error = %v, want ErrChatNotFound", err)
	}
}

func TestChatStore_List(t *testing.T) {
	store, _ := NewChatStoreWithDir(t.TempDir())

	first := newTestConversation("first question", "a")
	if _, err := store.Save(first); err != nil {
		t.Fatal(err)
	}
	// Save order determines recency: Save stamps UpdatedAt.
	if _, err := store.Save(newTestConversation("second question", "b")); err != nil {
		t.Fatal(err)
	}

	metas, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("got %d chats, want 2", len(metas))
	}
	if !strings.Contains(metas[0].Preview, "second") {
		t.Errorf("most recent first: preview = %q", metas[0].Preview)
	}
	if metas[0].MessageCount != 2 {
		t.Errorf("message count = %d, want 2", metas[0].MessageCount)
	}
}

func TestChatStore_ListSkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewChatStoreWithDir(dir)

	if _, err := store.Save(newTestConversation("good", "a")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	metas, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 1 {
		t.Errorf("got %d chats, want 1 (corrupt file skipped)", len(metas))
	}
}

func TestChatStore_SearchMessages(t *testing.T) {
	store, _ := NewChatStoreWithDir(t.TempDir())

	if _, err := store.Save(newTestConversation("tell me about foxes", "Foxes are canids.")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Save(newTestConversation("what is go", "A language.")); err != nil {
		t.Fatal(err)
	}

	results, err := store.SearchMessages("CANIDS")
	if err != nil {
		t.Fatalf("SearchMessages failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if !strings.Contains(results[0].Preview, "foxes") {
		t.Errorf("preview = %q", results[0].Preview)
	}

	all, err := store.SearchMessages("")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("empty query should list all, got %d", len(all))
	}
}

func TestChatStore_Delete(t *testing.T) {
	store, _ := NewChatStoreWithDir(t.TempDir())

	id, err := store.Save(newTestConversation("q", "a"))
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load(id); !errors.Is(err, ErrChatNotFound) {
		t.Errorf("Load after delete = %v, want ErrChatNotFound", err)
	}
	if err := store.Delete(id); !errors.Is(err, ErrChatNotFound) {
		t.Errorf("double delete = %v, want ErrChatNotFound", err)
	}
}

func TestChatStore_EnforceLimit(t *testing.T) {
	store, _ := NewChatStoreWithDir(t.TempDir())
	store.MaxChats = 3

	for i := 0; i < 5; i++ {
		if _, err := store.Save(newTestConversation("question", "answer")); err != nil {
			t.Fatal(err)
		}
	}

	metas, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) > 3 {
		t.Errorf("got %d chats, want at most 3", len(metas))
	}
}

func TestExportMarkdown(t *testing.T) {
	conv := model.NewConversation()
	conv.AppendUserMessage("draw me a fox")
	conv.Append(model.NewMediaMessage(model.KindImage, "a fox", "data:image/png;base64,aW1n", model.MediaTypePNG))
	conv.Append(model.NewMessage(model.RoleAssistant, "Here you go."))

	md := ExportMarkdown(conv)
	if !strings.Contains(md, "**User**") || !strings.Contains(md, "**Assistant**") {
		t.Error("missing role labels")
	}
	if !strings.Contains(md, "generated image") {
		t.Error("image message should be referenced by kind")
	}
	if strings.Contains(md, "base64,aW1n") {
		t.Error("base64 payload must not be inlined")
	}
	if !strings.Contains(md, "Here you go.") {
		t.Error("text content missing")
	}
}

func TestFormatChatList(t *testing.T) {
	if got := FormatChatList(nil); got != "No saved chats." {
		t.Errorf("empty list = %q", got)
	}

	metas := []ChatMeta{{
		ID:           "abc",
		Title:        "draw me a fox",
		UpdatedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		MessageCount: 4,
	}}
	out := FormatChatList(metas)
	if !strings.Contains(out, "draw me a fox") || !strings.Contains(out, "2025-06-01") {
		t.Errorf("FormatChatList output = %q", out)
	}
}
