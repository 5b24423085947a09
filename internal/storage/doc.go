// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation persistence for hyperchat.
//
// This package handles saving and loading conversations to/from disk,
// with support for search and listing.
//
// # Key Types
//
//   - ChatStore: Main storage type for conversations
//   - ChatMeta: Lightweight metadata for listing
//
// # Usage
//
// Create a store and save a conversation:
//
//	store, err := storage.NewChatStore()
//	id, err := store.Save(conversation)
//
// List and load conversations:
//
//	metas, err := store.List()
//	conv, err := store.Load(metas[0].ID)
//
// Search conversations:
//
//	results, err := store.SearchMessages("query text")
//
// # Storage Location
//
// Conversations are stored in ~/.hyperchat/chats/ as JSON files.
package storage
