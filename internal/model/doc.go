// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the conversation data model for hyperchat.
//
// # Key Types
//
//   - Message: a single chat message, text or generated media
//   - Conversation: an ordered, append-only message history
//   - Role: user or assistant
//   - Kind: text, image, or audio
//
// Messages are immutable once finalized except for the trailing streaming
// assistant message, which is updated in place with cumulative snapshots
// while a completion is in flight.
package model
