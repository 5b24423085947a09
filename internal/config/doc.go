// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for hyperchat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - APIConfig: Hyperbolic endpoint and credential settings
//   - GenerationConfig: Per-capability generation parameters
//   - CacheConfig: Response cache behavior
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (HYPERBOLIC_API_KEY, HYPERCHAT_*)
//   - ~/.hyperchat/api_key (key only)
//   - ~/.hyperchat/config.toml
//   - ~/.hyperchat/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	model := cfg.API.CompletionModel
//	temp := cfg.Generation.Temperature
package config
