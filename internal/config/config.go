// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for
// hyperchat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.hyperchat/config.toml
//   - ~/.hyperchat/config.json
//   - Built-in defaults
//
// The API key additionally honors an override file (~/.hyperchat/api_key)
// and the HYPERBOLIC_API_KEY environment variable, which wins over both.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/hyperchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete hyperchat configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// API holds Hyperbolic endpoint and credential settings.
	API APIConfig `toml:"api" json:"api"`

	// Generation holds per-capability generation parameters.
	Generation GenerationConfig `toml:"generation" json:"generation"`

	// Cache configures the in-memory response cache.
	Cache CacheConfig `toml:"cache" json:"cache"`

	// Chat configures conversation persistence.
	Chat ChatConfig `toml:"chat" json:"chat"`
}

// APIConfig contains Hyperbolic API settings.
type APIConfig struct {
	// Key is the Hyperbolic API key. Prefer the api_key file or the
	// HYPERBOLIC_API_KEY environment variable over storing it here.
	Key string `toml:"key" json:"key"`
	// BaseURL is the API base URL.
	BaseURL string `toml:"base_url" json:"base_url"`
	// CompletionModel is the model for streaming chat completions.
	CompletionModel string `toml:"completion_model" json:"completion_model"`
	// VisionModel is the model for image analysis.
	VisionModel string `toml:"vision_model" json:"vision_model"`
	// ImageModel is the model for image generation.
	ImageModel string `toml:"image_model" json:"image_model"`
	// MaxRetries is the retry budget for rate-limited requests.
	MaxRetries int `toml:"max_retries" json:"max_retries"`
}

// GenerationConfig contains generation parameters.
type GenerationConfig struct {
	// MaxTokens is the completion token budget.
	MaxTokens int `toml:"max_tokens" json:"max_tokens"`
	// Temperature controls sampling randomness (0.0-2.0).
	Temperature float64 `toml:"temperature" json:"temperature"`
	// TopP controls nucleus sampling (0.0-1.0).
	TopP float64 `toml:"top_p" json:"top_p"`

	// ImageSteps is the diffusion step count for image generation.
	ImageSteps int `toml:"image_steps" json:"image_steps"`
	// ImageCfgScale is the classifier-free guidance scale.
	ImageCfgScale float64 `toml:"image_cfg_scale" json:"image_cfg_scale"`
	// ImageWidth and ImageHeight are the generated image dimensions.
	ImageWidth  int `toml:"image_width" json:"image_width"`
	ImageHeight int `toml:"image_height" json:"image_height"`
	// ImageRefiner enables the refiner pass for image generation.
	ImageRefiner bool `toml:"image_refiner" json:"image_refiner"`

	// AudioSpeed is the speech rate factor; 1.0 is normal speed.
	AudioSpeed float64 `toml:"audio_speed" json:"audio_speed"`
}

// CacheConfig contains response cache configuration.
type CacheConfig struct {
	// Enabled controls whether completion caching is active.
	Enabled bool `toml:"enabled" json:"enabled"`
	// MaxEntries is the cache capacity; the oldest entry is evicted first.
	MaxEntries int `toml:"max_entries" json:"max_entries"`
}

// ChatConfig contains conversation persistence configuration.
type ChatConfig struct {
	// Dir is where conversations are stored (empty = ~/.hyperchat/chats).
	Dir string `toml:"dir" json:"dir"`
	// AutoSave persists the conversation after every settled turn.
	AutoSave bool `toml:"auto_save" json:"auto_save"`
	// HistoryFile is the REPL input history path (empty = ~/.hyperchat/history).
	HistoryFile string `toml:"history_file" json:"history_file"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		API: APIConfig{
			BaseURL:         "https://api.hyperbolic.xyz/v1",
			CompletionModel: "deepseek-ai/DeepSeek-V3",
			VisionModel:     "Qwen/Qwen2-VL-72B-Instruct",
			ImageModel:      "FLUX.1-dev",
			MaxRetries:      3,
		},

		Generation: GenerationConfig{
			MaxTokens:     131072,
			Temperature:   0.7,
			TopP:          0.9,
			ImageSteps:    30,
			ImageCfgScale: 5,
			ImageWidth:    1024,
			ImageHeight:   1024,
			AudioSpeed:    1,
		},

		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: 100,
		},

		Chat: ChatConfig{
			AutoSave: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the hyperchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".hyperchat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// APIKeyPath returns the path to the standalone API key override file.
func APIKeyPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "api_key"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only) to protect API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// The API key file and environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	cfg, err = finishLoad(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// finishLoad applies the key file, env overrides, defaults, and validation.
func finishLoad(cfg *Config) (*Config, error) {
	cfg.applyKeyFile()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
// SECURITY: Checks and fixes file permissions on load.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. JSON is selected by extension; everything else parses as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finishLoad(cfg)
}

// applyKeyFile loads the API key from the standalone override file, if
// present. A key in the file wins over one in the config file.
func (c *Config) applyKeyFile() {
	path, err := APIKeyPath()
	if err != nil {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	if key := strings.TrimSpace(string(data)); key != "" {
		c.API.Key = key
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// SECURITY: Ensure permissions are correct even if file already existed
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# hyperchat configuration file")
	fmt.Fprintln(file, "# Generated by hyperchat - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveAPIKey writes the API key to the standalone override file.
// SECURITY: 0600 permissions; the key never passes through the TOML encoder.
func SaveAPIKey(key string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	path, err := APIKeyPath()
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(path, []byte(strings.TrimSpace(key)+"\n"), 0600)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "api.base_url",
				Message: fmt.Sprintf("invalid URL '%s'", c.API.BaseURL),
			})
		}
	}

	if c.API.MaxRetries < 0 || c.API.MaxRetries > 10 {
		errs = append(errs, ValidationError{
			Field:   "api.max_retries",
			Message: fmt.Sprintf("max_retries must be 0-10, got %d", c.API.MaxRetries),
		})
	}

	if c.Generation.MaxTokens < 0 {
		errs = append(errs, ValidationError{
			Field:   "generation.max_tokens",
			Message: "must be non-negative",
		})
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "generation.temperature",
			Message: fmt.Sprintf("temperature must be 0.0-2.0, got %g", c.Generation.Temperature),
		})
	}
	if c.Generation.TopP < 0 || c.Generation.TopP > 1 {
		errs = append(errs, ValidationError{
			Field:   "generation.top_p",
			Message: fmt.Sprintf("top_p must be 0.0-1.0, got %g", c.Generation.TopP),
		})
	}
	if c.Generation.ImageSteps < 0 || c.Generation.ImageSteps > 200 {
		errs = append(errs, ValidationError{
			Field:   "generation.image_steps",
			Message: fmt.Sprintf("image_steps must be 0-200, got %d", c.Generation.ImageSteps),
		})
	}
	if c.Generation.AudioSpeed < 0 || c.Generation.AudioSpeed > 4 {
		errs = append(errs, ValidationError{
			Field:   "generation.audio_speed",
			Message: fmt.Sprintf("audio_speed must be 0.0-4.0, got %g", c.Generation.AudioSpeed),
		})
	}

	if c.Cache.MaxEntries < 0 || c.Cache.MaxEntries > 100000 {
		errs = append(errs, ValidationError{
			Field:   "cache.max_entries",
			Message: fmt.Sprintf("max_entries must be 0-100000, got %d", c.Cache.MaxEntries),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	if c.API.BaseURL == "" {
		c.API.BaseURL = defaults.API.BaseURL
	}
	if c.API.CompletionModel == "" {
		c.API.CompletionModel = defaults.API.CompletionModel
	}
	if c.API.VisionModel == "" {
		c.API.VisionModel = defaults.API.VisionModel
	}
	if c.API.ImageModel == "" {
		c.API.ImageModel = defaults.API.ImageModel
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = defaults.API.MaxRetries
	}

	if c.Generation.MaxTokens == 0 {
		c.Generation.MaxTokens = defaults.Generation.MaxTokens
	}
	if c.Generation.Temperature == 0 {
		c.Generation.Temperature = defaults.Generation.Temperature
	}
	if c.Generation.TopP == 0 {
		c.Generation.TopP = defaults.Generation.TopP
	}
	if c.Generation.ImageSteps == 0 {
		c.Generation.ImageSteps = defaults.Generation.ImageSteps
	}
	if c.Generation.ImageCfgScale == 0 {
		c.Generation.ImageCfgScale = defaults.Generation.ImageCfgScale
	}
	if c.Generation.ImageWidth == 0 {
		c.Generation.ImageWidth = defaults.Generation.ImageWidth
	}
	if c.Generation.ImageHeight == 0 {
		c.Generation.ImageHeight = defaults.Generation.ImageHeight
	}
	if c.Generation.AudioSpeed == 0 {
		c.Generation.AudioSpeed = defaults.Generation.AudioSpeed
	}

	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = defaults.Cache.MaxEntries
	}

	if c.Chat.Dir == "" {
		if dir, err := ConfigDir(); err == nil {
			c.Chat.Dir = filepath.Join(dir, "chats")
		}
	}
	if c.Chat.HistoryFile == "" {
		if dir, err := ConfigDir(); err == nil {
			c.Chat.HistoryFile = filepath.Join(dir, "history")
		}
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - HYPERBOLIC_API_KEY: overrides api.key
//   - HYPERCHAT_BASE_URL: overrides api.base_url
//   - HYPERCHAT_MODEL: overrides api.completion_model
//   - HYPERCHAT_CHAT_DIR: overrides chat.dir
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("HYPERBOLIC_API_KEY"); key != "" {
		c.API.Key = key
	}
	if base := os.Getenv("HYPERCHAT_BASE_URL"); base != "" {
		c.API.BaseURL = base
	}
	if model := os.Getenv("HYPERCHAT_MODEL"); model != "" {
		c.API.CompletionModel = model
	}
	if dir := os.Getenv("HYPERCHAT_CHAT_DIR"); dir != "" {
		c.Chat.Dir = dir
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "api.base_url").
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return nil, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			return field.Interface(), nil
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return nil, fmt.Errorf("invalid key: %s", key)
}

// Set sets a configuration value using dot notation (e.g., "generation.temperature").
func (c *Config) Set(key string, value interface{}) error {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			if !field.CanSet() {
				return fmt.Errorf("cannot set field: %s", key)
			}
			return setFieldValue(field, value)
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal := strVal == "1" || strings.ToLower(strVal) == "true" || strings.ToLower(strVal) == "yes"
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"api.key",
		"api.base_url",
		"api.completion_model",
		"api.vision_model",
		"api.image_model",
		"api.max_retries",
		"generation.max_tokens",
		"generation.temperature",
		"generation.top_p",
		"generation.image_steps",
		"generation.image_cfg_scale",
		"generation.image_width",
		"generation.image_height",
		"generation.image_refiner",
		"generation.audio_speed",
		"cache.enabled",
		"cache.max_entries",
		"chat.dir",
		"chat.auto_save",
		"chat.history_file",
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for debugging.
// SECURITY: Redacts the API key to prevent accidental exposure in logs,
// error messages, or debug output.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.API.Key != "" {
		safe.API.Key = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
			cfg.SetDefaults()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
