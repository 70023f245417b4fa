// Copyright 2024 Saudi Government Services Navigator Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	// ErrMissingRequiredField is returned when a required configuration field is missing
	ErrMissingRequiredField = errors.New("missing required configuration field")
	// ErrInvalidConfigValue is returned when a configuration value is invalid
	ErrInvalidConfigValue = errors.New("invalid configuration value")
)

// Config represents the complete application configuration
type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Language LanguageConfig `mapstructure:"language"`
	History  HistoryConfig  `mapstructure:"history"`
	Session  SessionConfig  `mapstructure:"session"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// EngineConfig contains generation engine settings
type EngineConfig struct {
	Model          string `mapstructure:"model"`
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// CatalogConfig contains the service catalog source settings
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// LanguageConfig contains language detection settings
type LanguageConfig struct {
	// ArabicThreshold is the fraction of Arabic letters among all letters
	// above which a query is classified as Arabic.
	ArabicThreshold float64 `mapstructure:"arabic_threshold"`
}

// HistoryConfig contains query history storage settings
type HistoryConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// SessionConfig contains chat session settings
type SessionConfig struct {
	DefaultTTLMinutes      int `mapstructure:"default_ttl_minutes"`
	MaxSessions            int `mapstructure:"max_sessions"`
	CleanupIntervalMinutes int `mapstructure:"cleanup_interval_minutes"`
}

// ServerConfig contains web UI server settings
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed for field '%s': %s", e.Field, e.Message)
}

// LoadOptions contains options for configuration loading
type LoadOptions struct {
	ConfigPath       string
	ValidateRequired bool
}

// Load loads configuration from file and environment variables.
// Environment variables take precedence over config file values.
func Load(configPath string) (*Config, error) {
	return LoadWithOptions(LoadOptions{
		ConfigPath:       configPath,
		ValidateRequired: true,
	})
}

// LoadWithOptions loads configuration with additional options
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if err := setConfigFile(v, opts.ConfigPath); err != nil {
		return nil, fmt.Errorf("failed to set config file: %w", err)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("NAVIGATOR")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error; defaults and env vars
		// are a complete configuration on their own.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	setEnvironmentMappings(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if opts.ValidateRequired {
		if err := validateConfig(&config); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Engine defaults match the reference deployment: a local Ollama
	// server exposing the OpenAI-compatible API.
	v.SetDefault("engine.model", "qwen2.5:14b")
	v.SetDefault("engine.base_url", "http://localhost:11434/v1")
	v.SetDefault("engine.api_key", "ollama")
	v.SetDefault("engine.timeout_seconds", 60)

	// Catalog defaults
	v.SetDefault("catalog.path", "./data/services.json")

	// Language defaults
	v.SetDefault("language.arabic_threshold", 0.5)

	// History defaults
	v.SetDefault("history.db_path", "./history.db")

	// Session defaults
	v.SetDefault("session.default_ttl_minutes", 30)
	v.SetDefault("session.max_sessions", 1000)
	v.SetDefault("session.cleanup_interval_minutes", 5)

	// Server defaults
	v.SetDefault("server.port", "8080")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// setConfigFile sets the configuration file path with fallback logic
func setConfigFile(v *viper.Viper, configPath string) error {
	// Check for CONFIG_PATH environment variable
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return fmt.Errorf("config file specified by CONFIG_PATH does not exist: %s", envPath)
		}
		v.SetConfigFile(envPath)
		return nil
	}

	// Use provided config path
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return fmt.Errorf("config file does not exist: %s", configPath)
		}
		v.SetConfigFile(configPath)
		return nil
	}

	// Default fallback locations
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	return nil
}

// setEnvironmentMappings sets explicit environment variable mappings
func setEnvironmentMappings(v *viper.Viper) {
	envMappings := map[string]string{
		"ENGINE_MODEL":    "engine.model",
		"ENGINE_BASE_URL": "engine.base_url",
		"ENGINE_API_KEY":  "engine.api_key",
		"CATALOG_PATH":    "catalog.path",
		"HISTORY_DB_PATH": "history.db_path",
		"LOG_LEVEL":       "logging.level",
		"LOG_FORMAT":      "logging.format",
	}

	for envVar, configKey := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			v.Set(configKey, value)
		}
	}
}

// validateConfig validates the configuration for required fields and valid values
func validateConfig(config *Config) error {
	var errors []ValidationError

	if config.Engine.Model == "" {
		errors = append(errors, ValidationError{
			Field:   "engine.model",
			Message: "engine model is required. Set via config file or ENGINE_MODEL environment variable",
		})
	}

	if config.Engine.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "engine.base_url",
			Message: "engine base URL is required. Set via config file or ENGINE_BASE_URL environment variable",
		})
	}

	if config.Engine.TimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "engine.timeout_seconds",
			Message: "timeout_seconds must be greater than 0",
		})
	}

	if config.Catalog.Path == "" {
		errors = append(errors, ValidationError{
			Field:   "catalog.path",
			Message: "catalog path is required",
		})
	}

	if config.Language.ArabicThreshold <= 0 || config.Language.ArabicThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "language.arabic_threshold",
			Message: "arabic_threshold must be between 0 (exclusive) and 1 (inclusive)",
		})
	}

	if config.History.DBPath == "" {
		errors = append(errors, ValidationError{
			Field:   "history.db_path",
			Message: "history database path is required",
		})
	}

	if config.Session.MaxSessions <= 0 {
		errors = append(errors, ValidationError{
			Field:   "session.max_sessions",
			Message: "max_sessions must be greater than 0",
		})
	}

	if config.Session.DefaultTTLMinutes <= 0 {
		errors = append(errors, ValidationError{
			Field:   "session.default_ttl_minutes",
			Message: "default_ttl_minutes must be greater than 0",
		})
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, config.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("log level must be one of: %s", strings.Join(validLogLevels, ", ")),
		})
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, config.Logging.Format) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("log format must be one of: %s", strings.Join(validLogFormats, ", ")),
		})
	}

	if len(errors) > 0 {
		var errorMessages []string
		for _, err := range errors {
			errorMessages = append(errorMessages, err.Error())
		}
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errorMessages, "\n"))
	}

	return nil
}

// MaskSensitiveValues returns a copy of the config with sensitive values masked
func (c *Config) MaskSensitiveValues() *Config {
	masked := *c

	if masked.Engine.APIKey != "" {
		masked.Engine.APIKey = maskValue(masked.Engine.APIKey)
	}

	return &masked
}

// maskValue masks sensitive values, showing only the first 4 characters
func maskValue(value string) string {
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return value[:4] + strings.Repeat("*", len(value)-4)
}

// contains checks if a slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// WatchConfig enables configuration hot-reloading. Only the settings layer
// reloads; the catalog itself stays loaded once per process.
func WatchConfig(configPath string, callback func(*Config)) error {
	v := viper.New()

	if err := setConfigFile(v, configPath); err != nil {
		return err
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		config, err := LoadWithOptions(LoadOptions{
			ConfigPath:       configPath,
			ValidateRequired: true,
		})
		if err != nil {
			fmt.Printf("Failed to reload config after change to %s: %v\n", e.Name, err)
			return
		}

		callback(config)
	})

	return nil
}
