// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the agent configuration that can be loaded from a JSON
// file. All fields are optional; missing values use defaults or must be
// provided via CLI flags or environment variables.
type Config struct {
	// Persistence
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL

	// Generation
	LLMProvider string `json:"llm_provider,omitempty"` // "gemini" or "openai"
	LLMAPIKey   string `json:"llm_api_key,omitempty"`  // Text generation API key
	ImagenURL   string `json:"imagen_url,omitempty"`   // Image generation endpoint
	ImagenKey   string `json:"imagen_key,omitempty"`   // Image generation API key

	// Fulfillment
	PrintfulAPIKey     string `json:"printful_api_key,omitempty"`
	ShopifyDomain      string `json:"shopify_domain,omitempty"`       // e.g. my-store.myshopify.com
	ShopifyAccessToken string `json:"shopify_access_token,omitempty"` // Admin API access token
	ShopifyCollection  string `json:"shopify_collection,omitempty"`   // Optional collection for published products

	// Behavior
	BatchSize  int    `json:"batch_size,omitempty"`  // Ideas per phrase generation run
	ListenAddr string `json:"listen_addr,omitempty"` // HTTP listen address
	Verbose    bool   `json:"verbose,omitempty"`     // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv returns a Config populated from environment variables. Values
// from a config file win over the environment when both are set.
func FromEnv() Config {
	return Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		LLMProvider:        os.Getenv("LLM_PROVIDER"),
		LLMAPIKey:          os.Getenv("LLM_API_KEY"),
		ImagenURL:          os.Getenv("IMAGEN_URL"),
		ImagenKey:          os.Getenv("IMAGEN_API_KEY"),
		PrintfulAPIKey:     os.Getenv("PRINTFUL_API_KEY"),
		ShopifyDomain:      os.Getenv("SHOPIFY_DOMAIN"),
		ShopifyAccessToken: os.Getenv("SHOPIFY_ACCESS_TOKEN"),
		ShopifyCollection:  os.Getenv("SHOPIFY_COLLECTION"),
		ListenAddr:         os.Getenv("LISTEN_ADDR"),
	}
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// per-command; the seed command needs no generation keys, for example.
func (c *Config) Validate() error {
	if c.BatchSize < 0 {
		return fmt.Errorf("config error: 'batch_size' must be non-negative")
	}
	if c.LLMProvider != "" && c.LLMProvider != "gemini" && c.LLMProvider != "openai" {
		return fmt.Errorf("config error: 'llm_provider' must be \"gemini\" or \"openai\", got %q", c.LLMProvider)
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. This is used to layer config file values over the environment.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.LLMProvider == "" {
		result.LLMProvider = defaults.LLMProvider
	}
	if result.LLMAPIKey == "" {
		result.LLMAPIKey = defaults.LLMAPIKey
	}
	if result.ImagenURL == "" {
		result.ImagenURL = defaults.ImagenURL
	}
	if result.ImagenKey == "" {
		result.ImagenKey = defaults.ImagenKey
	}
	if result.PrintfulAPIKey == "" {
		result.PrintfulAPIKey = defaults.PrintfulAPIKey
	}
	if result.ShopifyDomain == "" {
		result.ShopifyDomain = defaults.ShopifyDomain
	}
	if result.ShopifyAccessToken == "" {
		result.ShopifyAccessToken = defaults.ShopifyAccessToken
	}
	if result.ShopifyCollection == "" {
		result.ShopifyCollection = defaults.ShopifyCollection
	}
	if result.BatchSize == 0 {
		result.BatchSize = defaults.BatchSize
	}
	if result.ListenAddr == "" {
		if defaults.ListenAddr != "" {
			result.ListenAddr = defaults.ListenAddr
		} else {
			result.ListenAddr = ":8080"
		}
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
