// Copyright 2025 Vectorforge
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


package openai

import (
	"fmt"
	"strings"
	"time"

	"github.com/vectorforge/batchpipe/remote"
)

// Config holds configuration for the OpenAI batch API client.
type Config struct {
	// BaseURL is the base URL of the OpenAI-compatible API.
	// Example: "https://api.openai.com/v1"
	BaseURL string

	// APIKey is the bearer token used to authenticate requests.
	APIKey string

	// Endpoint is the API endpoint each batched request targets.
	// Default: "/v1/embeddings"
	Endpoint string

	// CompletionWindow is the time frame within which a batch job should
	// be processed by the remote service. Default: "24h"
	CompletionWindow string

	// Description is attached to every created job as metadata, so jobs
	// belonging to this pipeline can be identified in the provider console.
	Description string

	// HTTPTimeout bounds each individual HTTP request. Result file
	// downloads can be large, so this should not be set too aggressively.
	// Default: 2 minutes.
	HTTPTimeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) ConfigOption {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithAPIKey sets the API bearer token.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithEndpoint sets the target endpoint for batched requests.
func WithEndpoint(endpoint string) ConfigOption {
	return func(c *Config) {
		c.Endpoint = endpoint
	}
}

// WithCompletionWindow sets the batch completion window.
func WithCompletionWindow(window string) ConfigOption {
	return func(c *Config) {
		c.CompletionWindow = window
	}
}

// WithDescription sets the job metadata description.
func WithDescription(description string) ConfigOption {
	return func(c *Config) {
		c.Description = description
	}
}

// WithHTTPTimeout sets the per-request HTTP timeout.
func WithHTTPTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.HTTPTimeout = timeout
	}
}

// DefaultConfig returns a Config with defaults for the hosted OpenAI API.
// The APIKey must still be provided before the config validates.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "https://api.openai.com/v1",
		Endpoint:         "/v1/embeddings",
		CompletionWindow: "24h",
		Description:      "batchpipe embedding job",
		HTTPTimeout:      2 * time.Minute,
	}
}

// NewConfig creates a Config with the default values and applies the
// provided options.
//
// Example:
//   cfg := NewConfig(
//       WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//       WithCompletionWindow("24h"),
//   )
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form. It strips a
// trailing slash from the base URL and adds the /v1 suffix if missing, which
// the hosted API and OpenAI-compatible servers both require.
func (c *Config) Normalize() {
	if c.BaseURL != "" && !strings.HasSuffix(c.BaseURL, "/v1") {
		c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
		c.BaseURL = c.BaseURL + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.BaseURL == "" {
		return fmt.Errorf("openai config: %w", remote.ErrMissingBaseURL)
	}
	if c.APIKey == "" {
		return fmt.Errorf("openai config: %w", remote.ErrMissingAPIKey)
	}
	if c.Endpoint == "" {
		return fmt.Errorf("openai config: Endpoint is required")
	}
	if c.CompletionWindow == "" {
		return fmt.Errorf("openai config: CompletionWindow is required")
	}
	return nil
}
