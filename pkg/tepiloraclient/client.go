// Package tepiloraclient provides the main entry point for creating
// Tepilora API clients.
package tepiloraclient

import (
	"fmt"
	"strings"

	"github.com/tepilora/tepilora-go/internal/client"
	"github.com/tepilora/tepilora-go/internal/config"
	"github.com/tepilora/tepilora-go/pkg/tepilora"
)

// New creates a new Tepilora API client. Empty APIKey and BaseURL
// fields fall back to the TEPILORA_API_KEY and TEPILORA_BASE_URL
// environment variables (and an optional TEPILORA_CONFIG file); a
// still-empty base URL falls back to the production endpoint.
func New(cfg *tepilora.Config) (tepilora.Client, error) {
	if cfg == nil {
		return nil, tepilora.ErrConfigRequired
	}

	err := config.Resolve(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolving configuration: %w", err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = tepilora.DefaultBaseURL
	}

	// Normalize the API origin.
	baseURL := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	cfg.BaseURL = baseURL

	c, err := client.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NewWithAPIKey creates a client for the production endpoint with
// just an API key.
func NewWithAPIKey(apiKey string) (tepilora.Client, error) {
	return New(&tepilora.Config{
		APIKey: apiKey,
	})
}

// NewWithEndpoint creates a client for a specific endpoint, taking
// the API key from the environment.
func NewWithEndpoint(endpoint string) (tepilora.Client, error) {
	return New(&tepilora.Config{
		BaseURL: endpoint,
	})
}
