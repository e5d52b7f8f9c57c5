// Package config resolves client configuration from the environment
// and an optional config file. Explicit Config fields always win;
// the environment only fills what was left empty.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/tepilora/tepilora-go/pkg/tepilora"
)

// Environment variables recognized by Resolve.
const (
	EnvAPIKey     = "TEPILORA_API_KEY"
	EnvBaseURL    = "TEPILORA_BASE_URL"
	EnvConfigFile = "TEPILORA_CONFIG"
)

// Resolve fills empty Config fields from the environment and, when
// TEPILORA_CONFIG names a file, from that YAML file. Precedence is
// explicit field, then environment variable, then config file.
func Resolve(config *tepilora.Config) error {
	v := viper.New()
	v.SetEnvPrefix("TEPILORA")
	v.AutomaticEnv()

	if path := os.Getenv(EnvConfigFile); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		err := v.ReadInConfig()
		if err != nil {
			return fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	if config.APIKey == "" {
		config.APIKey = v.GetString("api_key")
	}

	if config.BaseURL == "" {
		config.BaseURL = v.GetString("base_url")
	}

	if config.Timeout == 0 {
		if raw := v.GetString("timeout"); raw != "" {
			timeout, err := time.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("parsing timeout %q: %w", raw, err)
			}

			config.Timeout = timeout
		}
	}

	if config.UserAgent == "" {
		config.UserAgent = v.GetString("user_agent")
	}

	return nil
}
