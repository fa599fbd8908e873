package config

import (
	"fmt"
	"github.com/spf13/viper"
	"time"
)

const (
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
)

// AIConfig leaves Key empty when scoring is disabled; the API then answers 503.
type AIConfig struct {
	Provider             string        `mapstructure:"provider"`
	Key                  string        `mapstructure:"key"`
	Model                string        `mapstructure:"model"`
	ItemTimeout          time.Duration `mapstructure:"item_timeout"`
	MaxAttempts          int           `mapstructure:"max_attempts"`
	RetryBaseDelay       time.Duration `mapstructure:"retry_base_delay"`
	MaxRequestsPerMinute float32       `mapstructure:"max_requests_per_minute"`
	MaxRequestsPerDay    float32       `mapstructure:"max_requests_per_day"`
}

func (config *AIConfig) Enabled() bool {
	return config.Key != ""
}

func (config *AIConfig) validate() error {
	if config.Provider != ProviderGemini && config.Provider != ProviderClaude {
		return fmt.Errorf("unsupported ai provider %q", config.Provider)
	}
	if config.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1")
	}
	if config.ItemTimeout <= 0 {
		return fmt.Errorf("item_timeout must be positive")
	}
	return nil
}

func (config *AIConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"ai.provider": "AI_PROVIDER",
		"ai.key":      "AI_KEY",
		"ai.model":    "AI_MODEL",
	})
}
