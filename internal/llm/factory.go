package llm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/recebe/internal/model"
)

// NewProvider creates a provider from configuration. An empty provider name
// disables digests and returns nil.
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)
	case "anthropic", "claude":
		return NewAnthropicProvider(config)
	case "ollama":
		return NewOllamaProvider(config)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel builds a provider config from the client configuration.
// Proxy settings are shared with the API client.
func ConfigFromModel(cfg *model.Config, logger *zap.Logger) Config {
	return Config{
		Provider:   cfg.LLM.Provider,
		Model:      cfg.LLM.Model,
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Timeout:    cfg.LLM.Timeout,
		Strict:     cfg.LLM.Strict,
		MaxTokens:  cfg.LLM.MaxTokens,
		HTTPProxy:  cfg.API.HTTPProxy,
		HTTPSProxy: cfg.API.HTTPSProxy,
		Logger:     logger,
	}
}
