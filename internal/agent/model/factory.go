package model

import (
	"context"
	"fmt"

	"github.com/moolen/bonvoyage/internal/config"
	"github.com/moolen/bonvoyage/internal/logging"
	"google.golang.org/adk/model"
)

// New builds the model selected by cfg.Model. Credentials are checked here so
// that a missing key fails before any pipeline starts.
func New(ctx context.Context, cfg config.LLMConfig) (model.LLM, error) {
	logger := logging.GetLogger("agent.model")
	name := cfg.ModelName()

	switch cfg.Provider() {
	case config.ProviderMock:
		if name == config.ProviderMock {
			name = ""
		}
		llm, err := NewScriptedLLM(name)
		if err != nil {
			return nil, fmt.Errorf("failed to create scripted model: %w", err)
		}
		logger.Info("Using scripted model %s", llm.Name())
		return llm, nil

	case config.ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, config.NewConfigurationError("ANTHROPIC_API_KEY not found: set it in the environment or llm.api_key in the config file")
		}
		logger.Info("Using Anthropic model %s", name)
		return NewAnthropicLLM(AnthropicConfig{
			APIKey:    cfg.APIKey,
			Model:     name,
			MaxTokens: cfg.MaxTokens,
		})

	default:
		if cfg.APIKey == "" {
			return nil, config.NewConfigurationError("GEMINI_API_KEY not found: set it in the environment or llm.api_key in the config file")
		}
		logger.Info("Using Gemini model %s", name)
		return NewGeminiLLM(ctx, name, cfg.APIKey)
	}
}
