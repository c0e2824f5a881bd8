package ai

import (
	"context"
	"fmt"
	"strings"
)

// TextGenerator generates text from a system prompt and user prompt.
// All LLM providers (OpenAI-compatible, Gemini, Ollama) implement this interface.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ProviderConfig selects and configures a TextGenerator.
type ProviderConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"

	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o"
)

// NewGenerator builds the TextGenerator named by cfg.Provider.
func NewGenerator(cfg ProviderConfig) (TextGenerator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderOpenAI
	}
	switch provider {
	case ProviderOpenAI:
		baseURL := cfg.BaseURL
		if strings.TrimSpace(baseURL) == "" {
			baseURL = defaultOpenAIBaseURL
		}
		model := cfg.Model
		if strings.TrimSpace(model) == "" {
			model = defaultOpenAIModel
		}
		if strings.TrimSpace(cfg.APIKey) == "" && baseURL == defaultOpenAIBaseURL {
			return nil, fmt.Errorf("openai api key required")
		}
		return NewOpenAICompatGenerator(baseURL, cfg.APIKey, model), nil
	case ProviderGemini:
		return NewGeminiGenerator(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderOllama:
		return NewOllamaGenerator(cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", provider)
	}
}
