package llm

import (
	"github.com/perfumepal/blender/internal/config"
)

// NewProvider creates the model client selected by the configuration.
// Gemini is the default.
func NewProvider(cfg *config.Config) Client {
	switch ProviderType(cfg.Model.Provider) {
	case ProviderOpenAI:
		return NewOpenAIClient(cfg.OpenAIKey, cfg.Model.Name, cfg.Model.BaseURL)
	case ProviderGroq:
		return NewGroqClient(cfg.GroqKey, cfg.Model.Name, cfg.Model.BaseURL)
	default:
		return NewGeminiClient(cfg.GoogleAPIKey,
			WithGeminiModel(cfg.Model.Name),
			WithGeminiBaseURL(cfg.Model.BaseURL),
		)
	}
}
