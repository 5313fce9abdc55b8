package llm

import (
	"context"
	"fmt"
	"sort"

	"sheetlens/internal/config"
	"sheetlens/internal/errors"
	"sheetlens/models"
	"sheetlens/ports"
)

var defaultModels = map[string]map[string]string{
	config.ProviderGroq: {
		models.ModelSmall: "llama-3.1-8b-instant",
		models.ModelLarge: "llama-3.3-70b-versatile",
	},
	config.ProviderOpenAI: {
		models.ModelSmall: "gpt-4o-mini",
		models.ModelLarge: "gpt-4o",
	},
	config.ProviderGemini: {
		models.ModelSmall: "gemini-2.5-flash-lite",
		models.ModelLarge: "gemini-2.5-flash",
	},
}

// ModelCatalog maps the small/large choice onto provider model ids
type ModelCatalog struct {
	ids map[string]string
}

// NewModelCatalog resolves the provider defaults, then the configured overrides
func NewModelCatalog(cfg config.LLMConfig) *ModelCatalog {
	ids := make(map[string]string, 2)
	for size, id := range defaultModels[cfg.Provider] {
		ids[size] = id
	}
	if len(ids) == 0 {
		for size, id := range defaultModels[config.ProviderGroq] {
			ids[size] = id
		}
	}
	if cfg.SmallModel != "" {
		ids[models.ModelSmall] = cfg.SmallModel
	}
	if cfg.LargeModel != "" {
		ids[models.ModelLarge] = cfg.LargeModel
	}
	return &ModelCatalog{ids: ids}
}

// Resolve returns the provider model id for a size
func (c *ModelCatalog) Resolve(size string) (string, error) {
	id, ok := c.ids[size]
	if !ok {
		return "", errors.InvalidInput(fmt.Sprintf("unknown model %q (choose %s or %s)", size, models.ModelSmall, models.ModelLarge))
	}
	return id, nil
}

// Sizes lists the accepted choices
func (c *ModelCatalog) Sizes() []string {
	sizes := make([]string, 0, len(c.ids))
	for size := range c.ids {
		sizes = append(sizes, size)
	}
	sort.Strings(sizes)
	return sizes
}

// NewClient builds the chat client for the configured provider
func NewClient(ctx context.Context, cfg config.LLMConfig) (ports.ChatClient, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case config.ProviderGemini:
		client, err := NewGeminiClient(ctx, cfg.APIKey)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderGroq, config.ProviderOpenAI:
		client, err := NewOpenAIClient(cfg.Provider, cfg.APIKey, cfg.BaseURL, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, errors.ConfigInvalid("unknown LLM provider: " + cfg.Provider)
	}
}
