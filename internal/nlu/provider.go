package nlu

import (
	"context"
	"fmt"
	"time"
)

// Providers accepted in configuration.
const (
	ProviderZhipu  = "zhipu"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// Config selects and configures a provider.
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// New builds the configured classifier. ProviderNone, or a provider without an
// API key, returns a nil Classifier which disables the semantic stage.
func New(ctx context.Context, cfg Config) (Classifier, error) {
	switch cfg.Provider {
	case "", ProviderNone:
		return nil, nil
	case ProviderZhipu:
		if cfg.APIKey == "" {
			return nil, nil
		}
		return NewZhipuClient(ZhipuConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}), nil
	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, nil
		}
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown nlu provider %q", cfg.Provider)
	}
}
