// In file: internal/llm/provider.go
package llm

import (
	"context"
	"fmt"
	"strings"
)

// ProviderConfig selects and configures a model backend.
type ProviderConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// NewProvider builds the configured backend. A missing API key is not an error here:
// the returned provider fails every call with ErrMissingCredential so the server can
// still start and report the condition on its health endpoint.
func NewProvider(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = ProviderAnthropic
	}
	if cfg.APIKey == "" {
		switch name {
		case ProviderAnthropic, ProviderOpenAI, ProviderGemini, ProviderMistral:
			return unconfiguredProvider{name: name}, nil
		}
	}

	switch name {
	case ProviderAnthropic:
		return NewAnthropicClient(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case ProviderOpenAI:
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	case ProviderMistral:
		return NewMistralClient(cfg.APIKey, cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// unconfiguredProvider stands in for a backend whose credential is absent.
type unconfiguredProvider struct {
	name string
}

func (p unconfiguredProvider) Name() string { return p.name }

func (p unconfiguredProvider) Complete(context.Context, Request) (*Response, error) {
	return nil, fmt.Errorf("%s: %w", p.name, ErrMissingCredential)
}

// IsConfigured reports whether p can reach a real backend.
func IsConfigured(p Provider) bool {
	if p == nil {
		return false
	}
	if pp, ok := p.(*ProfiledProvider); ok {
		return IsConfigured(pp.next)
	}
	_, missing := p.(unconfiguredProvider)
	return !missing
}

// DefaultModel returns the model used for provider when none is configured.
func DefaultModel(provider string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderOpenAI:
		return defaultOpenAIModel
	case ProviderGemini:
		return defaultGeminiModel
	case ProviderMistral:
		return defaultMistralModel
	default:
		return defaultAnthropicModel
	}
}
