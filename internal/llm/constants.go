// In file: internal/llm/constants.go
package llm

import "time"

// This file centralizes constants shared across the provider clients.
const (
	defaultTimeout   = 120 * time.Second
	maxRetries       = 3
	defaultMaxTokens = 4096

	defaultAnthropicModel = "claude-sonnet-4-5-20250929"
	defaultOpenAIModel    = "gpt-4o"
	defaultGeminiModel    = "gemini-1.5-pro"
	defaultMistralModel   = "mistral-large-latest"

	mistralBaseURL = "https://api.mistral.ai/v1"
)

// Provider names accepted by NewProvider.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderMistral   = "mistral"
)
