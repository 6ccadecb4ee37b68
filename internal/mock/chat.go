package mock

import (
	"context"

	"github.com/514-labs/planes/internal/agent"
	"github.com/514-labs/planes/internal/llm"
)

// ChatRunner is a test double for the orchestrator as seen by the HTTP handlers.
type ChatRunner struct {
	RunFn func(ctx context.Context, history []llm.Message, opts ...agent.RunOption) (*agent.Result, error)
}

// Run delegates to RunFn.
func (r *ChatRunner) Run(ctx context.Context, history []llm.Message, opts ...agent.RunOption) (*agent.Result, error) {
	return r.RunFn(ctx, history, opts...)
}

// ResponseCache is a test double for the Redis response cache.
type ResponseCache struct {
	CheckFn func(ctx context.Context, key string) (string, bool)
	StoreFn func(ctx context.Context, key, value string)
}

// Check delegates to CheckFn.
func (c *ResponseCache) Check(ctx context.Context, key string) (string, bool) {
	return c.CheckFn(ctx, key)
}

// Store delegates to StoreFn.
func (c *ResponseCache) Store(ctx context.Context, key, value string) {
	c.StoreFn(ctx, key, value)
}

// ProfileReader is a test double for the model profile store.
type ProfileReader struct {
	GetProfileFn func(ctx context.Context, modelID string) (*llm.ModelProfile, error)
}

// GetProfile delegates to GetProfileFn.
func (r *ProfileReader) GetProfile(ctx context.Context, modelID string) (*llm.ModelProfile, error) {
	return r.GetProfileFn(ctx, modelID)
}
