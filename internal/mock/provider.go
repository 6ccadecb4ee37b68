// Package mock provides test doubles for the planes interfaces using function fields.
package mock

import (
	"context"
	"time"

	"github.com/514-labs/planes/internal/llm"
)

// Interface compliance checks.
var (
	_ llm.Provider       = (*Provider)(nil)
	_ llm.ProfileUpdater = (*ProfileUpdater)(nil)
)

// Provider is a test double for llm.Provider.
// Set CompleteFn before calling Complete. NameFn is optional.
type Provider struct {
	NameFn     func() string
	CompleteFn func(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Name delegates to NameFn, or returns "mock".
func (p *Provider) Name() string {
	if p.NameFn == nil {
		return "mock"
	}
	return p.NameFn()
}

// Complete delegates to CompleteFn.
func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return p.CompleteFn(ctx, req)
}

// ProfileUpdater is a test double for llm.ProfileUpdater.
type ProfileUpdater struct {
	UpdateProfileOnSuccessFn func(ctx context.Context, modelID string, latency time.Duration, usage llm.Usage)
	UpdateProfileOnFailureFn func(ctx context.Context, modelID string)
}

// UpdateProfileOnSuccess delegates to UpdateProfileOnSuccessFn.
func (u *ProfileUpdater) UpdateProfileOnSuccess(ctx context.Context, modelID string, latency time.Duration, usage llm.Usage) {
	u.UpdateProfileOnSuccessFn(ctx, modelID, latency, usage)
}

// UpdateProfileOnFailure delegates to UpdateProfileOnFailureFn.
func (u *ProfileUpdater) UpdateProfileOnFailure(ctx context.Context, modelID string) {
	u.UpdateProfileOnFailureFn(ctx, modelID)
}
