package mock

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/514-labs/planes/internal/agent"
	"github.com/514-labs/planes/internal/tools"
)

var _ agent.ToolGateway = (*ToolGateway)(nil)

// ToolGateway is a test double for agent.ToolGateway. It also satisfies the
// query runner used by the consumption endpoints.
// ListToolsFn is optional and defaults to an empty catalog.
type ToolGateway struct {
	ListToolsFn func(ctx context.Context) []mcp.Tool
	CallToolFn  func(ctx context.Context, name string, args map[string]any) (tools.Result, error)
}

// ListTools delegates to ListToolsFn.
func (g *ToolGateway) ListTools(ctx context.Context) []mcp.Tool {
	if g.ListToolsFn == nil {
		return nil
	}
	return g.ListToolsFn(ctx)
}

// CallTool delegates to CallToolFn.
func (g *ToolGateway) CallTool(ctx context.Context, name string, args map[string]any) (tools.Result, error) {
	return g.CallToolFn(ctx, name, args)
}
