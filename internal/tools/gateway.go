// In file: internal/tools/gateway.go
package tools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

// DefaultQueryTool is the name of the endpoint's SQL tool.
const DefaultQueryTool = "query"

const pingTimeout = 5 * time.Second

// GatewayOption customises a Gateway.
type GatewayOption func(*Gateway)

// WithHeaders adds HTTP headers to every request sent to the endpoint.
func WithHeaders(headers map[string]string) GatewayOption {
	return func(g *Gateway) { g.headers = headers }
}

// WithRowLimit overrides DefaultRowLimit.
func WithRowLimit(limit int) GatewayOption {
	return func(g *Gateway) {
		if limit > 0 {
			g.rowLimit = limit
		}
	}
}

// WithClientInfo sets the name and version announced during the handshake.
func WithClientInfo(name, version string) GatewayOption {
	return func(g *Gateway) {
		g.clientName = name
		g.clientVersion = version
	}
}

// Gateway is the JSON-RPC client for the external tool endpoint. The session is
// opened lazily on first use and reopened once the endpoint has dropped it.
// It is safe for concurrent use.
type Gateway struct {
	endpoint      string
	headers       map[string]string
	rowLimit      int
	clientName    string
	clientVersion string

	mu     sync.Mutex
	client *client.Client
}

func NewGateway(endpoint string, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		endpoint:      endpoint,
		rowLimit:      DefaultRowLimit,
		clientName:    "planes-chat",
		clientVersion: "dev",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Endpoint returns the configured endpoint URL.
func (g *Gateway) Endpoint() string { return g.endpoint }

// ListTools fetches the endpoint's catalog. Any failure is logged and yields an
// empty catalog so the caller can continue without tools.
func (g *Gateway) ListTools(ctx context.Context) []mcp.Tool {
	c, err := g.session(ctx)
	if err != nil {
		log.Printf("⚠️ Tool catalog unavailable from %s: %v", g.endpoint, err)
		return nil
	}
	res, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		log.Printf("⚠️ tools/list failed against %s: %v", g.endpoint, err)
		g.dropIfLost(ctx, c, err)
		return nil
	}
	return res.Tools
}

// CallTool invokes name with args and returns the normalized result.
// Every failure is returned as an *InvocationError.
func (g *Gateway) CallTool(ctx context.Context, name string, args map[string]any) (Result, error) {
	c, err := g.session(ctx)
	if err != nil {
		return Result{}, &InvocationError{Tool: name, Err: err}
	}
	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	}
	res, err := c.CallTool(ctx, req)
	if err != nil && g.dropIfLost(ctx, c, err) && errors.Is(err, transport.ErrSessionTerminated) {
		// The endpoint never ran the call, so it is safe to send again on a new session.
		log.Printf("⚠️ Tool endpoint session at %s expired; reconnecting.", g.endpoint)
		res, err = g.callOnNewSession(ctx, req)
	}
	if err != nil {
		return Result{}, &InvocationError{Tool: name, Err: err}
	}
	out, err := Normalize(res, g.rowLimit)
	if err != nil {
		return Result{}, &InvocationError{Tool: name, Err: err}
	}
	return out, nil
}

// Close tears down the session, if any.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	return err
}

func (g *Gateway) session(ctx context.Context) (*client.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}

	var opts []transport.StreamableHTTPCOption
	if len(g.headers) > 0 {
		opts = append(opts, transport.WithHTTPHeaders(g.headers))
	}
	c, err := client.NewStreamableHttpClient(g.endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool endpoint client: %w", err)
	}
	// The transport outlives the request that happened to open it.
	if err := c.Start(context.WithoutCancel(ctx)); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to start tool endpoint transport: %w", err)
	}
	_, err = c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo:      mcp.Implementation{Name: g.clientName, Version: g.clientVersion},
		},
	})
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize tool endpoint session: %w", err)
	}
	g.client = c
	return c, nil
}

func (g *Gateway) callOnNewSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := g.session(ctx)
	if err != nil {
		return nil, err
	}
	res, err := c.CallTool(ctx, req)
	if err != nil {
		g.dropIfLost(ctx, c, err)
	}
	return res, err
}

// dropIfLost discards c when err means its session is gone: the endpoint
// reported the session terminated, or c no longer answers a ping. An error
// the endpoint returned over a healthy session leaves c in place for other
// callers. It reports whether c was dropped.
func (g *Gateway) dropIfLost(ctx context.Context, c *client.Client, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if !errors.Is(err, transport.ErrSessionTerminated) {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if c.Ping(pingCtx) == nil {
			return false
		}
	}
	g.release(c)
	return true
}

// release closes c if it is still the current session. A session another
// caller already replaced is left to that caller.
func (g *Gateway) release(c *client.Client) {
	g.mu.Lock()
	if g.client != c {
		g.mu.Unlock()
		return
	}
	g.client = nil
	g.mu.Unlock()

	if err := c.Close(); err != nil {
		log.Printf("WARNING: closing tool endpoint session: %v", err)
	}
}
