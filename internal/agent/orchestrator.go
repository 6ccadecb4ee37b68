// In file: internal/agent/orchestrator.go

// Package agent runs the bounded tool-calling conversation between a model
// provider and the tool endpoint, and accumulates its per-step trace.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/514-labs/planes/internal/llm"
	"github.com/514-labs/planes/internal/tools"
)

const (
	DefaultMaxIterations       = 5
	DefaultStreamMaxIterations = 25
)

// ToolMode selects how the tool catalog is built.
type ToolMode string

const (
	// ToolModeDynamic fetches the catalog from the endpoint at the start of every run.
	ToolModeDynamic ToolMode = "dynamic"
	// ToolModeStatic offers only the built-in query tool.
	ToolModeStatic ToolMode = "static"
)

// ToolGateway is the subset of the tool endpoint client the loop needs.
type ToolGateway interface {
	ListTools(ctx context.Context) []mcp.Tool
	CallTool(ctx context.Context, name string, args map[string]any) (tools.Result, error)
}

// Config holds per-deployment loop settings.
type Config struct {
	SystemPrompt  string
	Model         string
	MaxIterations int
	MaxTokens     int
	Temperature   *float64
	ToolMode      ToolMode
	QueryTool     string
	RowLimit      int
}

// Orchestrator drives the model/tool loop. One Orchestrator serves many
// concurrent runs; every run owns its own history and result.
type Orchestrator struct {
	provider llm.Provider
	gateway  ToolGateway
	cfg      Config
}

func NewOrchestrator(provider llm.Provider, gateway ToolGateway, cfg Config) *Orchestrator {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.ToolMode == "" {
		cfg.ToolMode = ToolModeDynamic
	}
	return &Orchestrator{provider: provider, gateway: gateway, cfg: cfg}
}

// RunOption configures a single Run invocation.
type RunOption func(*runConfig)

type runConfig struct {
	maxIterations int
	onEvent       func(Event)
	runID         string
}

// WithMaxIterations overrides the configured iteration budget for one run.
func WithMaxIterations(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// WithEventHandler sets a callback that receives each event during the run.
func WithEventHandler(h func(Event)) RunOption {
	return func(c *runConfig) { c.onEvent = h }
}

// WithRunID tags the run's log lines.
func WithRunID(id string) RunOption {
	return func(c *runConfig) { c.runID = id }
}

func (c *runConfig) emit(e Event) {
	if c.onEvent != nil {
		c.onEvent(e)
	}
}

// Run executes the loop over history, which must end with the user's turn.
// Tool failures are fed back to the model; only model failures and
// cancellation end a run with an error. Hitting the iteration budget is a
// partial success reported through Result.Truncated.
func (o *Orchestrator) Run(ctx context.Context, history []llm.Message, opts ...RunOption) (*Result, error) {
	rc := runConfig{maxIterations: o.cfg.MaxIterations, runID: "-"}
	for _, opt := range opts {
		opt(&rc)
	}
	if len(history) == 0 {
		return nil, errors.New("conversation history is empty")
	}

	catalog := o.buildCatalog(ctx)
	log.Printf("🧠 [%s] Run started with %d tool(s), budget %d step(s).", rc.runID, catalog.ToolCount(), rc.maxIterations)

	messages := slices.Clone(history)
	var res Result

	for step := 1; step <= rc.maxIterations; step++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled before step %d: %w", step, err)
		}
		if err := llm.CheckToolPairing(messages); err != nil {
			return nil, fmt.Errorf("conversation history is inconsistent: %w", err)
		}

		resp, err := o.provider.Complete(ctx, llm.Request{
			Model:       o.cfg.Model,
			System:      o.cfg.SystemPrompt,
			Messages:    messages,
			Tools:       catalog.Specs(),
			ToolChoice:  llm.ToolChoiceAuto,
			MaxTokens:   o.cfg.MaxTokens,
			Temperature: o.cfg.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("model call failed at step %d: %w", step, err)
		}

		text := resp.Text()
		calls := resp.ToolCalls()
		log.Printf("🧠 [%s] Step %d: stop=%s text=%d chars tool_calls=%d", rc.runID, step, resp.RawStopReason, len(text), len(calls))
		if text != "" {
			rc.emit(Event{Type: EventText, Step: step, Text: text})
		}

		if resp.StopReason == llm.StopToolUse && len(calls) > 0 {
			delta, results := o.runTools(ctx, step, catalog, calls, &rc)
			delta.text = text
			delta.usage = resp.Usage
			var rec *IterationRecord
			res, rec = res.fold(delta)
			if rec != nil {
				rc.emit(Event{Type: EventIteration, Step: step, Record: rec})
			}
			messages = append(messages,
				llm.Message{Role: llm.RoleAssistant, Content: resp.Content},
				llm.Message{Role: llm.RoleToolResult, Content: results},
			)
			continue
		}

		switch resp.StopReason {
		case llm.StopEndTurn, llm.StopToolUse:
		default:
			log.Printf("WARNING: [%s] Step %d ended with unexpected stop reason %q; terminating run.", rc.runID, step, resp.RawStopReason)
		}
		var rec *IterationRecord
		res, rec = res.fold(stepDelta{step: step, text: text, usage: resp.Usage})
		if rec != nil {
			rc.emit(Event{Type: EventIteration, Step: step, Record: rec})
		}
		log.Printf("✅ [%s] Run finished after %d step(s).", rc.runID, step)
		return &res, nil
	}

	res.Truncated = true
	log.Printf("⚠️ [%s] Iteration budget of %d exhausted; returning partial result.", rc.runID, rc.maxIterations)
	return &res, nil
}

func (o *Orchestrator) buildCatalog(ctx context.Context) *tools.Catalog {
	if o.cfg.ToolMode == ToolModeStatic {
		return tools.NewCatalog(tools.QueryTool(o.cfg.QueryTool, o.cfg.RowLimit))
	}
	return tools.NewCatalog(tools.Adapt(o.gateway.ListTools(ctx))...)
}

// runTools executes the step's calls sequentially in emitted order and returns
// one result block per call, in the same order.
func (o *Orchestrator) runTools(ctx context.Context, step int, catalog *tools.Catalog, calls []llm.ToolCallBlock, rc *runConfig) (stepDelta, []llm.ContentBlock) {
	delta := stepDelta{step: step}
	results := make([]llm.ContentBlock, 0, len(calls))

	for _, call := range calls {
		input := toolInput(call.Arguments)
		rc.emit(Event{Type: EventToolCall, Step: step, ToolCallID: call.ID, ToolName: call.Name, Input: input, Arguments: call.Arguments})
		log.Printf("🔧 [%s] Step %d: calling %s (%s)", rc.runID, step, call.Name, call.ID)

		start := time.Now()
		out, err := o.invoke(ctx, catalog, call)
		elapsed := time.Since(start)

		block := llm.ToolResultBlock{ToolCallID: call.ID, ToolName: call.Name}
		if err != nil {
			log.Printf("WARNING: [%s] Step %d: tool %s failed: %v", rc.runID, step, call.Name, err)
			block.Content = "Error: " + err.Error()
			block.IsError = true
			if !delta.succeeded {
				delta.sql = input
			}
			rc.emit(Event{Type: EventToolResult, Step: step, ToolCallID: call.ID, ToolName: call.Name, Error: err.Error()})
		} else {
			block.Content = out.Content()
			delta.succeeded = true
			delta.sql = input
			delta.rows = out.Rows
			delta.lastSQL = input
			delta.lastRows = out.Rows
			rc.emit(Event{Type: EventToolResult, Step: step, ToolCallID: call.ID, ToolName: call.Name, Success: true, RowCount: len(out.Rows)})
		}
		rc.emit(Event{Type: EventToolTiming, Step: step, ToolCallID: call.ID, ToolName: call.Name, Duration: elapsed})
		results = append(results, block)
	}
	return delta, results
}

// invoke validates the call against the catalog before anything is sent.
func (o *Orchestrator) invoke(ctx context.Context, catalog *tools.Catalog, call llm.ToolCallBlock) (tools.Result, error) {
	args, err := catalog.Validate(call.Name, call.Arguments)
	if err != nil {
		return tools.Result{}, err
	}
	return o.gateway.CallTool(ctx, call.Name, args)
}
