// In file: internal/api/types.go

// Package api defines the JSON bodies exchanged with HTTP clients.
package api

import (
	"github.com/514-labs/planes/internal/agent"
	"github.com/514-labs/planes/internal/llm"
	"github.com/514-labs/planes/internal/tools"
)

// ChatRequest accepts either a single message or, for the streaming variant,
// a list of prior conversation turns.
type ChatRequest struct {
	Message  string    `json:"message"`
	Messages []Message `json:"messages,omitempty"`
}

// Streaming reports whether the request selects the streaming variant.
func (r ChatRequest) Streaming() bool {
	return r.Messages != nil
}

// Message is one prior conversation turn sent by the client.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the body of a successful non-streaming chat.
type ChatResponse struct {
	Response    string                  `json:"response"`
	SQL         string                  `json:"sql"`
	Data        []tools.Row             `json:"data"`
	Iterations  []agent.IterationRecord `json:"iterations"`
	Truncated   bool                    `json:"truncated"`
	RunID       string                  `json:"runId"`
	LatencyMS   int64                   `json:"latencyMs"`
	CacheStatus string                  `json:"cacheStatus"`
	Usage       llm.Usage               `json:"usage"`
}

// NewChatResponse copies a run result into its wire form. Absent data and
// iterations serialise as empty arrays rather than null.
func NewChatResponse(res *agent.Result, runID string) ChatResponse {
	resp := ChatResponse{
		Response:   res.Response,
		SQL:        res.SQL,
		Data:       res.Data,
		Iterations: res.Iterations,
		Truncated:  res.Truncated,
		RunID:      runID,
		Usage:      res.Usage,
	}
	if resp.Data == nil {
		resp.Data = []tools.Row{}
	}
	if resp.Iterations == nil {
		resp.Iterations = []agent.IterationRecord{}
	}
	return resp
}

// ErrorResponse is the body of every 4xx/5xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status             string `json:"status"`
	ToolEndpoint       string `json:"toolEndpoint"`
	ModelKeyConfigured bool   `json:"modelKeyConfigured"`
	ModelProvider      string `json:"modelProvider"`
	ToolMode           string `json:"toolMode"`
	Version            string `json:"version"`
}

// ToolTiming is the payload of a "tool-timing" stream event.
type ToolTiming struct {
	ToolCallID string `json:"toolCallId"`
	Duration   int64  `json:"duration"`
	StepNumber int    `json:"stepNumber"`
	ToolName   string `json:"toolName"`
}
