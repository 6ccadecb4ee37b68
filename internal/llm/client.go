// In file: internal/llm/client.go
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingCredential is returned by a provider that was started without an API key.
	ErrMissingCredential = errors.New("model API key is not configured")
	// ErrUnknownProvider is returned when MODEL_PROVIDER names no supported provider.
	ErrUnknownProvider = errors.New("unknown model provider")
)

// Role defines the originator of a message in a conversation.
type Role string

const (
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleToolResult Role = "tool-result"
)

// ContentBlock is one element of a message's ordered content.
// The set of implementations is closed: TextBlock, ToolCallBlock, ToolResultBlock.
type ContentBlock interface {
	contentBlock()
}

// TextBlock is plain model or user text.
type TextBlock struct {
	Text string
}

// ToolCallBlock is a tool invocation requested by the model.
type ToolCallBlock struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolResultBlock answers exactly one ToolCallBlock with the same ID.
type ToolResultBlock struct {
	ToolCallID string
	ToolName   string
	Content    string
	IsError    bool
}

func (TextBlock) contentBlock()       {}
func (ToolCallBlock) contentBlock()   {}
func (ToolResultBlock) contentBlock() {}

// Message is a single turn in the conversation history.
type Message struct {
	Role    Role
	Content []ContentBlock
}

// NewUserMessage is a convenience constructor for a text-only user turn.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{TextBlock{Text: text}}}
}

// NewAssistantText is a convenience constructor for a text-only assistant turn.
func NewAssistantText(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentBlock{TextBlock{Text: text}}}
}

// ToolSpec is the model-facing description of a callable tool.
// InputSchema is a JSON-schema object ({"type":"object","properties":...}).
type ToolSpec struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ToolChoice controls whether the model may call tools.
type ToolChoice string

const (
	ToolChoiceAuto ToolChoice = "auto"
	ToolChoiceNone ToolChoice = "none"
)

// Request is everything a provider needs for one model round-trip.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Tools       []ToolSpec
	ToolChoice  ToolChoice
	MaxTokens   int
	Temperature *float64
}

// StopReason is the provider-neutral reason a model ended its turn.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
	StopOther     StopReason = "other"
)

// Usage holds token counts for one or more model calls.
type Usage struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
}

// Add accumulates another call's usage.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Response is the normalized result of a model call.
type Response struct {
	Model      string
	Content    []ContentBlock
	StopReason StopReason
	// RawStopReason is the provider's own value, kept for logging.
	RawStopReason string
	Usage         Usage
}

// Text returns every text block concatenated in order, with no separator.
func (r *Response) Text() string {
	var sb strings.Builder
	for _, block := range r.Content {
		if tb, ok := block.(TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	return sb.String()
}

// ToolCalls returns the tool-call blocks in the order the model emitted them.
func (r *Response) ToolCalls() []ToolCallBlock {
	var calls []ToolCallBlock
	for _, block := range r.Content {
		if tc, ok := block.(ToolCallBlock); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

// Provider is the interface that all model backends must implement.
type Provider interface {
	// Name identifies the backend ("anthropic", "openai", "gemini", "mistral").
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// CheckToolPairing verifies that every tool call in an assistant message is answered
// by exactly one matching tool result before the next assistant message.
func CheckToolPairing(messages []Message) error {
	pending := map[string]bool{}
	for i, msg := range messages {
		switch msg.Role {
		case RoleAssistant:
			if len(pending) > 0 {
				return fmt.Errorf("message %d: assistant turn while %d tool call(s) unanswered", i, len(pending))
			}
			for _, block := range msg.Content {
				if tc, ok := block.(ToolCallBlock); ok {
					pending[tc.ID] = true
				}
			}
		case RoleToolResult:
			for _, block := range msg.Content {
				tr, ok := block.(ToolResultBlock)
				if !ok {
					continue
				}
				if !pending[tr.ToolCallID] {
					return fmt.Errorf("message %d: tool result %q has no matching call", i, tr.ToolCallID)
				}
				delete(pending, tr.ToolCallID)
			}
		}
	}
	if len(pending) > 0 {
		return fmt.Errorf("%d tool call(s) unanswered at end of history", len(pending))
	}
	return nil
}
