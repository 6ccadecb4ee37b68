package llm_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/514-labs/planes/internal/llm"
)

// capture serves reply for every request and stores the last decoded body.
func capture(t *testing.T, status int, reply string) (*httptest.Server, func() map[string]any) {
	t.Helper()
	bodies := make(chan map[string]any, 8)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		bodies <- body
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(ts.Close)
	return ts, func() map[string]any {
		select {
		case b := <-bodies:
			return b
		default:
			t.Fatal("no request received")
			return nil
		}
	}
}

func conversation() llm.Request {
	return llm.Request{
		System: "You answer questions about aircraft.",
		Messages: []llm.Message{
			llm.NewUserMessage("How many aircraft?"),
			{Role: llm.RoleAssistant, Content: []llm.ContentBlock{
				llm.TextBlock{Text: "Counting."},
				llm.ToolCallBlock{ID: "call_1", Name: "query", Arguments: map[string]any{"sql": "SELECT count() FROM t"}},
			}},
			{Role: llm.RoleToolResult, Content: []llm.ContentBlock{
				llm.ToolResultBlock{ToolCallID: "call_1", ToolName: "query", Content: `{"rows":[{"c":3}],"rowCount":1}`},
			}},
		},
		Tools: []llm.ToolSpec{{
			Name:        "query",
			Description: "Run SQL",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"sql": map[string]any{"type": "string"}},
				"required":   []string{"sql"},
			},
		}},
		ToolChoice: llm.ToolChoiceAuto,
	}
}

func TestAnthropicClient_Complete(t *testing.T) {
	t.Parallel()

	t.Run("parses tool use", func(t *testing.T) {
		t.Parallel()
		ts, lastBody := capture(t, http.StatusOK, `{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-test",
			"content": [
				{"type": "text", "text": "Let me check."},
				{"type": "tool_use", "id": "toolu_1", "name": "query", "input": {"sql": "SELECT 1"}}
			],
			"stop_reason": "tool_use", "stop_sequence": null,
			"usage": {"input_tokens": 12, "output_tokens": 8}
		}`)
		c, err := llm.NewAnthropicClient("test-key", "claude-test", ts.URL, option.WithMaxRetries(0))
		require.NoError(t, err)

		resp, err := c.Complete(context.Background(), conversation())
		require.NoError(t, err)
		assert.Equal(t, llm.StopToolUse, resp.StopReason)
		assert.Equal(t, "tool_use", resp.RawStopReason)
		assert.Equal(t, "Let me check.", resp.Text())
		assert.Equal(t, llm.Usage{InputTokens: 12, OutputTokens: 8}, resp.Usage)
		require.Len(t, resp.ToolCalls(), 1)
		assert.Equal(t, llm.ToolCallBlock{ID: "toolu_1", Name: "query", Arguments: map[string]any{"sql": "SELECT 1"}}, resp.ToolCalls()[0])

		body := lastBody()
		assert.Equal(t, "claude-test", body["model"])
		tools := body["tools"].([]any)
		require.Len(t, tools, 1)
		assert.Equal(t, "query", tools[0].(map[string]any)["name"])

		messages := body["messages"].([]any)
		require.Len(t, messages, 3)
		assert.Equal(t, "assistant", messages[1].(map[string]any)["role"])
		toolUse := messages[1].(map[string]any)["content"].([]any)[1].(map[string]any)
		assert.Equal(t, "tool_use", toolUse["type"])
		assert.Equal(t, "call_1", toolUse["id"])

		results := messages[2].(map[string]any)
		assert.Equal(t, "user", results["role"])
		toolResult := results["content"].([]any)[0].(map[string]any)
		assert.Equal(t, "tool_result", toolResult["type"])
		assert.Equal(t, "call_1", toolResult["tool_use_id"])
	})

	t.Run("maps stop reasons", func(t *testing.T) {
		t.Parallel()
		for raw, want := range map[string]llm.StopReason{
			"end_turn":      llm.StopEndTurn,
			"stop_sequence": llm.StopEndTurn,
			"max_tokens":    llm.StopMaxTokens,
			"refusal":       llm.StopOther,
		} {
			ts, _ := capture(t, http.StatusOK, `{"id":"m","type":"message","role":"assistant","model":"x",
				"content":[{"type":"text","text":"hi"}],"stop_reason":"`+raw+`","usage":{"input_tokens":1,"output_tokens":1}}`)
			c, err := llm.NewAnthropicClient("k", "x", ts.URL, option.WithMaxRetries(0))
			require.NoError(t, err)
			resp, err := c.Complete(context.Background(), llm.Request{Messages: []llm.Message{llm.NewUserMessage("hi")}})
			require.NoError(t, err, raw)
			assert.Equal(t, want, resp.StopReason, raw)
		}
	})

	t.Run("returns API errors", func(t *testing.T) {
		t.Parallel()
		ts, _ := capture(t, http.StatusUnauthorized, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
		c, err := llm.NewAnthropicClient("bad", "x", ts.URL, option.WithMaxRetries(0))
		require.NoError(t, err)
		_, err = c.Complete(context.Background(), llm.Request{Messages: []llm.Message{llm.NewUserMessage("hi")}})
		assert.Error(t, err)
	})

	t.Run("requires a key", func(t *testing.T) {
		t.Parallel()
		_, err := llm.NewAnthropicClient("", "", "")
		assert.ErrorIs(t, err, llm.ErrMissingCredential)
	})
}
