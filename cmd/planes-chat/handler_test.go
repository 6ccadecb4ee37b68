package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/514-labs/planes/internal/agent"
	"github.com/514-labs/planes/internal/api"
	"github.com/514-labs/planes/internal/config"
	"github.com/514-labs/planes/internal/llm"
	"github.com/514-labs/planes/internal/mock"
	"github.com/514-labs/planes/internal/tools"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Port:                "8080",
		ToolEndpoint:        "http://tools.test/mcp",
		Provider:            llm.ProviderConfig{Provider: llm.ProviderAnthropic, Model: "claude-test"},
		MaxIterations:       agent.DefaultMaxIterations,
		StreamMaxIterations: agent.DefaultStreamMaxIterations,
		ToolMode:            agent.ToolModeDynamic,
		QueryTool:           tools.DefaultQueryTool,
	}
}

// newTestRouter wires handlers around the given doubles. A nil cache or
// profiles leaves that dependency unset, as when Redis is absent.
func newTestRouter(runner ChatRunner, cache ResponseCache, profiles ProfileReader, queries QueryRunner) *gin.Engine {
	chat := NewChatHandler(runner, cache, profiles, testConfig(), true)
	chat.newRunID = func() string { return "run-1" }
	if queries == nil {
		queries = &mock.ToolGateway{}
	}
	return setupRouter(chat, NewConsumptionHandler(queries, ""))
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func neverRun(t *testing.T) *mock.ChatRunner {
	return &mock.ChatRunner{RunFn: func(ctx context.Context, history []llm.Message, opts ...agent.RunOption) (*agent.Result, error) {
		t.Error("the orchestrator must not be invoked")
		return nil, errors.New("unexpected")
	}}
}

func TestHandleChat(t *testing.T) {
	t.Parallel()

	t.Run("rejects an empty message without running", func(t *testing.T) {
		t.Parallel()
		for _, body := range []string{`{"message":""}`, `{"message":"   "}`, `{}`, `{"message":42}`, `not json`} {
			w := do(t, newTestRouter(neverRun(t), nil, nil, nil), http.MethodPost, "/chat", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, body)

			var resp api.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), body)
			assert.Equal(t, "Invalid request body", resp.Error)
			assert.True(t, strings.HasPrefix(resp.Details, "message must be"), resp.Details)
		}
	})

	t.Run("returns the run result", func(t *testing.T) {
		t.Parallel()
		runner := &mock.ChatRunner{RunFn: func(ctx context.Context, history []llm.Message, opts ...agent.RunOption) (*agent.Result, error) {
			require.Len(t, history, 1)
			assert.Equal(t, llm.NewUserMessage("How many aircraft are being tracked?"), history[0])
			return &agent.Result{
				Response: "Counting. There are 1054.",
				SQL:      "SELECT COUNT(*) AS count FROM t",
				Data:     []tools.Row{{"count": 1054.0}},
				Iterations: []agent.IterationRecord{
					{Step: 1, Text: "Counting. ", SQL: "SELECT COUNT(*) AS count FROM t", Data: []tools.Row{{"count": 1054.0}}},
					{Step: 2, Text: "There are 1054."},
				},
				Steps: 2,
				Usage: llm.Usage{InputTokens: 30, OutputTokens: 9},
			}, nil
		}}
		w := do(t, newTestRouter(runner, nil, nil, nil), http.MethodPost, "/chat", `{"message":"How many aircraft are being tracked?"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "run-1", w.Header().Get("X-Run-Id"))

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Counting. There are 1054.", body["response"])
		assert.Equal(t, "SELECT COUNT(*) AS count FROM t", body["sql"])
		assert.Equal(t, []any{map[string]any{"count": 1054.0}}, body["data"])
		assert.Equal(t, false, body["truncated"])
		assert.Equal(t, "run-1", body["runId"])
		assert.Equal(t, "MISS", body["cacheStatus"])

		iterations := body["iterations"].([]any)
		require.Len(t, iterations, 2)
		assert.Equal(t, map[string]any{"step": 2.0, "text": "There are 1054."}, iterations[1])
	})

	t.Run("serialises empty results as arrays", func(t *testing.T) {
		t.Parallel()
		runner := &mock.ChatRunner{RunFn: func(ctx context.Context, history []llm.Message, opts ...agent.RunOption) (*agent.Result, error) {
			return &agent.Result{Response: "Hello."}, nil
		}}
		w := do(t, newTestRouter(runner, nil, nil, nil), http.MethodPost, "/chat", `{"message":"hi"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"data":[]`)
		assert.Contains(t, w.Body.String(), `"iterations":[]`)
		assert.Contains(t, w.Body.String(), `"sql":""`)
	})

	t.Run("reports run failures as 500", func(t *testing.T) {
		t.Parallel()
		runner := &mock.ChatRunner{RunFn: func(ctx context.Context, history []llm.Message, opts ...agent.RunOption) (*agent.Result, error) {
			return nil, llm.ErrMissingCredential
		}}
		w := do(t, newTestRouter(runner, nil, nil, nil), http.MethodPost, "/chat", `{"message":"hi"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var resp api.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Error)
		assert.Contains(t, resp.Details, llm.ErrMissingCredential.Error())
	})
}

func TestHandleChat_Cache(t *testing.T) {
	t.Parallel()

	t.Run("serves hits without running", func(t *testing.T) {
		t.Parallel()
		cached, err := json.Marshal(api.ChatResponse{Response: "cached answer", Data: []tools.Row{}, Iterations: []agent.IterationRecord{}, RunID: "old"})
		require.NoError(t, err)
		c := &mock.ResponseCache{
			CheckFn: func(ctx context.Context, key string) (string, bool) {
				assert.True(t, strings.HasPrefix(key, "chatcache:"))
				return string(cached), true
			},
		}
		w := do(t, newTestRouter(neverRun(t), c, nil, nil), http.MethodPost, "/chat", `{"message":"hi"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp api.ChatResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "cached answer", resp.Response)
		assert.Equal(t, "HIT", resp.CacheStatus)
		assert.Equal(t, "run-1", resp.RunID)
		assert.Equal(t, "run-1", w.Header().Get("X-Run-Id"))
	})

	t.Run("stores complete answers only", func(t *testing.T) {
		t.Parallel()
		for _, truncated := range []bool{false, true} {
			var stored []string
			c := &mock.ResponseCache{
				CheckFn: func(ctx context.Context, key string) (string, bool) { return "", false },
				StoreFn: func(ctx context.Context, key, value string) { stored = append(stored, value) },
			}
			runner := &mock.ChatRunner{RunFn: func(ctx context.Context, history []llm.Message, opts ...agent.RunOption) (*agent.Result, error) {
				return &agent.Result{Response: "answer", Truncated: truncated}, nil
			}}
			w := do(t, newTestRouter(runner, c, nil, nil), http.MethodPost, "/chat", `{"message":"hi"}`)
			require.Equal(t, http.StatusOK, w.Code)
			if truncated {
				assert.Empty(t, stored)
				continue
			}
			require.Len(t, stored, 1)
			assert.Contains(t, stored[0], `"response":"answer"`)
		}
	})
}

func TestHandleChat_Stream(t *testing.T) {
	t.Parallel()

	t.Run("relays run events", func(t *testing.T) {
		t.Parallel()
		var calls int
		provider := &mock.Provider{CompleteFn: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
			calls++
			if calls == 1 {
				assert.Len(t, req.Messages, 3)
				return &llm.Response{
					Content:    []llm.ContentBlock{llm.TextBlock{Text: "Checking. "}, llm.ToolCallBlock{ID: "call_1", Name: "query", Arguments: map[string]any{"sql": "SELECT 1"}}},
					StopReason: llm.StopToolUse,
				}, nil
			}
			return &llm.Response{Content: []llm.ContentBlock{llm.TextBlock{Text: "Done."}}, StopReason: llm.StopEndTurn}, nil
		}}
		gateway := &mock.ToolGateway{
			ListToolsFn: func(ctx context.Context) []mcp.Tool {
				return []mcp.Tool{{Name: "query", InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]any{"sql": map[string]any{"type": "string"}}}}}
			},
			CallToolFn: func(ctx context.Context, name string, args map[string]any) (tools.Result, error) {
				return tools.Result{Rows: []tools.Row{{"one": 1.0}}}, nil
			},
		}
		runner := agent.NewOrchestrator(provider, gateway, agent.Config{})

		w := do(t, newTestRouter(runner, nil, nil, nil), http.MethodPost, "/chat", `{"messages":[
			{"role":"user","content":"Hi"},
			{"role":"assistant","content":"Hello, ask me about aircraft."},
			{"role":"user","content":"Run a query"}
		]}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

		out := w.Body.String()
		for _, event := range []string{"text", "tool-call", "tool-result", "tool-timing", "iteration", "done"} {
			assert.Contains(t, out, "event:"+event+"\n", event)
		}
		assert.NotContains(t, out, "event:error")
		assert.Less(t, strings.Index(out, "event:tool-timing"), strings.Index(out, "event:done"))
		assert.Contains(t, out, `"toolCallId":"call_1"`)
		assert.Contains(t, out, `"toolName":"query"`)
		assert.Contains(t, out, `"stepNumber":1`)
		assert.Contains(t, out, `"cacheStatus":"BYPASS"`)
	})

	t.Run("reports failures before any output as 500", func(t *testing.T) {
		t.Parallel()
		runner := &mock.ChatRunner{RunFn: func(ctx context.Context, history []llm.Message, opts ...agent.RunOption) (*agent.Result, error) {
			return nil, llm.ErrMissingCredential
		}}
		w := do(t, newTestRouter(runner, nil, nil, nil), http.MethodPost, "/chat", `{"messages":[{"role":"user","content":"Hi"}]}`)
		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotEqual(t, "text/event-stream", w.Header().Get("Content-Type"))
		assert.Equal(t, "run-1", w.Header().Get("X-Run-Id"))

		var resp api.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Failed to process chat request", resp.Error)
		assert.Contains(t, resp.Details, llm.ErrMissingCredential.Error())
	})

	t.Run("reports failures after streaming began as an error event", func(t *testing.T) {
		t.Parallel()
		var calls int
		provider := &mock.Provider{CompleteFn: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
			calls++
			if calls == 1 {
				return &llm.Response{
					Content:    []llm.ContentBlock{llm.TextBlock{Text: "Checking. "}, llm.ToolCallBlock{ID: "call_1", Name: "query", Arguments: map[string]any{"sql": "SELECT 1"}}},
					StopReason: llm.StopToolUse,
				}, nil
			}
			return nil, errors.New("model unavailable")
		}}
		gateway := &mock.ToolGateway{
			CallToolFn: func(ctx context.Context, name string, args map[string]any) (tools.Result, error) {
				return tools.Result{Rows: []tools.Row{}}, nil
			},
		}
		runner := agent.NewOrchestrator(provider, gateway, agent.Config{ToolMode: agent.ToolModeStatic})

		w := do(t, newTestRouter(runner, nil, nil, nil), http.MethodPost, "/chat", `{"messages":[{"role":"user","content":"Hi"}]}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

		out := w.Body.String()
		assert.Contains(t, out, "event:text\n")
		assert.Contains(t, out, "event:error\n")
		assert.Contains(t, out, "model unavailable")
		assert.NotContains(t, out, "event:done")
		assert.Less(t, strings.Index(out, "event:text"), strings.Index(out, "event:error"))
	})

	t.Run("validates turns before streaming", func(t *testing.T) {
		t.Parallel()
		for _, body := range []string{
			`{"messages":[]}`,
			`{"messages":[{"role":"user","content":""}]}`,
			`{"messages":[{"role":"system","content":"x"}]}`,
			`{"messages":[{"role":"user","content":"a"},{"role":"assistant","content":"b"}]}`,
		} {
			w := do(t, newTestRouter(neverRun(t), nil, nil, nil), http.MethodPost, "/chat", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, body)
			assert.Contains(t, w.Body.String(), "Invalid request body", body)
		}
	})
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()
	w := do(t, newTestRouter(neverRun(t), nil, nil, nil), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "http://tools.test/mcp", resp.ToolEndpoint)
	assert.True(t, resp.ModelKeyConfigured)
	assert.Equal(t, "anthropic", resp.ModelProvider)
	assert.Equal(t, "dynamic", resp.ToolMode)
}

func TestHandleStats(t *testing.T) {
	t.Parallel()

	t.Run("unavailable without redis", func(t *testing.T) {
		t.Parallel()
		w := do(t, newTestRouter(neverRun(t), nil, nil, nil), http.MethodGet, "/stats", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("returns the model profile", func(t *testing.T) {
		t.Parallel()
		profiles := &mock.ProfileReader{GetProfileFn: func(ctx context.Context, modelID string) (*llm.ModelProfile, error) {
			return &llm.ModelProfile{ModelID: modelID, Status: "online", TotalSuccesses: 3}, nil
		}}
		w := do(t, newTestRouter(neverRun(t), nil, profiles, nil), http.MethodGet, "/stats", "")
		require.Equal(t, http.StatusOK, w.Code)

		var profile llm.ModelProfile
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
		assert.Equal(t, "claude-test", profile.ModelID)
		assert.Equal(t, int64(3), profile.TotalSuccesses)
	})
}
