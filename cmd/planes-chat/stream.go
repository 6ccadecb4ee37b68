// In file: cmd/planes-chat/stream.go
package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/514-labs/planes/internal/agent"
	"github.com/514-labs/planes/internal/api"
	"github.com/514-labs/planes/internal/llm"
)

// handleChatStream runs the conversation and relays it as server-sent events:
// "text", "tool-call", "tool-result", "tool-timing" and "iteration" while the
// loop runs, then a single "done" (the full result) or "error". A run that
// fails before its first event gets a plain JSON 500 instead of a stream.
func (h *ChatHandler) handleChatStream(c *gin.Context, req api.ChatRequest) {
	history, err := toHistory(req.Messages)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: invalidBodyError, Details: err.Error()})
		return
	}

	startTime := time.Now()
	runID := h.newRunID()
	log.Printf("--- New Chat Stream (Run: %s, Turns: %d) ---", runID, len(history))

	c.Header("X-Run-Id", runID)

	streaming := false
	send := func(event string, payload any) {
		if !streaming {
			c.Header("Content-Type", "text/event-stream")
			c.Header("Cache-Control", "no-cache")
			c.Header("Connection", "keep-alive")
			c.Status(http.StatusOK)
			streaming = true
		}
		c.SSEvent(event, payload)
		c.Writer.Flush()
	}

	onEvent := func(e agent.Event) {
		switch e.Type {
		case agent.EventText:
			send("text", gin.H{"stepNumber": e.Step, "text": e.Text})
		case agent.EventToolCall:
			send("tool-call", gin.H{"toolCallId": e.ToolCallID, "toolName": e.ToolName, "stepNumber": e.Step, "input": e.Input})
		case agent.EventToolResult:
			send("tool-result", gin.H{"toolCallId": e.ToolCallID, "toolName": e.ToolName, "stepNumber": e.Step, "success": e.Success, "rowCount": e.RowCount, "error": e.Error})
		case agent.EventToolTiming:
			send("tool-timing", api.ToolTiming{
				ToolCallID: e.ToolCallID,
				Duration:   e.Duration.Milliseconds(),
				StepNumber: e.Step,
				ToolName:   e.ToolName,
			})
		case agent.EventIteration:
			send("iteration", e.Record)
		}
	}

	res, err := h.runner.Run(c.Request.Context(), history,
		agent.WithRunID(runID),
		agent.WithEventHandler(onEvent),
		agent.WithMaxIterations(h.config.StreamMaxIterations),
	)
	if err != nil {
		log.Printf("❌ [%s] Chat stream failed: %v", runID, err)
		failure := api.ErrorResponse{Error: "Failed to process chat request", Details: err.Error()}
		if !streaming {
			c.JSON(http.StatusInternalServerError, failure)
			return
		}
		send("error", failure)
		return
	}

	resp := api.NewChatResponse(res, runID)
	resp.LatencyMS = time.Since(startTime).Milliseconds()
	resp.CacheStatus = "BYPASS"
	send("done", resp)
}

// toHistory validates client-supplied turns and converts them to conversation messages.
func toHistory(turns []api.Message) ([]llm.Message, error) {
	if len(turns) == 0 {
		return nil, errors.New("messages must be a non-empty list of {role, content} turns")
	}
	history := make([]llm.Message, 0, len(turns))
	for i, turn := range turns {
		if strings.TrimSpace(turn.Content) == "" {
			return nil, fmt.Errorf("messages[%d].content must be a non-empty string", i)
		}
		switch llm.Role(turn.Role) {
		case llm.RoleUser:
			history = append(history, llm.NewUserMessage(turn.Content))
		case llm.RoleAssistant:
			history = append(history, llm.NewAssistantText(turn.Content))
		default:
			return nil, fmt.Errorf("messages[%d].role must be \"user\" or \"assistant\", got %q", i, turn.Role)
		}
	}
	if turns[len(turns)-1].Role != string(llm.RoleUser) {
		return nil, errors.New("messages must end with a user turn")
	}
	return history, nil
}
