// In file: internal/agent/events.go
package agent

import "time"

// EventType discriminates run events.
type EventType string

const (
	EventText       EventType = "text"
	EventToolCall   EventType = "tool-call"
	EventToolResult EventType = "tool-result"
	EventToolTiming EventType = "tool-timing"
	EventIteration  EventType = "iteration"
)

// Event is emitted synchronously on the run's goroutine as the loop progresses.
// Only the fields relevant to Type are set.
type Event struct {
	Type EventType
	Step int

	Text string

	ToolCallID string
	ToolName   string
	Input      string
	Arguments  map[string]any
	Success    bool
	RowCount   int
	Error      string
	Duration   time.Duration

	Record *IterationRecord
}
