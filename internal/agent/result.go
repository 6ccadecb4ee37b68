// In file: internal/agent/result.go
package agent

import (
	"encoding/json"
	"slices"

	"github.com/514-labs/planes/internal/llm"
	"github.com/514-labs/planes/internal/tools"
)

// IterationRecord is the observable output of one model round-trip.
type IterationRecord struct {
	Step int         `json:"step"`
	Text string      `json:"text"`
	SQL  string      `json:"sql,omitempty"`
	Data []tools.Row `json:"data,omitempty"`
}

// Result is the aggregate of a finished run. Values are folded step by step
// and never mutated once returned.
type Result struct {
	// Response is every text block of every step, concatenated without separators.
	Response string `json:"response"`
	// SQL and Data come from the most recent successful tool call.
	SQL        string            `json:"sql"`
	Data       []tools.Row       `json:"data"`
	Iterations []IterationRecord `json:"iterations"`
	// Truncated is set when the iteration budget ran out before the model finished.
	Truncated bool      `json:"truncated"`
	Steps     int       `json:"steps"`
	Usage     llm.Usage `json:"usage"`
}

// stepDelta is what a single step contributes to the Result.
type stepDelta struct {
	step int
	text string

	// sql and rows belong to this iteration's record.
	sql  string
	rows []tools.Row

	// succeeded is set once any call in the step returned a result; lastSQL and
	// lastRows then replace the run's most recent values.
	succeeded bool
	lastSQL   string
	lastRows  []tools.Row

	usage llm.Usage
}

// record builds the step's IterationRecord. A step with no text, no tool input
// and no rows produces nothing.
func (d stepDelta) record() (IterationRecord, bool) {
	if d.text == "" && d.sql == "" && len(d.rows) == 0 {
		return IterationRecord{}, false
	}
	return IterationRecord{Step: d.step, Text: d.text, SQL: d.sql, Data: d.rows}, true
}

// fold returns r with d applied. The receiver's slices are never written through.
func (r Result) fold(d stepDelta) (Result, *IterationRecord) {
	r.Response += d.text
	r.Steps = d.step
	r.Usage.Add(d.usage)
	if d.succeeded {
		r.SQL = d.lastSQL
		r.Data = d.lastRows
	}
	rec, ok := d.record()
	if !ok {
		return r, nil
	}
	r.Iterations = append(slices.Clip(r.Iterations), rec)
	return r, &rec
}

// toolInput is the string recorded as a call's SQL: its "sql" argument, else its
// "query" argument, else the JSON encoding of all arguments.
func toolInput(args map[string]any) string {
	for _, key := range []string{"sql", "query"} {
		if s, ok := args[key].(string); ok && s != "" {
			return s
		}
	}
	if len(args) == 0 {
		return ""
	}
	b, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	return string(b)
}
