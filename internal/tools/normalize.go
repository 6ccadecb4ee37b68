// In file: internal/tools/normalize.go
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// DefaultRowLimit caps the rows surfaced from a single tool call.
const DefaultRowLimit = 100

// Row is one result row keyed by column name.
type Row = map[string]any

// Result is a normalized, successful tool result. Either Rows is non-nil
// (the payload was row-shaped) or Text holds the raw payload verbatim.
type Result struct {
	Rows []Row
	Text string
	// Truncated is set when the endpoint returned more than the row limit.
	Truncated bool
}

// HasRows reports whether the payload was row-shaped.
func (r Result) HasRows() bool { return r.Rows != nil }

// Content renders the result for the model.
func (r Result) Content() string {
	if !r.HasRows() {
		return r.Text
	}
	payload := map[string]any{"rows": r.Rows, "rowCount": len(r.Rows)}
	if r.Truncated {
		payload["truncated"] = true
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(b)
}

// Normalize extracts rows from a tools/call result. It tries structured content
// first, then JSON embedded in the first text block, then falls back to the raw
// text. It is a pure function of its inputs.
func Normalize(res *mcp.CallToolResult, limit int) (Result, error) {
	if res == nil {
		return Result{}, errors.New("empty tool result")
	}
	text := firstText(res.Content)
	if res.IsError {
		if text == "" {
			text = "unknown error"
		}
		return Result{}, fmt.Errorf("%w: %s", ErrToolReported, text)
	}
	if limit <= 0 {
		limit = DefaultRowLimit
	}

	if rows, ok := rowsFrom(res.StructuredContent); ok {
		return capRows(rows, limit), nil
	}
	if text != "" {
		var decoded any
		if err := json.Unmarshal([]byte(text), &decoded); err == nil {
			if rows, ok := rowsFrom(decoded); ok {
				return capRows(rows, limit), nil
			}
		}
		return Result{Text: text}, nil
	}
	if res.StructuredContent != nil {
		b, err := json.Marshal(res.StructuredContent)
		if err == nil {
			return Result{Text: string(b)}, nil
		}
	}
	return Result{Text: ""}, nil
}

// rowsFrom reads the "rows" field of a decoded payload.
func rowsFrom(payload any) ([]Row, bool) {
	if payload == nil {
		return nil, false
	}
	obj, ok := payload.(map[string]any)
	if !ok {
		// Typed values (e.g. from an in-process server) are normalised through JSON.
		b, err := json.Marshal(payload)
		if err != nil || json.Unmarshal(b, &obj) != nil {
			return nil, false
		}
	}
	list, ok := obj["rows"].([]any)
	if !ok {
		return nil, false
	}
	rows := make([]Row, 0, len(list))
	for _, item := range list {
		if row, ok := item.(map[string]any); ok {
			rows = append(rows, row)
		} else {
			rows = append(rows, Row{"value": item})
		}
	}
	return rows, true
}

func capRows(rows []Row, limit int) Result {
	if len(rows) > limit {
		return Result{Rows: rows[:limit:limit], Truncated: true}
	}
	return Result{Rows: rows}
}

func firstText(content []mcp.Content) string {
	if len(content) == 0 {
		return ""
	}
	switch c := content[0].(type) {
	case mcp.TextContent:
		return strings.TrimSpace(c.Text)
	case *mcp.TextContent:
		return strings.TrimSpace(c.Text)
	}
	return ""
}
