// In file: internal/llm/helpers.go

// Package llm contains the provider-neutral conversation model, the Anthropic,
// OpenAI, Mistral and Gemini backends, and the Redis-backed model profiler.
package llm

import (
	"strings"
)

// This file contains stateless utility functions shared by the provider clients.

// schemaRequired extracts the "required" list from a JSON-schema map.
// It accepts both []string (built in-process) and []any (decoded from JSON).
func schemaRequired(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, v := range req {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// joinText concatenates the text blocks of a message with no separator.
func joinText(blocks []ContentBlock) string {
	var sb strings.Builder
	for _, block := range blocks {
		if tb, ok := block.(TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	return sb.String()
}
