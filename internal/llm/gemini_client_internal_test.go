package llm

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToGeminiSchema(t *testing.T) {
	t.Parallel()
	s := toGeminiSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sql":   map[string]any{"type": "string", "description": "statement"},
			"limit": map[string]any{"type": "integer"},
			"tags":  map[string]any{"type": "array"},
			"extra": map[string]any{},
		},
		"required": []any{"sql"},
	})
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"sql"}, s.Required)
	require.Len(t, s.Properties, 4)
	assert.Equal(t, genai.TypeString, s.Properties["sql"].Type)
	assert.Equal(t, "statement", s.Properties["sql"].Description)
	assert.Equal(t, genai.TypeInteger, s.Properties["limit"].Type)
	assert.Equal(t, genai.TypeArray, s.Properties["tags"].Type)
	require.NotNil(t, s.Properties["tags"].Items)
	assert.Equal(t, genai.TypeString, s.Properties["extra"].Type)
}

func TestToGeminiContents(t *testing.T) {
	t.Parallel()
	contents := toGeminiContents([]Message{
		NewUserMessage("How many?"),
		{Role: RoleAssistant, Content: []ContentBlock{ToolCallBlock{ID: "c1", Name: "query", Arguments: map[string]any{"sql": "SELECT 1"}}}},
		{Role: RoleToolResult, Content: []ContentBlock{ToolResultBlock{ToolCallID: "c1", ToolName: "query", Content: `{"rows":[]}`}}},
	})
	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, genai.FunctionCall{Name: "query", Args: map[string]any{"sql": "SELECT 1"}}, contents[1].Parts[0])

	resp, ok := contents[2].Parts[0].(genai.FunctionResponse)
	require.True(t, ok)
	assert.Equal(t, "query", resp.Name)
	assert.Equal(t, map[string]any{"rows": []any{}}, resp.Response["content"])
	assert.Equal(t, false, resp.Response["is_error"])
}

func TestParseGeminiResponse(t *testing.T) {
	t.Parallel()

	t.Run("function calls mean tool use", func(t *testing.T) {
		t.Parallel()
		resp, err := parseGeminiResponse("gemini-test", &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				FinishReason: genai.FinishReasonStop,
				Content: &genai.Content{Parts: []genai.Part{
					genai.Text("Checking."),
					genai.FunctionCall{Name: "query", Args: map[string]any{"sql": "SELECT 1"}},
				}},
			}},
			UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 5, CandidatesTokenCount: 2},
		})
		require.NoError(t, err)
		assert.Equal(t, StopToolUse, resp.StopReason)
		assert.Equal(t, "Checking.", resp.Text())
		assert.Equal(t, Usage{InputTokens: 5, OutputTokens: 2}, resp.Usage)
		calls := resp.ToolCalls()
		require.Len(t, calls, 1)
		assert.NotEmpty(t, calls[0].ID)
		assert.Equal(t, "query", calls[0].Name)
	})

	t.Run("maps finish reasons", func(t *testing.T) {
		t.Parallel()
		for reason, want := range map[genai.FinishReason]StopReason{
			genai.FinishReasonStop:      StopEndTurn,
			genai.FinishReasonMaxTokens: StopMaxTokens,
			genai.FinishReasonSafety:    StopOther,
		} {
			resp, err := parseGeminiResponse("m", &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{FinishReason: reason, Content: &genai.Content{Parts: []genai.Part{genai.Text("x")}}}},
			})
			require.NoError(t, err)
			assert.Equal(t, want, resp.StopReason)
		}
	})

	t.Run("rejects empty candidates", func(t *testing.T) {
		t.Parallel()
		_, err := parseGeminiResponse("m", &genai.GenerateContentResponse{})
		assert.Error(t, err)
	})
}
