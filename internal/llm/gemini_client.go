// In file: internal/llm/gemini_client.go
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// GeminiClient is the client for interacting with Google's Gemini models.
// A fresh GenerativeModel is derived per call because its settings are mutable.
type GeminiClient struct {
	client *genai.Client
	model  string
}

var _ Provider = (*GeminiClient)(nil)

func NewGeminiClient(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, ErrMissingCredential
	}
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Name() string { return ProviderGemini }

// Close releases the underlying gRPC connection.
func (c *GeminiClient) Close() error { return c.client.Close() }

func (c *GeminiClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("gemini request needs at least one message")
	}
	name := req.Model
	if name == "" {
		name = c.model
	}

	model := c.client.GenerativeModel(name)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.Temperature != nil {
		model.SetTemperature(float32(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	} else {
		model.SetMaxOutputTokens(defaultMaxTokens)
	}
	if len(req.Tools) > 0 && req.ToolChoice != ToolChoiceNone {
		model.Tools = toGeminiTools(req.Tools)
		model.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingAuto},
		}
	}

	contents := toGeminiContents(req.Messages)
	last := contents[len(contents)-1]
	chat := model.StartChat()
	chat.History = contents[:len(contents)-1]

	resp, err := chat.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}
	return parseGeminiResponse(name, resp)
}

func toGeminiTools(specs []ToolSpec) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, spec := range specs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  toGeminiSchema(spec.InputSchema),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// toGeminiSchema converts a JSON-schema map to the SDK's schema type.
// Numeric bounds are not representable and are enforced before any call instead.
func toGeminiSchema(schema map[string]any) *genai.Schema {
	out := &genai.Schema{}
	if desc, ok := schema["description"].(string); ok {
		out.Description = desc
	}
	switch schema["type"] {
	case "object":
		out.Type = genai.TypeObject
	case "string":
		out.Type = genai.TypeString
	case "number":
		out.Type = genai.TypeNumber
	case "integer":
		out.Type = genai.TypeInteger
	case "boolean":
		out.Type = genai.TypeBoolean
	case "array":
		out.Type = genai.TypeArray
		if items, ok := schema["items"].(map[string]any); ok {
			out.Items = toGeminiSchema(items)
		} else {
			out.Items = &genai.Schema{Type: genai.TypeString}
		}
	default:
		// Gemini has no "any" type; strings are the most permissive carrier.
		out.Type = genai.TypeString
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if prop, ok := raw.(map[string]any); ok {
				out.Properties[name] = toGeminiSchema(prop)
			}
		}
	}
	out.Required = schemaRequired(schema)
	return out
}

func toGeminiContents(messages []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		content := &genai.Content{Role: "user"}
		if msg.Role == RoleAssistant {
			content.Role = "model"
		}
		for _, block := range msg.Content {
			switch b := block.(type) {
			case TextBlock:
				if b.Text != "" {
					content.Parts = append(content.Parts, genai.Text(b.Text))
				}
			case ToolCallBlock:
				content.Parts = append(content.Parts, genai.FunctionCall{Name: b.Name, Args: b.Arguments})
			case ToolResultBlock:
				content.Parts = append(content.Parts, genai.FunctionResponse{
					Name:     b.ToolName,
					Response: geminiToolResponse(b),
				})
			}
		}
		if len(content.Parts) > 0 {
			contents = append(contents, content)
		}
	}
	if len(contents) == 0 {
		contents = append(contents, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text("")}})
	}
	return contents
}

func geminiToolResponse(b ToolResultBlock) map[string]any {
	var payload any
	if err := json.Unmarshal([]byte(b.Content), &payload); err != nil {
		payload = b.Content
	}
	return map[string]any{"content": payload, "is_error": b.IsError}
}

func parseGeminiResponse(model string, resp *genai.GenerateContentResponse) (*Response, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("no content returned from Gemini")
	}
	candidate := resp.Candidates[0]
	out := &Response{Model: model, RawStopReason: candidate.FinishReason.String()}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			InputTokens:  int64(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
		}
	}

	hasCalls := false
	for _, part := range candidate.Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			out.Content = append(out.Content, TextBlock{Text: string(v)})
		case genai.FunctionCall:
			hasCalls = true
			args := v.Args
			if args == nil {
				args = map[string]any{}
			}
			// Gemini does not issue call identifiers.
			out.Content = append(out.Content, ToolCallBlock{ID: "call_" + uuid.NewString(), Name: v.Name, Arguments: args})
		}
	}

	switch {
	case hasCalls:
		out.StopReason = StopToolUse
	case candidate.FinishReason == genai.FinishReasonStop:
		out.StopReason = StopEndTurn
	case candidate.FinishReason == genai.FinishReasonMaxTokens:
		out.StopReason = StopMaxTokens
	default:
		out.StopReason = StopOther
	}
	return out, nil
}
