// In file: internal/llm/openai_client.go
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIClient drives the Chat Completions API through the official SDK.
// It also serves OpenAI-compatible backends such as Mistral.
type OpenAIClient struct {
	client openai.Client
	model  string
	name   string
}

var _ Provider = (*OpenAIClient)(nil)

func NewOpenAIClient(apiKey, model, baseURL string, opts ...option.RequestOption) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, ErrMissingCredential
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(maxRetries),
		option.WithRequestTimeout(defaultTimeout),
	}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)
	return &OpenAIClient{client: openai.NewClient(reqOpts...), model: model, name: ProviderOpenAI}, nil
}

// NewMistralClient talks to Mistral's OpenAI-compatible chat endpoint.
func NewMistralClient(apiKey, model, baseURL string, opts ...option.RequestOption) (*OpenAIClient, error) {
	if model == "" {
		model = defaultMistralModel
	}
	if baseURL == "" {
		baseURL = mistralBaseURL
	}
	c, err := NewOpenAIClient(apiKey, model, baseURL, opts...)
	if err != nil {
		return nil, err
	}
	c.name = ProviderMistral
	return c, nil
}

func (c *OpenAIClient) Name() string { return c.name }

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: toOpenAIMessages(req.System, req.Messages),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	// Tool choice defaults to "auto" whenever tools are present.
	if len(req.Tools) > 0 && req.ToolChoice != ToolChoiceNone {
		params.Tools = toOpenAITools(req.Tools)
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai API request failed: %w", err)
	}
	return parseOpenAICompletion(completion)
}

func toOpenAIMessages(system string, messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}
	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			out = append(out, openai.UserMessage(joinText(msg.Content)))
		case RoleAssistant:
			out = append(out, toOpenAIAssistant(msg))
		case RoleToolResult:
			// One tool message per result, in call order.
			for _, block := range msg.Content {
				if tr, ok := block.(ToolResultBlock); ok {
					out = append(out, openai.ToolMessage(tr.Content, tr.ToolCallID))
				}
			}
		}
	}
	return out
}

func toOpenAIAssistant(msg Message) openai.ChatCompletionMessageParamUnion {
	assistant := openai.ChatCompletionAssistantMessageParam{}
	if text := joinText(msg.Content); text != "" {
		assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(text)}
	}
	for _, block := range msg.Content {
		tc, ok := block.(ToolCallBlock)
		if !ok {
			continue
		}
		args, err := json.Marshal(tc.Arguments)
		if err != nil || tc.Arguments == nil {
			args = []byte("{}")
		}
		assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.Name,
					Arguments: string(args),
				},
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

func toOpenAITools(specs []ToolSpec) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        spec.Name,
			Description: openai.String(spec.Description),
			Parameters:  openai.FunctionParameters(spec.InputSchema),
		}))
	}
	return out
}

func parseOpenAICompletion(completion *openai.ChatCompletion) (*Response, error) {
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("openai response contained no choices")
	}
	choice := completion.Choices[0]
	resp := &Response{
		Model:         completion.Model,
		RawStopReason: choice.FinishReason,
		Usage: Usage{
			InputTokens:  completion.Usage.PromptTokens,
			OutputTokens: completion.Usage.CompletionTokens,
		},
	}
	if choice.Message.Content != "" {
		resp.Content = append(resp.Content, TextBlock{Text: choice.Message.Content})
	}
	for _, call := range choice.Message.ToolCalls {
		args := map[string]any{}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				log.Printf("WARNING: tool call %s carried malformed arguments: %v", call.ID, err)
				args = map[string]any{}
			}
		}
		resp.Content = append(resp.Content, ToolCallBlock{ID: call.ID, Name: call.Function.Name, Arguments: args})
	}

	switch choice.FinishReason {
	case "stop":
		resp.StopReason = StopEndTurn
	case "tool_calls", "function_call":
		resp.StopReason = StopToolUse
	case "length":
		resp.StopReason = StopMaxTokens
	default:
		resp.StopReason = StopOther
	}
	return resp, nil
}
