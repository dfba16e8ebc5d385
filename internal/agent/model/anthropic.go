// Package model provides the ADK model.LLM implementations used by the planner
// agents: Gemini, Anthropic Claude and a scripted offline model.
package model

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// DefaultAnthropicModel is used when no Claude model is named.
const DefaultAnthropicModel = "claude-sonnet-4-5-20250929"

// AnthropicConfig configures the Claude adapter.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int

	// BaseURL overrides the API endpoint. Used by tests.
	BaseURL string
}

// AnthropicLLM implements model.LLM on top of the Anthropic Messages API.
// Streaming is not supported; every call returns one complete response.
type AnthropicLLM struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicLLM creates a Claude adapter.
func NewAnthropicLLM(cfg AnthropicConfig) (*AnthropicLLM, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultAnthropicModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8192
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicLLM{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
	}, nil
}

// Name returns the model identifier.
func (a *AnthropicLLM) Name() string {
	return a.model
}

// GenerateContent implements model.LLM.
func (a *AnthropicLLM) GenerateContent(ctx context.Context, req *model.LLMRequest, _ bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(a.model),
			MaxTokens: a.maxTokens,
			Messages:  toAnthropicMessages(req.Contents),
		}
		if system := systemText(req.Config); system != "" {
			params.System = []anthropic.TextBlockParam{{Text: system}}
		}
		if tools := toAnthropicTools(req.Config); len(tools) > 0 {
			params.Tools = tools
			if functionCallingDisabled(req.Config) {
				none := anthropic.NewToolChoiceNoneParam()
				params.ToolChoice = anthropic.ToolChoiceUnionParam{OfNone: &none}
			}
		}

		resp, err := a.client.Messages.New(ctx, params)
		if err != nil {
			yield(nil, fmt.Errorf("anthropic messages call failed: %w", err))
			return
		}
		yield(fromAnthropicMessage(resp), nil)
	}
}

// systemText joins the system instruction parts.
func systemText(cfg *genai.GenerateContentConfig) string {
	if cfg == nil || cfg.SystemInstruction == nil {
		return ""
	}
	var parts []string
	for _, p := range cfg.SystemInstruction.Parts {
		if p != nil && p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// toAnthropicMessages maps ADK contents onto Claude turns. Function calls become
// tool_use blocks on the assistant side and function responses become
// tool_result blocks on the user side.
func toAnthropicMessages(contents []*genai.Content) []anthropic.MessageParam {
	messages := make([]anthropic.MessageParam, 0, len(contents))
	for _, content := range contents {
		if content == nil {
			continue
		}

		var blocks []anthropic.ContentBlockParamUnion
		for _, part := range content.Parts {
			switch {
			case part == nil || part.Thought:
			case part.FunctionResponse != nil:
				body, err := json.Marshal(part.FunctionResponse.Response)
				if err != nil {
					body = []byte(fmt.Sprintf("%v", part.FunctionResponse.Response))
				}
				_, failed := part.FunctionResponse.Response["error"]
				blocks = append(blocks, anthropic.NewToolResultBlock(part.FunctionResponse.ID, string(body), failed))
			case part.FunctionCall != nil:
				args := part.FunctionCall.Args
				if args == nil {
					args = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(part.FunctionCall.ID, args, part.FunctionCall.Name))
			case part.Text != "":
				blocks = append(blocks, anthropic.NewTextBlock(part.Text))
			}
		}
		if len(blocks) == 0 {
			continue
		}

		if content.Role == "model" {
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))
		} else {
			messages = append(messages, anthropic.NewUserMessage(blocks...))
		}
	}
	return messages
}

func toAnthropicTools(cfg *genai.GenerateContentConfig) []anthropic.ToolUnionParam {
	if cfg == nil {
		return nil
	}
	var tools []anthropic.ToolUnionParam
	for _, t := range cfg.Tools {
		if t == nil {
			continue
		}
		for _, fn := range t.FunctionDeclarations {
			if fn == nil {
				continue
			}
			schema := schemaMap(fn.Parameters, fn.ParametersJsonSchema)
			required, _ := schema["required"].([]string)
			if required == nil {
				if raw, ok := schema["required"].([]any); ok {
					for _, r := range raw {
						if s, ok := r.(string); ok {
							required = append(required, s)
						}
					}
				}
			}
			tools = append(tools, anthropic.ToolUnionParam{
				OfTool: &anthropic.ToolParam{
					Name:        fn.Name,
					Description: anthropic.String(fn.Description),
					InputSchema: anthropic.ToolInputSchemaParam{
						Properties: schema["properties"],
						Required:   required,
					},
				},
			})
		}
	}
	return tools
}

// schemaMap returns a JSON-schema object for a function declaration. Raw JSON
// schemas win over genai schemas; both go through a JSON round trip.
func schemaMap(schema *genai.Schema, jsonSchema any) map[string]any {
	var source any
	switch {
	case jsonSchema != nil:
		source = jsonSchema
	case schema != nil:
		source = schema
	}
	var out map[string]any
	if source != nil {
		if data, err := json.Marshal(source); err == nil {
			_ = json.Unmarshal(data, &out)
		}
	}
	if out == nil {
		out = map[string]any{}
	}
	if jsonSchema == nil && schema != nil {
		// genai.Schema marshals its type in upper case ("OBJECT").
		lowerTypes(out)
	}
	if _, ok := out["type"]; !ok {
		out["type"] = "object"
	}
	if _, ok := out["properties"]; !ok {
		out["properties"] = map[string]any{}
	}
	return out
}

func lowerTypes(m map[string]any) {
	if t, ok := m["type"].(string); ok {
		m["type"] = strings.ToLower(t)
	}
	if props, ok := m["properties"].(map[string]any); ok {
		for _, p := range props {
			if pm, ok := p.(map[string]any); ok {
				lowerTypes(pm)
			}
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		lowerTypes(items)
	}
}

func fromAnthropicMessage(resp *anthropic.Message) *model.LLMResponse {
	parts := make([]*genai.Part, 0, len(resp.Content))
	var text strings.Builder
	for i := range resp.Content {
		block := &resp.Content[i]
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			var args map[string]any
			if len(block.Input) > 0 {
				_ = json.Unmarshal(block.Input, &args)
			}
			parts = append(parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{ID: block.ID, Name: block.Name, Args: args},
			})
		}
	}
	if text.Len() > 0 {
		parts = append([]*genai.Part{{Text: text.String()}}, parts...)
	}

	finish := genai.FinishReasonStop
	if resp.StopReason == anthropic.StopReasonMaxTokens {
		finish = genai.FinishReasonMaxTokens
	}

	// #nosec G115 -- token counts are bounded by the model context window
	usage := &genai.GenerateContentResponseUsageMetadata{
		PromptTokenCount:     int32(resp.Usage.InputTokens),
		CandidatesTokenCount: int32(resp.Usage.OutputTokens),
		TotalTokenCount:      int32(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}

	return &model.LLMResponse{
		Content:       &genai.Content{Role: "model", Parts: parts},
		FinishReason:  finish,
		TurnComplete:  true,
		UsageMetadata: usage,
	}
}

var _ model.LLM = (*AnthropicLLM)(nil)
