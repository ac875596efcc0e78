package providers

import (
	"context"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"

	"github.com/ermiller24/executive-layer/internal/llm"
)

// toSchemaMessages converts messages to langchaingo MessageContent. Tool
// calls on assistant messages and tool results are carried through so the
// model sees the full tool exchange.
func toSchemaMessages(messages []llm.Message) []llms.MessageContent {
	result := make([]llms.MessageContent, 0, len(messages))

	for _, msg := range messages {
		var msgContent llms.MessageContent

		switch msg.Role {
		case llm.RoleSystem:
			msgContent = llms.MessageContent{
				Role:  llms.ChatMessageTypeSystem,
				Parts: []llms.ContentPart{llms.TextPart(msg.Content)},
			}
		case llm.RoleAssistant:
			parts := make([]llms.ContentPart, 0, 1+len(msg.ToolCalls))
			if msg.Content != "" {
				parts = append(parts, llms.TextPart(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				parts = append(parts, llms.ToolCall{
					ID:   tc.ID,
					Type: tc.Type,
					FunctionCall: &llms.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			msgContent = llms.MessageContent{
				Role:  llms.ChatMessageTypeAI,
				Parts: parts,
			}
		case llm.RoleTool:
			msgContent = llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: msg.ToolCallID,
					Name:       msg.Name,
					Content:    msg.Content,
				}},
			}
		default:
			msgContent = llms.MessageContent{
				Role:  llms.ChatMessageTypeHuman,
				Parts: []llms.ContentPart{llms.TextPart(msg.Content)},
			}
		}

		result = append(result, msgContent)
	}

	return result
}

// fromLangchainResponse converts a langchaingo response to a CompletionResponse.
func fromLangchainResponse(resp *llms.ContentResponse, model string) *llm.CompletionResponse {
	if resp == nil {
		return &llm.CompletionResponse{
			Model: model,
			ID:    uuid.New().String(),
		}
	}

	var content string
	var toolCalls []llm.ToolCall
	finishReason := llm.FinishReasonStop

	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		content = choice.Content

		if len(choice.ToolCalls) > 0 {
			toolCalls = make([]llm.ToolCall, 0, len(choice.ToolCalls))
			for _, tc := range choice.ToolCalls {
				var name, arguments string
				if tc.FunctionCall != nil {
					name = tc.FunctionCall.Name
					arguments = tc.FunctionCall.Arguments
				}
				toolCalls = append(toolCalls, llm.ToolCall{
					ID:        tc.ID,
					Type:      tc.Type,
					Name:      name,
					Arguments: arguments,
				})
			}
		}

		switch choice.StopReason {
		case "length", "max_tokens":
			finishReason = llm.FinishReasonLength
		case "tool_calls", "function_call", "tool_use":
			finishReason = llm.FinishReasonToolCalls
		case "content_filter":
			finishReason = llm.FinishReasonContentFilter
		}

		if len(toolCalls) > 0 && finishReason == llm.FinishReasonStop {
			finishReason = llm.FinishReasonToolCalls
		}
	}

	return &llm.CompletionResponse{
		ID:    uuid.New().String(),
		Model: model,
		Message: llm.Message{
			Role:      llm.RoleAssistant,
			Content:   content,
			ToolCalls: toolCalls,
		},
		FinishReason: finishReason,
	}
}

// buildCallOptions converts a CompletionRequest to langchaingo call options.
func buildCallOptions(req llm.CompletionRequest) []llms.CallOption {
	callOpts := make([]llms.CallOption, 0)

	if req.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(req.Temperature))
	}
	if req.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.TopP > 0 {
		callOpts = append(callOpts, llms.WithTopP(req.TopP))
	}
	if req.PresencePenalty != 0 {
		callOpts = append(callOpts, llms.WithPresencePenalty(req.PresencePenalty))
	}
	if req.FrequencyPenalty != 0 {
		callOpts = append(callOpts, llms.WithFrequencyPenalty(req.FrequencyPenalty))
	}
	if len(req.StopSequences) > 0 {
		callOpts = append(callOpts, llms.WithStopWords(req.StopSequences))
	}
	if req.Model != "" {
		callOpts = append(callOpts, llms.WithModel(req.Model))
	}
	if req.JSONMode {
		callOpts = append(callOpts, llms.WithJSONMode())
	}
	if len(req.Tools) > 0 {
		callOpts = append(callOpts, llms.WithTools(toSchemaTools(req.Tools)))
	}
	if req.ToolChoice != nil {
		callOpts = append(callOpts, llms.WithToolChoice(req.ToolChoice))
	}

	return callOpts
}

// buildStreamingCallOptions builds call options with a streaming callback.
func buildStreamingCallOptions(req llm.CompletionRequest, streamFunc func(ctx context.Context, chunk []byte) error) []llms.CallOption {
	callOpts := buildCallOptions(req)
	callOpts = append(callOpts, llms.WithStreamingFunc(streamFunc))
	return callOpts
}

// toSchemaTools converts ToolDefs to the langchaingo tool format.
func toSchemaTools(tools []llm.ToolDef) []llms.Tool {
	if len(tools) == 0 {
		return nil
	}

	result := make([]llms.Tool, 0, len(tools))
	for _, tool := range tools {
		result = append(result, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	return result
}
