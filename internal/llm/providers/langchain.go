// Package providers implements llm.Provider backends over langchaingo
// clients, plus a scripted mock for tests.
package providers

import (
	"context"

	"github.com/tmc/langchaingo/llms"

	"github.com/ermiller24/executive-layer/internal/llm"
	"github.com/ermiller24/executive-layer/internal/types"
)

// langchainProvider adapts a langchaingo model to llm.Provider. All three
// hosted backends share this implementation; only client construction
// differs.
type langchainProvider struct {
	name   string
	client llms.Model
	config llm.ProviderConfig
}

func (p *langchainProvider) Name() string {
	return p.name
}

// Complete sends a completion request and waits for the full response.
func (p *langchainProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	messages := toSchemaMessages(req.Messages)
	callOpts := buildCallOptions(req)

	resp, err := p.client.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return nil, llm.TranslateError(p.name, err)
	}

	return fromLangchainResponse(resp, req.Model), nil
}

// Stream sends a streaming completion request. Text deltas arrive as they
// are generated; the terminal chunk carries the finish reason and any tool
// calls accumulated by the backend.
func (p *langchainProvider) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	chunkChan := make(chan llm.StreamChunk, 16)

	messages := toSchemaMessages(req.Messages)
	callOpts := buildStreamingCallOptions(req, func(ctx context.Context, chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunkChan <- llm.StreamChunk{
			Delta: llm.StreamDelta{Content: string(chunk)},
		}:
			return nil
		}
	})

	go func() {
		defer close(chunkChan)

		resp, err := p.client.GenerateContent(ctx, messages, callOpts...)
		if err != nil {
			chunkChan <- llm.StreamChunk{Error: llm.TranslateError(p.name, err)}
			return
		}

		final := fromLangchainResponse(resp, req.Model)
		chunkChan <- llm.StreamChunk{
			Delta:        llm.StreamDelta{ToolCalls: final.Message.ToolCalls},
			FinishReason: final.FinishReason,
		}
	}()

	return chunkChan, nil
}

// Health sends a one-token completion against the default model.
func (p *langchainProvider) Health(ctx context.Context) types.HealthStatus {
	req := llm.CompletionRequest{
		Model:     p.config.DefaultModel,
		Messages:  []llm.Message{llm.NewUserMessage("ping")},
		MaxTokens: 1,
	}

	if _, err := p.Complete(ctx, req); err != nil {
		return types.Unhealthy(err.Error())
	}

	return types.Healthy("")
}
