package providers

import (
	"context"
	"sync"
	"time"

	"github.com/ermiller24/executive-layer/internal/llm"
	"github.com/ermiller24/executive-layer/internal/types"
)

// MockScript is one scripted exchange for the mock provider. Each Complete or
// Stream call consumes the next script in queue order.
type MockScript struct {
	// Chunks are emitted in order by Stream. If none carries a finish
	// reason, a terminal stop chunk is appended.
	Chunks []llm.StreamChunk

	// ChunkDelay is the pause before each chunk, for timing-sensitive tests.
	ChunkDelay time.Duration

	// Response is returned by Complete. If nil, it is assembled from Chunks.
	Response *llm.CompletionResponse

	// Err fails the call outright.
	Err error
}

// MockProvider is a scripted llm.Provider for tests. It records every
// request and replays queued scripts. When a RespondFunc is set it takes
// priority over the queue.
type MockProvider struct {
	mu       sync.Mutex
	scripts  []MockScript
	requests []llm.CompletionRequest

	// RespondFunc, when set, computes the script for each request.
	RespondFunc func(req llm.CompletionRequest) MockScript
}

// NewMockProvider creates an empty mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Enqueue appends a script to the replay queue.
func (p *MockProvider) Enqueue(script MockScript) *MockProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scripts = append(p.scripts, script)
	return p
}

// EnqueueText appends a script that streams text in chunks of chunkSize runes
// and completes with the full text.
func (p *MockProvider) EnqueueText(text string, chunkSize int) *MockProvider {
	if chunkSize <= 0 {
		chunkSize = len(text)
	}

	var chunks []llm.StreamChunk
	runes := []rune(text)
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, llm.StreamChunk{
			Delta: llm.StreamDelta{Content: string(runes[i:end])},
		})
	}

	return p.Enqueue(MockScript{Chunks: chunks})
}

// EnqueueError appends a script that fails with err.
func (p *MockProvider) EnqueueError(err error) *MockProvider {
	return p.Enqueue(MockScript{Err: err})
}

// Requests returns a copy of every request seen so far.
func (p *MockProvider) Requests() []llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.CompletionRequest(nil), p.requests...)
}

// Name returns "mock".
func (p *MockProvider) Name() string {
	return "mock"
}

func (p *MockProvider) nextScript(req llm.CompletionRequest) MockScript {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)

	if p.RespondFunc != nil {
		return p.RespondFunc(req)
	}
	if len(p.scripts) == 0 {
		return MockScript{}
	}
	script := p.scripts[0]
	p.scripts = p.scripts[1:]
	return script
}

// Complete returns the scripted response.
func (p *MockProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	script := p.nextScript(req)
	if script.Err != nil {
		return nil, script.Err
	}
	if script.Response != nil {
		return script.Response, nil
	}

	var content string
	var toolCalls []llm.ToolCall
	finish := llm.FinishReasonStop
	for _, c := range script.Chunks {
		content += c.Delta.Content
		toolCalls = append(toolCalls, c.Delta.ToolCalls...)
		if c.FinishReason != "" {
			finish = c.FinishReason
		}
	}

	return &llm.CompletionResponse{
		ID:    "mock-completion",
		Model: req.Model,
		Message: llm.Message{
			Role:      llm.RoleAssistant,
			Content:   content,
			ToolCalls: toolCalls,
		},
		FinishReason: finish,
	}, nil
}

// Stream replays the scripted chunks, honoring context cancellation.
func (p *MockProvider) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	script := p.nextScript(req)

	chunkChan := make(chan llm.StreamChunk, 16)
	go func() {
		defer close(chunkChan)

		if script.Err != nil {
			chunkChan <- llm.StreamChunk{Error: script.Err}
			return
		}

		sawFinish := false
		for _, chunk := range script.Chunks {
			if script.ChunkDelay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(script.ChunkDelay):
				}
			}
			select {
			case <-ctx.Done():
				return
			case chunkChan <- chunk:
			}
			if chunk.FinishReason != "" {
				sawFinish = true
			}
		}

		if !sawFinish {
			select {
			case <-ctx.Done():
			case chunkChan <- llm.StreamChunk{FinishReason: llm.FinishReasonStop}:
			}
		}
	}()

	return chunkChan, nil
}

// Health always reports healthy.
func (p *MockProvider) Health(ctx context.Context) types.HealthStatus {
	return types.Healthy("mock provider")
}
