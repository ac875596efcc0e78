package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ermiller24/executive-layer/internal/llm"
)

func collectStream(t *testing.T, ch <-chan llm.StreamChunk) (string, llm.FinishReason, error) {
	t.Helper()
	var content string
	var finish llm.FinishReason
	for chunk := range ch {
		if chunk.Error != nil {
			return content, finish, chunk.Error
		}
		content += chunk.Delta.Content
		if chunk.FinishReason != "" {
			finish = chunk.FinishReason
		}
	}
	return content, finish, nil
}

func TestMockProviderStreamsScriptedText(t *testing.T) {
	p := NewMockProvider().EnqueueText("hello world", 4)

	ch, err := p.Stream(context.Background(), llm.CompletionRequest{
		Model:    "mock-model",
		Messages: []llm.Message{llm.NewUserMessage("hi")},
	})
	require.NoError(t, err)

	content, finish, streamErr := collectStream(t, ch)
	require.NoError(t, streamErr)
	assert.Equal(t, "hello world", content)
	assert.Equal(t, llm.FinishReasonStop, finish)

	require.Len(t, p.Requests(), 1)
	assert.Equal(t, "mock-model", p.Requests()[0].Model)
}

func TestMockProviderCompleteAssemblesChunks(t *testing.T) {
	p := NewMockProvider().EnqueueText("full response", 5)

	resp, err := p.Complete(context.Background(), llm.CompletionRequest{
		Model:    "m",
		Messages: []llm.Message{llm.NewUserMessage("hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "full response", resp.Message.Content)
	assert.Equal(t, llm.FinishReasonStop, resp.FinishReason)
}

func TestMockProviderScriptedError(t *testing.T) {
	scriptErr := errors.New("backend down")
	p := NewMockProvider().EnqueueError(scriptErr)

	ch, err := p.Stream(context.Background(), llm.CompletionRequest{Model: "m"})
	require.NoError(t, err)

	_, _, streamErr := collectStream(t, ch)
	assert.ErrorIs(t, streamErr, scriptErr)
}

func TestMockProviderRespondFunc(t *testing.T) {
	p := NewMockProvider()
	p.RespondFunc = func(req llm.CompletionRequest) MockScript {
		last := req.Messages[len(req.Messages)-1].Content
		return MockScript{Chunks: []llm.StreamChunk{
			{Delta: llm.StreamDelta{Content: "echo: " + last}},
		}}
	}

	resp, err := p.Complete(context.Background(), llm.CompletionRequest{
		Model:    "m",
		Messages: []llm.Message{llm.NewUserMessage("ping")},
	})
	require.NoError(t, err)
	assert.Equal(t, "echo: ping", resp.Message.Content)
}

func TestMockProviderStreamCancellation(t *testing.T) {
	p := NewMockProvider().Enqueue(MockScript{
		Chunks: []llm.StreamChunk{
			{Delta: llm.StreamDelta{Content: "a"}},
			{Delta: llm.StreamDelta{Content: "b"}},
		},
		ChunkDelay: 50_000_000, // 50ms
	})

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := p.Stream(ctx, llm.CompletionRequest{Model: "m"})
	require.NoError(t, err)
	cancel()

	// Channel closes without delivering the full script.
	var got string
	for chunk := range ch {
		got += chunk.Delta.Content
	}
	assert.NotEqual(t, "ab", got)
}
