package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ermiller24/executive-layer/internal/llm"
	"github.com/ermiller24/executive-layer/internal/llm/providers"
)

func TestAugmentMessagesSplicesBeforeLastUser(t *testing.T) {
	messages := []llm.Message{
		llm.NewSystemMessage("base system"),
		llm.NewUserMessage("first question"),
		llm.NewAssistantMessage("first answer"),
		llm.NewUserMessage("second question"),
	}

	out := AugmentMessages(messages, "retrieved facts")
	require.Len(t, out, 5)
	assert.Equal(t, llm.RoleSystem, out[3].Role)
	assert.Contains(t, out[3].Content, "retrieved facts")
	assert.Equal(t, "second question", out[4].Content)

	// Original slice untouched.
	assert.Len(t, messages, 4)
}

func TestAugmentMessagesEmptyContext(t *testing.T) {
	messages := []llm.Message{llm.NewUserMessage("q")}
	out := AugmentMessages(messages, "")
	assert.Equal(t, messages, out)
}

func TestAugmentMessagesNoUserMessage(t *testing.T) {
	messages := []llm.Message{llm.NewSystemMessage("sys")}
	out := AugmentMessages(messages, "facts")
	require.Len(t, out, 2)
	assert.Equal(t, llm.RoleSystem, out[1].Role)
	assert.Contains(t, out[1].Content, "facts")
}

func TestLastUserQuery(t *testing.T) {
	messages := []llm.Message{
		llm.NewUserMessage("first"),
		llm.NewAssistantMessage("a"),
		llm.NewUserMessage("second"),
	}
	assert.Equal(t, "second", LastUserQuery(messages))
	assert.Empty(t, LastUserQuery([]llm.Message{llm.NewSystemMessage("s")}))
}

func TestSpeakerStreamCarriesAugmentedContext(t *testing.T) {
	mock := providers.NewMockProvider().EnqueueText("The capital of France is Paris.", 3)
	speaker := NewSpeaker(mock, nil)

	ch, err := speaker.Stream(context.Background(), SpeakerRequest{
		Model:       "test-model",
		Messages:    []llm.Message{llm.NewUserMessage("What is the capital of France?")},
		ContextText: "- Capital: Paris is the capital of France (relevance 0.90)",
	})
	require.NoError(t, err)

	var content string
	for chunk := range ch {
		require.NoError(t, chunk.Error)
		content += chunk.Delta.Content
	}
	assert.Equal(t, "The capital of France is Paris.", content)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Messages, 2)
	assert.Equal(t, llm.RoleSystem, reqs[0].Messages[0].Role)
	assert.Contains(t, reqs[0].Messages[0].Content, "Paris is the capital")
	assert.Equal(t, "test-model", reqs[0].Model)
}

func TestSpeakerCompleteForwardsParameters(t *testing.T) {
	mock := providers.NewMockProvider().EnqueueText("ok", 0)
	speaker := NewSpeaker(mock, nil)

	_, err := speaker.Complete(context.Background(), SpeakerRequest{
		Model:       "m",
		Messages:    []llm.Message{llm.NewUserMessage("q")},
		Temperature: 0.2,
		MaxTokens:   64,
		JSONMode:    true,
		Tools:       []llm.ToolDef{{Name: "lookup"}},
	})
	require.NoError(t, err)

	req := mock.Requests()[0]
	assert.Equal(t, 0.2, req.Temperature)
	assert.Equal(t, 64, req.MaxTokens)
	assert.True(t, req.JSONMode)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "lookup", req.Tools[0].Name)
}
