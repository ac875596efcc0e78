package worker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ermiller24/executive-layer/internal/embedding"
	"github.com/ermiller24/executive-layer/internal/graph"
	"github.com/ermiller24/executive-layer/internal/knowledge"
	"github.com/ermiller24/executive-layer/internal/llm"
	"github.com/ermiller24/executive-layer/internal/llm/providers"
	"github.com/ermiller24/executive-layer/internal/types"
)

const testDim = 64

func newTestExecutive(t *testing.T, mock *providers.MockProvider) (*Executive, *knowledge.Tools) {
	t.Helper()
	store := graph.NewMemoryStore(testDim)
	embedder := embedding.NewMockProvider(testDim)
	tools := knowledge.NewTools(store, embedder, nil)
	return NewExecutive(mock, tools, "exec-model", nil), tools
}

func seedCapitalKnowledge(t *testing.T, tools *knowledge.Tools) {
	t.Helper()
	ctx := context.Background()

	_, err := tools.CreateNode(ctx, knowledge.CreateNodeCall{
		Kind: graph.KindTopic, Name: "capital of France",
		Description: "Facts about the French capital",
	})
	require.NoError(t, err)

	_, err = tools.CreateNode(ctx, knowledge.CreateNodeCall{
		Kind: graph.KindKnowledge, Name: "French capital",
		Description: "Paris is the capital of France",
		Summary:     "Paris is the capital of France",
		BelongsTo:   []string{"capital of France"},
	})
	require.NoError(t, err)
}

func TestRetrieveTopicsThenHybrid(t *testing.T) {
	exec, tools := newTestExecutive(t, providers.NewMockProvider())
	seedCapitalKnowledge(t, tools)

	doc := exec.Retrieve(context.Background(), "what is the capital of France?")
	require.False(t, doc.IsEmpty())
	assert.NotEmpty(t, doc.Topics)
	require.NotEmpty(t, doc.Items)
	assert.Contains(t, doc.Text, "Paris is the capital of France")
}

func TestRetrieveKnowledgeFallback(t *testing.T) {
	exec, tools := newTestExecutive(t, providers.NewMockProvider())
	ctx := context.Background()

	// A Knowledge node with no Topic above it is only reachable through the
	// fallback search.
	_, err := tools.CreateNode(ctx, knowledge.CreateNodeCall{
		Kind: graph.KindKnowledge, Name: "orphan quantum fact",
		Description: "Qubits superpose",
		Summary:     "Qubits superpose",
	})
	require.NoError(t, err)

	doc := exec.Retrieve(ctx, "orphan quantum fact")
	require.False(t, doc.IsEmpty())
	assert.Empty(t, doc.Topics)
	assert.Contains(t, doc.Text, "Qubits superpose")
}

func TestRetrieveEmptyQueryAndEmptyGraph(t *testing.T) {
	exec, _ := newTestExecutive(t, providers.NewMockProvider())
	ctx := context.Background()

	assert.True(t, exec.Retrieve(ctx, "  ").IsEmpty())
	assert.True(t, exec.Retrieve(ctx, "anything at all").IsEmpty())
}

func TestEvaluateInterruptVerdict(t *testing.T) {
	mock := providers.NewMockProvider()
	mock.Enqueue(providers.MockScript{Response: &llm.CompletionResponse{
		Message: llm.NewAssistantMessage(
			`{"action": "interrupt", "reason": "contradiction", "document": "Paris is the capital of France."}`),
		FinishReason: llm.FinishReasonStop,
	}})

	exec, tools := newTestExecutive(t, mock)
	seedCapitalKnowledge(t, tools)

	verdict, err := exec.Evaluate(context.Background(), EvalRequest{
		UserQuery:     "what is the capital of France?",
		Conversation:  []llm.Message{llm.NewUserMessage("what is the capital of France?")},
		SpeakerOutput: "The capital of France is Lyon",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionInterrupt, verdict.Action)
	assert.Contains(t, verdict.Document, "Paris")

	// The model saw the speaker output and the reference knowledge.
	prompt := mock.Requests()[0].Messages[1].Content
	assert.Contains(t, prompt, "Lyon")
	assert.Contains(t, prompt, "Paris is the capital of France")
	assert.True(t, mock.Requests()[0].JSONMode)
}

func TestEvaluateFencedVerdict(t *testing.T) {
	mock := providers.NewMockProvider()
	mock.Enqueue(providers.MockScript{Response: &llm.CompletionResponse{
		Message: llm.NewAssistantMessage(
			"Here is my assessment:\n```json\n{\"action\": \"none\", \"reason\": \"consistent\", \"document\": \"\"}\n```"),
	}})

	exec, _ := newTestExecutive(t, mock)

	verdict, err := exec.Evaluate(context.Background(), EvalRequest{
		UserQuery: "q", SpeakerOutput: "fine so far",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionNone, verdict.Action)
}

func TestEvaluateParseFailureDefaultsToNone(t *testing.T) {
	mock := providers.NewMockProvider()
	mock.Enqueue(providers.MockScript{Response: &llm.CompletionResponse{
		Message: llm.NewAssistantMessage("I cannot answer in the requested format."),
	}})

	exec, tools := newTestExecutive(t, mock)
	seedCapitalKnowledge(t, tools)

	verdict, err := exec.Evaluate(context.Background(), EvalRequest{
		UserQuery:     "what is the capital of France?",
		SpeakerOutput: "something",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionNone, verdict.Action)
	assert.Equal(t, "parse failure", verdict.Reason)
	// The retrieved document rides along on the default verdict.
	assert.Contains(t, verdict.Document, "Paris")
}

func TestEvaluateProviderFailure(t *testing.T) {
	mock := providers.NewMockProvider().EnqueueError(errors.New("backend down"))
	exec, _ := newTestExecutive(t, mock)

	verdict, err := exec.Evaluate(context.Background(), EvalRequest{
		UserQuery: "q", SpeakerOutput: "s",
	})
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.EXECUTIVE_FAILED))
	assert.Equal(t, ActionNone, verdict.Action)
}

func TestParseVerdictRejectsUnknownAction(t *testing.T) {
	_, err := ParseVerdict(`{"action": "restart", "reason": "r", "document": "d"}`)
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.EVALUATION_PARSE_FAILED))
}

func TestWritebackCreatesTopicAndKnowledge(t *testing.T) {
	exec, tools := newTestExecutive(t, providers.NewMockProvider())
	ctx := context.Background()

	require.NoError(t, exec.Writeback(ctx, "what is the capital of France?", "Paris."))

	topic, err := tools.FindNode(ctx, graph.KindTopic, "what is the capital of France?")
	require.NoError(t, err)
	assert.NotEmpty(t, topic.ID)

	// A second exchange on the same query reuses the topic and adds a new
	// knowledge node.
	require.NoError(t, exec.Writeback(ctx, "what is the capital of France?", "Still Paris."))

	rows, err := tools.StructuralSearch(ctx, knowledge.StructuralSearchCall{Match: "(n:Knowledge)"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	topics, err := tools.StructuralSearch(ctx, knowledge.StructuralSearchCall{Match: "(n:Topic)"})
	require.NoError(t, err)
	assert.Len(t, topics, 1)
}

func TestWritebackSkipsEmptyExchange(t *testing.T) {
	exec, tools := newTestExecutive(t, providers.NewMockProvider())
	ctx := context.Background()

	require.NoError(t, exec.Writeback(ctx, "", "answer"))
	require.NoError(t, exec.Writeback(ctx, "query", "  "))

	rows, err := tools.StructuralSearch(ctx, knowledge.StructuralSearchCall{Match: "(n:Topic)"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWritebackTruncatesLongQuery(t *testing.T) {
	exec, tools := newTestExecutive(t, providers.NewMockProvider())
	ctx := context.Background()

	long := strings.Repeat("x", 500)
	require.NoError(t, exec.Writeback(ctx, long, "answer"))

	topic, err := tools.FindNode(ctx, graph.KindTopic, strings.Repeat("x", 120))
	require.NoError(t, err)
	assert.NotEmpty(t, topic.ID)
}
