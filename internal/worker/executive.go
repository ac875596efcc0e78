package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ermiller24/executive-layer/internal/graph"
	"github.com/ermiller24/executive-layer/internal/knowledge"
	"github.com/ermiller24/executive-layer/internal/llm"
	"github.com/ermiller24/executive-layer/internal/types"
)

// Action is the Executive's decision for one evaluation.
type Action string

const (
	ActionNone      Action = "none"
	ActionInterrupt Action = "interrupt"
)

// Verdict is the result of one Executive evaluation.
type Verdict struct {
	Action   Action `json:"action"`
	Reason   string `json:"reason"`
	Document string `json:"document"`
}

// EvalRequest is one evaluation of the Speaker's accumulated output.
type EvalRequest struct {
	UserQuery     string
	Conversation  []llm.Message
	SpeakerOutput string
}

// Retrieval protocol parameters.
const (
	topicSearchK           = 5
	topicSearchMinScore    = 0.6
	knowledgeFallbackScore = 0.5
	hybridSearchK          = 5
	hybridSearchMinScore   = 0.6
)

// Executive evaluates Speaker output against the knowledge graph and writes
// each finished exchange back into it. One Executive serves one client
// request; its writebacks are serialized among themselves.
type Executive struct {
	provider llm.Provider
	tools    *knowledge.Tools
	model    string
	logger   *slog.Logger

	writebackMu sync.Mutex
}

// NewExecutive creates an Executive over the given provider and tools.
func NewExecutive(provider llm.Provider, tools *knowledge.Tools, model string, logger *slog.Logger) *Executive {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executive{
		provider: provider,
		tools:    tools,
		model:    model,
		logger:   logger,
	}
}

// Retrieve runs the retrieval protocol for a user query: topics first, then
// knowledge under each topic, with a direct knowledge search as fallback.
// Retrieval failures degrade to an empty document.
func (e *Executive) Retrieve(ctx context.Context, userQuery string) knowledge.Document {
	if strings.TrimSpace(userQuery) == "" {
		return knowledge.Document{}
	}

	topics, err := e.tools.VectorSearch(ctx, knowledge.VectorSearchCall{
		Kind:     graph.KindTopic,
		Text:     userQuery,
		K:        topicSearchK,
		MinScore: topicSearchMinScore,
	})
	if err != nil {
		e.logger.Warn("topic retrieval failed", "error", err)
		return knowledge.Document{}
	}

	var items []knowledge.Item

	if len(topics) == 0 {
		hits, err := e.tools.VectorSearch(ctx, knowledge.VectorSearchCall{
			Kind:     graph.KindKnowledge,
			Text:     userQuery,
			K:        topicSearchK,
			MinScore: knowledgeFallbackScore,
		})
		if err != nil {
			e.logger.Warn("knowledge fallback retrieval failed", "error", err)
			return knowledge.Document{}
		}
		for _, hit := range hits {
			items = append(items, knowledge.ItemFromVectorHit(hit))
		}
		return knowledge.FoldDocument(nil, items)
	}

	for _, topic := range topics {
		hits, err := e.tools.HybridSearch(ctx, knowledge.HybridSearchCall{
			SrcKind:      graph.KindTopic,
			Text:         topic.Name,
			Relationship: knowledge.RelBelongsTo,
			DstKind:      graph.KindKnowledge,
			K:            hybridSearchK,
			MinScore:     hybridSearchMinScore,
		})
		if err != nil {
			e.logger.Warn("hybrid retrieval failed", "topic", topic.Name, "error", err)
			continue
		}
		for _, hit := range hits {
			items = append(items, knowledge.ItemFromHybridHit(hit))
		}
	}

	return knowledge.FoldDocument(topics, items)
}

// Evaluate retrieves knowledge for the query and asks the Executive model
// for a verdict on the Speaker's output so far. A response that cannot be
// parsed as a verdict degrades to action none, carrying the retrieved
// document so the caller still sees the reference material.
func (e *Executive) Evaluate(ctx context.Context, req EvalRequest) (Verdict, error) {
	doc := e.Retrieve(ctx, req.UserQuery)

	messages := e.buildEvalMessages(req, doc)

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Model:    e.model,
		Messages: messages,
		JSONMode: true,
	})
	if err != nil {
		return Verdict{Action: ActionNone}, types.WrapError(types.EXECUTIVE_FAILED,
			"executive completion failed", err)
	}

	verdict, err := ParseVerdict(resp.Message.Content)
	if err != nil {
		e.logger.Warn("verdict parse failed, defaulting to none",
			"error", err, "response_length", len(resp.Message.Content))
		return Verdict{
			Action:   ActionNone,
			Reason:   "parse failure",
			Document: doc.Text,
		}, nil
	}

	return verdict, nil
}

func (e *Executive) buildEvalMessages(req EvalRequest, doc knowledge.Document) []llm.Message {
	var sb strings.Builder

	sb.WriteString("Conversation:\n")
	for _, msg := range req.Conversation {
		if msg.Content == "" {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", msg.Role, msg.Content)
	}

	sb.WriteString("\nAnswer so far:\n")
	if req.SpeakerOutput == "" {
		sb.WriteString("(nothing yet)\n")
	} else {
		sb.WriteString(req.SpeakerOutput)
		sb.WriteString("\n")
	}

	sb.WriteString("\nReference knowledge:\n")
	if doc.Text == "" {
		sb.WriteString("(none retrieved)\n")
	} else {
		sb.WriteString(doc.Text)
		sb.WriteString("\n")
	}

	return []llm.Message{
		llm.NewSystemMessage(executiveDirective),
		llm.NewUserMessage(sb.String()),
	}
}

// ParseVerdict parses an Executive response into a Verdict, tolerating
// fenced code blocks and surrounding prose. Unknown actions fail.
func ParseVerdict(response string) (Verdict, error) {
	verdict, err := llm.ExtractJSONAs[Verdict](response)
	if err != nil {
		return Verdict{}, types.WrapError(types.EVALUATION_PARSE_FAILED,
			"no verdict object in response", err)
	}

	switch verdict.Action {
	case ActionNone, ActionInterrupt:
		return verdict, nil
	default:
		return Verdict{}, types.NewError(types.EVALUATION_PARSE_FAILED,
			fmt.Sprintf("unknown verdict action %q", verdict.Action))
	}
}

// Writeback records a finished exchange: it locates or creates a Topic named
// after the user query and attaches a Knowledge node holding the exchange.
// Writebacks on the same Executive are serialized. The caller logs and
// swallows the returned error; a writeback never affects the client
// response.
func (e *Executive) Writeback(ctx context.Context, userQuery, assistantOutput string) error {
	if strings.TrimSpace(userQuery) == "" || strings.TrimSpace(assistantOutput) == "" {
		return nil
	}

	e.writebackMu.Lock()
	defer e.writebackMu.Unlock()

	topicName := truncate(userQuery, 120)

	if _, err := e.tools.FindNode(ctx, graph.KindTopic, topicName); err != nil {
		if !types.HasCode(err, types.NOT_FOUND) {
			return types.WrapError(types.WRITEBACK_FAILED, "topic lookup failed", err)
		}
		_, err = e.tools.CreateNode(ctx, knowledge.CreateNodeCall{
			Kind:        graph.KindTopic,
			Name:        topicName,
			Description: "Conversation topic recorded from a user query",
		})
		if err != nil && !types.HasCode(err, types.DUPLICATE_NAME) {
			return types.WrapError(types.WRITEBACK_FAILED, "topic creation failed", err)
		}
	}

	// Each exchange becomes a fresh Knowledge node; the suffix keeps names
	// unique across exchanges on the same topic.
	name := fmt.Sprintf("%s [%s]", truncate(userQuery, 80), uuid.New().String()[:8])
	_, err := e.tools.CreateNode(ctx, knowledge.CreateNodeCall{
		Kind:        graph.KindKnowledge,
		Name:        name,
		Description: fmt.Sprintf("User: %s\nAssistant: %s", userQuery, assistantOutput),
		Summary:     truncate(assistantOutput, 200),
		BelongsTo:   []string{topicName},
	})
	if err != nil {
		return types.WrapError(types.WRITEBACK_FAILED, "knowledge creation failed", err)
	}

	return nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
