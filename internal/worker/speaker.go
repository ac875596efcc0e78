// Package worker implements the two per-request LLM workers: the Speaker,
// whose tokens stream to the client, and the Executive, which evaluates the
// Speaker's accumulated output against the knowledge graph and may order an
// interruption.
package worker

import (
	"context"
	"log/slog"

	"github.com/ermiller24/executive-layer/internal/llm"
)

// SpeakerRequest carries the client's normalized chat parameters plus the
// retrieved knowledge context.
type SpeakerRequest struct {
	Model            string
	Messages         []llm.Message
	Temperature      float64
	TopP             float64
	MaxTokens        int
	PresencePenalty  float64
	FrequencyPenalty float64
	StopSequences    []string
	Tools            []llm.ToolDef
	ToolChoice       any
	JSONMode         bool

	// ContextText, when non-empty, is spliced as a system message
	// immediately before the last user message.
	ContextText string
}

// Speaker streams the visible response from its underlying LLM.
type Speaker struct {
	provider llm.Provider
	logger   *slog.Logger
}

// NewSpeaker creates a Speaker over the given provider.
func NewSpeaker(provider llm.Provider, logger *slog.Logger) *Speaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Speaker{provider: provider, logger: logger}
}

// Stream starts the Speaker's token stream.
func (s *Speaker) Stream(ctx context.Context, req SpeakerRequest) (<-chan llm.StreamChunk, error) {
	return s.provider.Stream(ctx, s.completionRequest(req))
}

// Complete runs the Speaker to completion, for non-streaming requests.
func (s *Speaker) Complete(ctx context.Context, req SpeakerRequest) (*llm.CompletionResponse, error) {
	return s.provider.Complete(ctx, s.completionRequest(req))
}

func (s *Speaker) completionRequest(req SpeakerRequest) llm.CompletionRequest {
	return llm.CompletionRequest{
		Model:            req.Model,
		Messages:         AugmentMessages(req.Messages, req.ContextText),
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		MaxTokens:        req.MaxTokens,
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
		StopSequences:    req.StopSequences,
		Tools:            req.Tools,
		ToolChoice:       req.ToolChoice,
		JSONMode:         req.JSONMode,
	}
}

// AugmentMessages splices a system message carrying contextText immediately
// before the last user message. An empty context leaves the messages
// untouched; with no user message the context is appended at the end.
func AugmentMessages(messages []llm.Message, contextText string) []llm.Message {
	if contextText == "" {
		return messages
	}

	contextMsg := llm.NewSystemMessage(speakerContextPreamble + contextText)

	lastUser := -1
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			lastUser = i
			break
		}
	}

	if lastUser < 0 {
		return append(append([]llm.Message(nil), messages...), contextMsg)
	}

	out := make([]llm.Message, 0, len(messages)+1)
	out = append(out, messages[:lastUser]...)
	out = append(out, contextMsg)
	out = append(out, messages[lastUser:]...)
	return out
}

// LastUserQuery returns the content of the last user message, or empty.
func LastUserQuery(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
