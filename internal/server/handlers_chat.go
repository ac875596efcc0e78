package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ermiller24/executive-layer/internal/llm"
	"github.com/ermiller24/executive-layer/internal/orchestrator"
	"github.com/ermiller24/executive-layer/internal/types"
	"github.com/ermiller24/executive-layer/internal/worker"
)

// newRequestOrchestrator assembles the dual-worker orchestrator for one
// request.
func newRequestOrchestrator(s *Server, speakerProvider, execProvider llm.Provider, execModel string) *orchestrator.Orchestrator {
	speaker := worker.NewSpeaker(speakerProvider, s.logger)
	executive := worker.NewExecutive(execProvider, s.tools, execModel, s.logger)

	return orchestrator.New(speaker, executive, s.tools, orchestrator.Options{
		ReevalStride:   s.cfg.Orchestrator.ReevalStride,
		RequestTimeout: s.cfg.Orchestrator.RequestTimeout,
	}, s.logger)
}

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errorDetail{
			Message: "invalid request body: " + err.Error(),
			Type:    "invalid_request_error",
		})
		return
	}

	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, errorDetail{
			Message: "messages is required and cannot be empty",
			Type:    "invalid_request_error",
			Param:   "messages",
			Code:    "invalid_messages",
		})
		return
	}

	messages := make([]llm.Message, 0, len(req.Messages))
	for i, m := range req.Messages {
		content, err := m.flatten()
		if err != nil {
			writeError(w, http.StatusBadRequest, errorDetail{
				Message: fmt.Sprintf("messages[%d]: %v", i, err),
				Type:    "invalid_request_error",
				Param:   "messages",
				Code:    "invalid_messages",
			})
			return
		}
		messages = append(messages, llm.Message{
			Role:    llm.Role(m.Role),
			Content: content,
			Name:    m.Name,
		})
	}

	model := req.Model
	if model == "" {
		model = s.cfg.Speaker.Model
	}

	orch, err := s.orchestratorFor(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errorDetail{
			Message: err.Error(),
			Type:    "server_error",
		})
		return
	}

	orchReq := orchestrator.Request{
		Model:            model,
		Messages:         messages,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		MaxTokens:        req.MaxTokens,
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
		StopSequences:    req.Stop,
		Tools:            toToolDefs(req.Tools),
		ToolChoice:       decodeToolChoice(req.ToolChoice),
		JSONMode:         req.ResponseFormat != nil && req.ResponseFormat.Type == "json_object",
	}

	if req.Stream {
		s.streamCompletion(w, r, orch, orchReq)
	} else {
		s.blockingCompletion(w, r, orch, orchReq)
	}

	s.writebacks.Add(1)
	go func() {
		defer s.writebacks.Done()
		orch.WaitForWritebacks()
	}()
}

func (s *Server) streamCompletion(w http.ResponseWriter, r *http.Request, orch *orchestrator.Orchestrator, req orchestrator.Request) {
	completionID := "chatcmpl-" + uuid.New().String()
	created := time.Now().Unix()
	sse := newSSEWriter(w)

	emit := func(ev orchestrator.Event) error {
		choice := chunkChoice{
			Index: 0,
			Delta: chunkDelta{
				Role:      string(ev.Role),
				Content:   ev.Content,
				ToolCalls: toWireToolCalls(ev.ToolCalls),
			},
		}
		if ev.FinishReason != "" {
			reason := string(ev.FinishReason)
			choice.FinishReason = &reason
		}

		return sse.WriteJSON(chatChunk{
			ID:      completionID,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   req.Model,
			Choices: []chunkChoice{choice},
		})
	}

	err := orch.Run(r.Context(), req, emit)
	if err != nil {
		// The client is gone; nothing more can be written.
		s.logger.Info("stream aborted",
			"error", err,
			"disconnect", types.HasCode(err, types.CLIENT_DISCONNECT))
		return
	}

	if err := sse.WriteDone(); err != nil {
		s.logger.Warn("failed to write stream terminator", "error", err)
	}
}

func (s *Server) blockingCompletion(w http.ResponseWriter, r *http.Request, orch *orchestrator.Orchestrator, req orchestrator.Request) {
	resp, err := orch.RunBlocking(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errorDetail{
			Message: err.Error(),
			Type:    "server_error",
			Code:    string(types.CodeOf(err)),
		})
		return
	}

	writeJSON(w, http.StatusOK, chatCompletion{
		ID:      "chatcmpl-" + uuid.New().String(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []completionChoice{{
			Index: 0,
			Message: completionMessage{
				Role:      string(llm.RoleAssistant),
				Content:   resp.Content,
				ToolCalls: nilIfEmpty(toWireToolCalls(resp.ToolCalls)),
			},
			FinishReason: string(resp.FinishReason),
		}},
	})
}

// decodeToolChoice passes tool_choice through unchanged: a string keyword or
// an object, whichever the client sent.
func decodeToolChoice(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

func nilIfEmpty(calls []wireToolCall) []wireToolCall {
	if len(calls) == 0 {
		return nil
	}
	return calls
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail errorDetail) {
	writeJSON(w, status, errorBody{Error: detail})
}
