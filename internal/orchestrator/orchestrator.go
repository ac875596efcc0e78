// Package orchestrator implements the dual-worker request core: it prefetches
// knowledge context, launches the Speaker and Executive concurrently,
// forwards Speaker deltas in order, re-evaluates the accumulated output on a
// character stride, and splices at most one Executive interruption into the
// outbound stream.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ermiller24/executive-layer/internal/graph"
	"github.com/ermiller24/executive-layer/internal/knowledge"
	"github.com/ermiller24/executive-layer/internal/llm"
	"github.com/ermiller24/executive-layer/internal/types"
	"github.com/ermiller24/executive-layer/internal/worker"
)

// Prefetch parameters for the pre-dispatch knowledge lookup.
const (
	prefetchK        = 3
	prefetchMinScore = 0.6
)

// interruptionFormat frames an Executive interruption in the output stream.
const interruptionFormat = "\n\n[Executive Interruption: %s]"

// InterruptionMarker identifies interruption chunks in the stream.
const InterruptionMarker = "[Executive Interruption:"

// Request is a normalized chat request.
type Request struct {
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
}

// Event is one outbound item of the response stream. Exactly one event per
// request carries a FinishReason; the transport appends its own terminator
// after Run returns.
type Event struct {
	Role         llm.Role
	Content      string
	ToolCalls    []llm.ToolCall
	FinishReason llm.FinishReason
	Interruption bool
}

// EmitFunc writes one event to the client. A returned error means the client
// is gone; the orchestrator cancels both workers.
type EmitFunc func(Event) error

// Response is the composed result of a non-streaming request.
type Response struct {
	Content      string
	ToolCalls    []llm.ToolCall
	FinishReason llm.FinishReason
}

// Options tunes a single orchestrator instance.
type Options struct {
	// ReevalStride is the accumulated-character interval between Executive
	// re-evaluations. Zero uses 100.
	ReevalStride int

	// RequestTimeout bounds one request wall-clock. Zero uses 120s.
	RequestTimeout time.Duration
}

// Orchestrator runs dual-worker chat requests. It is safe for concurrent use;
// per-request state lives on the stack of Run.
type Orchestrator struct {
	speaker   *worker.Speaker
	executive *worker.Executive
	tools     *knowledge.Tools
	opts      Options
	logger    *slog.Logger

	writebacks sync.WaitGroup
}

// New creates an Orchestrator.
func New(speaker *worker.Speaker, executive *worker.Executive, tools *knowledge.Tools, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.ReevalStride <= 0 {
		opts.ReevalStride = 100
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		speaker:   speaker,
		executive: executive,
		tools:     tools,
		opts:      opts,
		logger:    logger,
	}
}

// WaitForWritebacks blocks until all background writebacks have finished.
// Used on shutdown and in tests.
func (o *Orchestrator) WaitForWritebacks() {
	o.writebacks.Wait()
}

// evalTask is one in-flight Executive evaluation. Superseded tasks are
// cancelled; their results are never consumed.
type evalTask struct {
	cancel context.CancelFunc
	done   chan evalResult
}

type evalResult struct {
	verdict worker.Verdict
	err     error
}

func (o *Orchestrator) spawnEval(ctx context.Context, req worker.EvalRequest) *evalTask {
	taskCtx, cancel := context.WithCancel(ctx)
	task := &evalTask{
		cancel: cancel,
		done:   make(chan evalResult, 1),
	}
	go func() {
		verdict, err := o.executive.Evaluate(taskCtx, req)
		task.done <- evalResult{verdict: verdict, err: err}
	}()
	return task
}

// prefetch retrieves knowledge context for the Speaker. Failure degrades to
// no context.
func (o *Orchestrator) prefetch(ctx context.Context, userQuery string) string {
	if userQuery == "" {
		return ""
	}

	hits, err := o.tools.VectorSearch(ctx, knowledge.VectorSearchCall{
		Kind:        graph.KindKnowledge,
		Text:        userQuery,
		K:           prefetchK,
		MinScore:    prefetchMinScore,
		MinScoreSet: true,
	})
	if err != nil {
		o.logger.Warn("knowledge prefetch failed, proceeding without context", "error", err)
		return ""
	}

	items := make([]knowledge.Item, 0, len(hits))
	for _, hit := range hits {
		items = append(items, knowledge.ItemFromVectorHit(hit))
	}
	return knowledge.FoldDocument(nil, items).Text
}

// Run executes a streaming request, writing events through emit. It returns
// nil when the stream completed (the final event carried a finish reason) and
// an error only when the client disconnected or the context was cancelled
// before completion.
func (o *Orchestrator) Run(ctx context.Context, req Request, emit EmitFunc) error {
	ctx, cancel := context.WithTimeout(ctx, o.opts.RequestTimeout)
	defer cancel()

	userQuery := worker.LastUserQuery(req.Messages)
	contextText := o.prefetch(ctx, userQuery)

	speakerCh, err := o.speaker.Stream(ctx, speakerRequest(req, contextText))
	if err != nil {
		return o.emitSpeakerFailure(emit, err)
	}

	latest := o.spawnEval(ctx, worker.EvalRequest{
		UserQuery:    userQuery,
		Conversation: req.Messages,
	})
	latestConsumed := false
	defer func() { latest.cancel() }()

	var (
		accumulated   string
		strides       int
		interrupted   bool
		pendingDoc    string
		havePending   bool
		jsonHeldDoc   string
		jsonHeld      bool
		sawToolCalls  bool
		sentRole      bool
		speakerFinish llm.FinishReason
	)

	emitEvent := func(ev Event) error {
		if !sentRole {
			ev.Role = llm.RoleAssistant
			sentRole = true
		}
		if err := emit(ev); err != nil {
			cancel()
			return types.WrapError(types.CLIENT_DISCONNECT, "client went away", err)
		}
		return nil
	}

	emitInterruption := func(document string) error {
		interrupted = true
		havePending = false
		if req.JSONMode {
			// Nothing is forwarded mid-stream in JSON mode; hold the
			// interruption and splice it after the single JSON chunk.
			jsonHeldDoc = document
			jsonHeld = true
			return nil
		}
		return emitEvent(Event{
			Content:      fmt.Sprintf(interruptionFormat, document),
			Interruption: true,
		})
	}

	applyVerdict := func(res evalResult, toolCallInProgress bool) error {
		if res.err != nil {
			o.logger.Warn("executive evaluation failed, treating as no action", "error", res.err)
			return nil
		}
		if res.verdict.Action != worker.ActionInterrupt {
			return nil
		}
		if interrupted {
			o.logger.Debug("suppressed duplicate interruption", "document", res.verdict.Document)
			return nil
		}
		if toolCallInProgress {
			// Defer until the tool call has been fully forwarded.
			pendingDoc = res.verdict.Document
			havePending = true
			return nil
		}
		return emitInterruption(res.verdict.Document)
	}

	for chunk := range speakerCh {
		if chunk.Error != nil {
			return o.emitSpeakerFailure(emit, chunk.Error)
		}

		toolCallChunk := len(chunk.Delta.ToolCalls) > 0
		if toolCallChunk {
			sawToolCalls = true
		}
		if chunk.FinishReason != "" {
			speakerFinish = chunk.FinishReason
		}

		if chunk.Delta.Content != "" {
			accumulated += chunk.Delta.Content

			if !req.JSONMode {
				if err := emitEvent(Event{Content: chunk.Delta.Content}); err != nil {
					return err
				}
			}
		}

		if toolCallChunk {
			if err := emitEvent(Event{ToolCalls: chunk.Delta.ToolCalls}); err != nil {
				return err
			}
		}

		// A deferred interruption fires as soon as no tool call is being
		// forwarded.
		if havePending && !interrupted && !toolCallChunk {
			if err := emitInterruption(pendingDoc); err != nil {
				return err
			}
		}

		// Stride crossing supersedes the previous evaluation with one seeing
		// the latest accumulated output.
		if newStrides := len(accumulated) / o.opts.ReevalStride; newStrides > strides {
			strides = newStrides
			latest.cancel()
			latest = o.spawnEval(ctx, worker.EvalRequest{
				UserQuery:     userQuery,
				Conversation:  req.Messages,
				SpeakerOutput: accumulated,
			})
			latestConsumed = false
		}

		// Non-blocking poll of the latest evaluation.
		if !latestConsumed {
			select {
			case res := <-latest.done:
				latestConsumed = true
				if err := applyVerdict(res, toolCallChunk); err != nil {
					return err
				}
			default:
			}
		}
	}

	// A stream cut short by timeout or upstream cancellation is a failure
	// even when partial output already went out.
	if err := ctx.Err(); err != nil {
		return o.emitSpeakerFailure(emit, err)
	}

	// Final verdict: await the outstanding evaluation and apply it once more.
	if !latestConsumed && !interrupted {
		select {
		case res := <-latest.done:
			latestConsumed = true
			if err := applyVerdict(res, false); err != nil {
				return err
			}
		case <-ctx.Done():
		}
	}
	if havePending && !interrupted {
		if err := emitInterruption(pendingDoc); err != nil {
			return err
		}
	}

	if req.JSONMode {
		if err := emitEvent(Event{Content: renderJSONBody(accumulated)}); err != nil {
			return err
		}
		if jsonHeld {
			if err := emitEvent(Event{
				Content:      fmt.Sprintf(interruptionFormat, jsonHeldDoc),
				Interruption: true,
			}); err != nil {
				return err
			}
		}
	}

	finish := speakerFinish
	if finish == "" || finish == llm.FinishReasonError {
		finish = llm.FinishReasonStop
	}
	if sawToolCalls {
		finish = llm.FinishReasonToolCalls
	}
	if err := emitEvent(Event{FinishReason: finish}); err != nil {
		return err
	}

	o.scheduleWriteback(ctx, userQuery, accumulated)
	return nil
}

// RunBlocking executes a non-streaming request: both workers run
// concurrently, then the response is composed with the interruption appended
// when the Executive ordered one.
func (o *Orchestrator) RunBlocking(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.RequestTimeout)
	defer cancel()

	userQuery := worker.LastUserQuery(req.Messages)
	contextText := o.prefetch(ctx, userQuery)

	var (
		speakerResp *llm.CompletionResponse
		verdict     worker.Verdict
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := o.speaker.Complete(gctx, speakerRequest(req, contextText))
		if err != nil {
			return types.WrapError(types.SPEAKER_FAILED, "speaker completion failed", err)
		}
		speakerResp = resp
		return nil
	})
	g.Go(func() error {
		v, err := o.executive.Evaluate(gctx, worker.EvalRequest{
			UserQuery:    userQuery,
			Conversation: req.Messages,
		})
		if err != nil {
			o.logger.Warn("executive evaluation failed, treating as no action", "error", err)
			v = worker.Verdict{Action: worker.ActionNone}
		}
		verdict = v
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	content := speakerResp.Message.Content
	if verdict.Action == worker.ActionInterrupt {
		content += fmt.Sprintf(interruptionFormat, verdict.Document)
	}

	o.scheduleWriteback(ctx, userQuery, speakerResp.Message.Content)

	return &Response{
		Content:      content,
		ToolCalls:    speakerResp.Message.ToolCalls,
		FinishReason: speakerResp.FinishReason,
	}, nil
}

// speakerRequest maps the normalized request onto the Speaker, attaching the
// prefetched knowledge context.
func speakerRequest(req Request, contextText string) worker.SpeakerRequest {
	return worker.SpeakerRequest{
		Model:            req.Model,
		Messages:         req.Messages,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		MaxTokens:        req.MaxTokens,
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
		StopSequences:    req.StopSequences,
		Tools:            req.Tools,
		ToolChoice:       req.ToolChoice,
		JSONMode:         req.JSONMode,
		ContextText:      contextText,
	}
}

// emitSpeakerFailure applies the SpeakerFailed policy: an error chunk, then a
// stop finish reason. The transport still appends its terminator.
func (o *Orchestrator) emitSpeakerFailure(emit EmitFunc, cause error) error {
	o.logger.Error("speaker failed", "error", cause)

	if err := emit(Event{
		Role:    llm.RoleAssistant,
		Content: fmt.Sprintf("Error: %v", cause),
	}); err != nil {
		return types.WrapError(types.CLIENT_DISCONNECT, "client went away", err)
	}
	if err := emit(Event{FinishReason: llm.FinishReasonStop}); err != nil {
		return types.WrapError(types.CLIENT_DISCONNECT, "client went away", err)
	}
	return nil
}

// scheduleWriteback records the exchange in the background. The writeback
// survives request cancellation; failures are logged and swallowed.
func (o *Orchestrator) scheduleWriteback(ctx context.Context, userQuery, assistantOutput string) {
	if userQuery == "" || assistantOutput == "" {
		return
	}

	wbCtx, wbCancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	o.writebacks.Add(1)
	go func() {
		defer o.writebacks.Done()
		defer wbCancel()
		if err := o.executive.Writeback(wbCtx, userQuery, assistantOutput); err != nil {
			o.logger.Warn("writeback failed", "error", err)
		}
	}()
}

// renderJSONBody turns the buffered JSON-mode output into the single chunk
// body: the extracted JSON on success, a structured parse-failure object
// otherwise.
func renderJSONBody(raw string) string {
	if jsonStr, err := llm.ExtractJSON(raw); err == nil {
		return jsonStr
	}

	fallback, err := json.Marshal(map[string]string{
		"error":   "Failed to parse as JSON",
		"content": raw,
	})
	if err != nil {
		return `{"error":"Failed to parse as JSON"}`
	}
	return string(fallback)
}
