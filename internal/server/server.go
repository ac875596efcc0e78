// Package server is the OpenAI-compatible HTTP surface: chat completions with
// SSE streaming, an embeddings endpoint, health, and the debug query
// sub-surface. Per-request headers may override either worker's model,
// provider, key, or endpoint.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ermiller24/executive-layer/internal/config"
	"github.com/ermiller24/executive-layer/internal/embedding"
	"github.com/ermiller24/executive-layer/internal/knowledge"
	"github.com/ermiller24/executive-layer/internal/llm"
	"github.com/ermiller24/executive-layer/internal/llm/providers"
	"github.com/ermiller24/executive-layer/internal/orchestrator"
)

// ProviderFactory builds an LLM provider from a worker configuration. Tests
// substitute a factory returning mocks.
type ProviderFactory func(cfg llm.ProviderConfig) (llm.Provider, error)

// Server wires the HTTP surface to the orchestrator and the knowledge layer.
type Server struct {
	cfg      *config.Config
	tools    *knowledge.Tools
	embedder embedding.Provider
	logger   *slog.Logger
	factory  ProviderFactory
	router   chi.Router

	// providerCache reuses clients across requests with the same worker
	// settings.
	cacheMu       sync.Mutex
	providerCache map[string]llm.Provider

	writebacks sync.WaitGroup
}

// New creates a Server. A nil factory uses the real provider backends.
func New(cfg *config.Config, tools *knowledge.Tools, embedder embedding.Provider, logger *slog.Logger, factory ProviderFactory) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if factory == nil {
		factory = providers.NewProvider
	}

	s := &Server{
		cfg:           cfg,
		tools:         tools,
		embedder:      embedder,
		logger:        logger,
		factory:       factory,
		providerCache: make(map[string]llm.Provider),
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.logRequests)

	r.Post("/v1/chat/completions", s.handleChatCompletions)
	r.Post("/v1/embeddings", s.handleEmbeddings)
	r.Get("/health", s.handleHealth)
	if cfg.Server.Debug {
		r.Post("/debug/query", s.handleDebugQuery)
	}

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf(":%d", s.cfg.Server.Port)
}

// WaitForWritebacks blocks until background writebacks have drained. Used on
// shutdown.
func (s *Server) WaitForWritebacks() {
	s.writebacks.Wait()
}

// logRequests logs one line per request with the chi request id.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			"request_id", chimiddleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// provider returns a cached or freshly built provider for the worker config.
func (s *Server) provider(cfg llm.ProviderConfig) (llm.Provider, error) {
	key := fmt.Sprintf("%s|%s|%s|%s", cfg.Type, cfg.DefaultModel, cfg.APIKey, cfg.BaseURL)

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if p, ok := s.providerCache[key]; ok {
		return p, nil
	}

	p, err := s.factory(cfg)
	if err != nil {
		return nil, err
	}
	s.providerCache[key] = p
	return p, nil
}

// workerConfig resolves one worker's provider configuration from the server
// defaults and the request's override headers (x-<worker>-model,
// x-<worker>-model-provider, x-<worker>-api-key, x-<worker>-api-base).
func (s *Server) workerConfig(r *http.Request, worker string, base config.WorkerLLMConfig) llm.ProviderConfig {
	cfg := llm.ProviderConfig{
		Type:         base.Provider,
		DefaultModel: base.Model,
		APIKey:       base.APIKey,
		BaseURL:      base.BaseURL,
	}
	if cfg.APIKey == "" {
		cfg.APIKey = s.cfg.Server.DefaultAPIKey
	}

	if v := r.Header.Get("x-" + worker + "-model"); v != "" {
		cfg.DefaultModel = v
	}
	if v := r.Header.Get("x-" + worker + "-model-provider"); v != "" {
		cfg.Type = v
	}
	if v := r.Header.Get("x-" + worker + "-api-key"); v != "" {
		cfg.APIKey = v
	}
	if v := r.Header.Get("x-" + worker + "-api-base"); v != "" {
		cfg.BaseURL = v
	}

	return cfg
}

// orchestratorFor assembles the per-request orchestrator from the resolved
// worker providers.
func (s *Server) orchestratorFor(r *http.Request) (*orchestrator.Orchestrator, error) {
	speakerProvider, err := s.provider(s.workerConfig(r, "speaker", s.cfg.Speaker))
	if err != nil {
		return nil, err
	}
	execProvider, err := s.provider(s.workerConfig(r, "executive", s.cfg.Executive))
	if err != nil {
		return nil, err
	}

	execModel := s.cfg.Executive.Model
	if v := r.Header.Get("x-executive-model"); v != "" {
		execModel = v
	}

	return newRequestOrchestrator(s, speakerProvider, execProvider, execModel), nil
}
