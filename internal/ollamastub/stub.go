// Package ollamastub serves a minimal stand-in for a local Ollama
// /api/generate endpoint, for demos without a model and for tests.
package ollamastub

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// GenerateRequest mirrors the body the description client sends
type GenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// GenerateResponse mirrors the non-streaming Ollama response
type GenerateResponse struct {
	Model           string    `json:"model"`
	CreatedAt       time.Time `json:"created_at"`
	Response        string    `json:"response"`
	Done            bool      `json:"done"`
	PromptEvalCount int       `json:"prompt_eval_count"`
	EvalCount       int       `json:"eval_count"`
}

// Options configures the stub
type Options struct {
	// Responder produces the response text; defaults to EchoResponder.
	Responder func(req GenerateRequest) string
	// FailStatus, when non-zero, makes every call fail with this status and FailBody.
	FailStatus int
	FailBody   string
	// OmitResponse drops the "response" field from successful replies.
	OmitResponse bool
	RequestLog   bool
}

// Stub is an http.Handler that records every generate request it receives
type Stub struct {
	router   *chi.Mux
	opts     Options
	mu       sync.Mutex
	requests []GenerateRequest
}

// New creates a stub with chi routing
func New(opts Options) *Stub {
	if opts.Responder == nil {
		opts.Responder = EchoResponder
	}
	s := &Stub{router: chi.NewRouter(), opts: opts}

	if opts.RequestLog {
		s.router.Use(middleware.Logger)
	}
	s.router.Use(middleware.Recoverer)

	s.router.Post("/api/generate", s.handleGenerate)
	s.router.Get("/api/tags", s.handleTags)
	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Ollama is running"))
	})
	return s
}

func (s *Stub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Requests returns a copy of the requests received so far, in arrival order
func (s *Stub) Requests() []GenerateRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]GenerateRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Stub) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"invalid request: %v"}`, err), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if s.opts.FailStatus != 0 {
		w.WriteHeader(s.opts.FailStatus)
		w.Write([]byte(s.opts.FailBody))
		return
	}
	if req.Model == "" {
		http.Error(w, `{"error":"model is required"}`, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if s.opts.OmitResponse {
		json.NewEncoder(w).Encode(map[string]interface{}{"model": req.Model, "done": true})
		return
	}

	text := s.opts.Responder(req)
	resp := GenerateResponse{
		Model:           req.Model,
		CreatedAt:       time.Now().UTC(),
		Response:        text,
		Done:            true,
		PromptEvalCount: len(strings.Fields(req.Prompt)),
		EvalCount:       len(strings.Fields(text)),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("[OllamaStub] Failed to encode response: %v", err)
	}
}

func (s *Stub) handleTags(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"models": []map[string]string{{"name": "stub"}},
	})
}

// EchoResponder returns a canned description naming the prompt's subject
func EchoResponder(req GenerateRequest) string {
	firstLine := req.Prompt
	if i := strings.IndexByte(firstLine, '\n'); i >= 0 {
		firstLine = firstLine[:i]
	}
	subject := "this field"
	if start := strings.Index(firstLine, "named '"); start >= 0 {
		rest := firstLine[start+len("named '"):]
		if end := strings.IndexByte(rest, '\''); end >= 0 {
			subject = rest[:end]
		}
	}
	return fmt.Sprintf("  %s holds a value used in Power BI reports.  ", subject)
}
