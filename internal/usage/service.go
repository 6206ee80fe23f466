package usage

import (
	"log"
	"sync"

	"pbidesc/ports"
)

// Totals is a snapshot of the token counts recorded so far
type Totals struct {
	Calls            int            `json:"calls"`
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
	TotalTokens      int            `json:"total_tokens"`
	ByModel          map[string]int `json:"by_model"`
}

// Service accumulates token usage reported by the generation endpoint.
// It is safe for concurrent use.
type Service struct {
	mu     sync.Mutex
	totals Totals
}

// NewService creates an empty usage tally
func NewService() *Service {
	return &Service{totals: Totals{ByModel: make(map[string]int)}}
}

// RecordUsage adds one call's usage; malformed data is logged and ignored
func (s *Service) RecordUsage(usage *ports.UsageData) {
	if usage == nil {
		return
	}
	if usage.PromptTokens < 0 || usage.CompletionTokens < 0 {
		log.Printf("[UsageService] ERROR: invalid token counts: %+v", usage)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	total := usage.PromptTokens + usage.CompletionTokens
	s.totals.Calls++
	s.totals.PromptTokens += usage.PromptTokens
	s.totals.CompletionTokens += usage.CompletionTokens
	s.totals.TotalTokens += total
	s.totals.ByModel[usage.Model] += total
}

// Totals returns a copy of the running totals
func (s *Service) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.totals
	out.ByModel = make(map[string]int, len(s.totals.ByModel))
	for model, tokens := range s.totals.ByModel {
		out.ByModel[model] = tokens
	}
	return out
}
