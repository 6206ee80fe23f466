package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"pbidesc/internal/errors"
	"pbidesc/ports"
)

// Config holds the generation endpoint settings
type Config struct {
	BaseURL string        // e.g. http://localhost:11434
	Model   string        // e.g. "llama2"
	Timeout time.Duration // 0 means no client-side timeout
}

// DefaultConfig returns the settings for a stock local Ollama install
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:11434",
		Model:   "llama2",
	}
}

// OllamaClient implements ports.TextGenerator against an Ollama-compatible /api/generate
type OllamaClient struct {
	config     Config
	httpClient *http.Client
}

// NewOllamaClient creates a client; an empty BaseURL falls back to the local default
func NewOllamaClient(config Config) (*OllamaClient, error) {
	if strings.TrimSpace(config.Model) == "" {
		return nil, errors.ConfigInvalid("missing model")
	}
	baseURL := strings.TrimSpace(config.BaseURL)
	if baseURL == "" {
		baseURL = DefaultConfig().BaseURL
	}
	config.BaseURL = strings.TrimRight(baseURL, "/")

	return &OllamaClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

// Model returns the fixed model identifier sent with every request
func (c *OllamaClient) Model() string {
	return c.config.Model
}

// Endpoint returns the full generate URL
func (c *OllamaClient) Endpoint() string {
	return c.config.BaseURL + "/api/generate"
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response        string `json:"response"`
	Model           string `json:"model"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Generate sends one non-streaming request and returns the trimmed response text
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.GenerateWithUsage(ctx, prompt)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// GenerateWithUsage is Generate plus the token counts the endpoint reports
func (c *OllamaClient) GenerateWithUsage(ctx context.Context, prompt string) (*ports.LLMResponse, error) {
	raw, err := json.Marshal(generateRequest{
		Model:  c.config.Model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return nil, errors.GenerationFailure(0, "", fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(raw))
	if err != nil {
		return nil, errors.GenerationFailure(0, "", fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.GenerationFailure(0, "", err)
	}
	defer resp.Body.Close()

	respRaw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.GenerationFailure(0, "", fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.GenerationFailure(resp.StatusCode, string(respRaw), nil)
	}

	var decoded generateResponse
	if err := json.Unmarshal(respRaw, &decoded); err != nil {
		return nil, errors.GenerationFailure(0, "", fmt.Errorf("unmarshal response: %w", err))
	}

	model := decoded.Model
	if model == "" {
		model = c.config.Model
	}
	return &ports.LLMResponse{
		Content: strings.TrimSpace(decoded.Response),
		Usage: &ports.UsageData{
			PromptTokens:     decoded.PromptEvalCount,
			CompletionTokens: decoded.EvalCount,
			Model:            model,
		},
	}, nil
}

// MockTextGenerator is a scripted generator for tests and dry runs
type MockTextGenerator struct {
	Response string // returned for every prompt when Respond is nil
	Error    error  // set this to simulate failures
	Respond  func(prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

func (m *MockTextGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.Respond != nil {
		return m.Respond(prompt)
	}
	if m.Error != nil {
		return "", m.Error
	}
	return m.Response, nil
}

// Prompts returns the prompts received so far, in call order
func (m *MockTextGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}
