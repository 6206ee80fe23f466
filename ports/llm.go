package ports

import "context"

// UsageData represents token counts reported by the generation endpoint
type UsageData struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	Model            string `json:"model"`
}

// LLMResponse represents a generation result with usage data
type LLMResponse struct {
	Content string
	Usage   *UsageData
}

// TextGenerator turns a prompt into generated text
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// UsageReportingGenerator is implemented by generators that also expose token usage
type UsageReportingGenerator interface {
	TextGenerator
	GenerateWithUsage(ctx context.Context, prompt string) (*LLMResponse, error)
}

// DescriptionGenerator produces description text for a prompt and never fails;
// generation errors come back as displayable text.
type DescriptionGenerator interface {
	Describe(ctx context.Context, prompt string) string
}
