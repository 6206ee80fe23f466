package llm

import (
	"context"
	"fmt"
	"log"

	"pbidesc/internal/errors"
	"pbidesc/ports"
)

// Describer turns generator failures into displayable description text,
// so one bad row never stops a batch.
type Describer struct {
	generator ports.TextGenerator
	recorder  UsageRecorder
}

// UsageRecorder receives the token counts of each successful call
type UsageRecorder interface {
	RecordUsage(usage *ports.UsageData)
}

// NewDescriber wraps a generator
func NewDescriber(generator ports.TextGenerator) *Describer {
	return &Describer{generator: generator}
}

// WithUsageRecorder reports token usage to recorder after every call
func (d *Describer) WithUsageRecorder(recorder UsageRecorder) *Describer {
	d.recorder = recorder
	return d
}

// Describe returns the generated description, or the failure rendered as text
func (d *Describer) Describe(ctx context.Context, prompt string) string {
	if reporter, ok := d.generator.(ports.UsageReportingGenerator); ok {
		resp, err := reporter.GenerateWithUsage(ctx, prompt)
		if err != nil {
			return FailureText(err)
		}
		if resp.Usage != nil {
			log.Printf("[Describer] %s used %d prompt / %d completion tokens",
				resp.Usage.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
			if d.recorder != nil {
				d.recorder.RecordUsage(resp.Usage)
			}
		}
		return resp.Content
	}

	text, err := d.generator.Generate(ctx, prompt)
	if err != nil {
		return FailureText(err)
	}
	return text
}

// FailureText renders a generation error the way it is stored in the Description column
func FailureText(err error) string {
	if status, body, ok := errors.ResponseStatus(err); ok {
		log.Printf("[Describer] Generation endpoint returned %d", status)
		return fmt.Sprintf("Error: %d - %s", status, body)
	}
	log.Printf("[Describer] Generation request failed: %v", err)
	return fmt.Sprintf("Exception: %v", err)
}
