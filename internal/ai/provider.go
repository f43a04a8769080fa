package ai

import "context"

// Params tune a single completion call.
type Params struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Provider is the external generation service. Calls are fallible and carry
// no retry guarantee; callers supply their own failure policy.
type Provider interface {
	Complete(ctx context.Context, systemPrompt string, userPrompt string, params Params) (string, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
}
