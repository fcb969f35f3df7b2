package repo

import "context"

// LLMRepo is the hosted language model interface
type LLMRepo interface {
	// Complete sends a single-turn prompt and returns the raw model output
	Complete(ctx context.Context, prompt string) (string, error)

	// Embed returns the embedding vector of text
	Embed(ctx context.Context, text string) ([]float32, error)
}
