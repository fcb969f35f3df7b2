package data

import (
	"context"

	"github.com/chatmate/chatmate/internal/biz/repo"
	"github.com/chatmate/chatmate/internal/infra/openai"
)

// llmRepo implements the LLM repository on an OpenAI-compatible client
type llmRepo struct {
	client *openai.Client
}

// NewLLMRepo creates an LLM repository, returns nil if the client is nil
func NewLLMRepo(client *openai.Client) repo.LLMRepo {
	if client == nil {
		return nil
	}
	return &llmRepo{client: client}
}

// Complete sends a single-turn prompt
func (r *llmRepo) Complete(ctx context.Context, prompt string) (string, error) {
	return r.client.Complete(ctx, prompt)
}

// Embed returns the embedding vector of text
func (r *llmRepo) Embed(ctx context.Context, text string) ([]float32, error) {
	return r.client.Embed(ctx, text)
}
