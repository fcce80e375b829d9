package openai

import (
	"context"
	"fmt"

	openailib "github.com/sashabaranov/go-openai"
)

// Embed returns one embedding vector per input text, in the same order,
// using the client's configured embedding model. It backs the Hybrid
// Retriever's dense-similarity scoring pass.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openailib.EmbeddingRequestStrings{
		Input: texts,
		Model: openailib.EmbeddingModel(c.config.EmbeddingModel),
	}

	resp, err := c.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("create embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		out[d.Index] = d.Embedding
	}
	return out, nil
}
