package retrieve

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/fdadevices/openfda-agent/internal/model"
)

// Embedder produces one embedding vector per input text, in order. Backed
// by internal/llm/openai.Client.Embed in production.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// denseIndex holds precomputed chunk embeddings for cosine-similarity
// scoring, the dense half of spec §4.6 step 3.
type denseIndex struct {
	embedder Embedder
	vectors  map[string][]float32 // chunk ID -> embedding
}

// newDenseIndex embeds every chunk once, up front, so each query only costs
// a single embedding call against a cached corpus.
func newDenseIndex(ctx context.Context, embedder Embedder, chunks []model.CorpusChunk) (*denseIndex, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("retrieve: embed corpus: %w", err)
	}
	if len(vecs) != len(chunks) {
		return nil, fmt.Errorf("retrieve: embedded %d chunks, expected %d", len(vecs), len(chunks))
	}

	vectors := make(map[string][]float32, len(chunks))
	for i, c := range chunks {
		vectors[c.ID] = vecs[i]
	}
	return &denseIndex{embedder: embedder, vectors: vectors}, nil
}

// Search embeds query and ranks candidateIDs by cosine similarity against
// their cached corpus vectors, returning up to topK IDs best-first.
func (d *denseIndex) Search(ctx context.Context, query string, candidateIDs []string, topK int) ([]string, error) {
	if len(candidateIDs) == 0 {
		return nil, nil
	}
	queryVecs, err := d.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("retrieve: embed query: %w", err)
	}
	if len(queryVecs) == 0 {
		return nil, fmt.Errorf("retrieve: embed query returned no vector")
	}
	queryVec := queryVecs[0]

	scored := make([]scoredChunk, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		vec, ok := d.vectors[id]
		if !ok {
			continue
		}
		scored = append(scored, scoredChunk{id: id, score: cosineSimilarity(queryVec, vec)})
	}
	return topByScore(scored, topK), nil
}

// cosineSimilarity is the dot product of a and b over the product of their
// norms. It returns 0 when the lengths differ or either vector is empty or
// all zeros.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

type scoredChunk struct {
	id    string
	score float64
}

func topByScore(scored []scoredChunk, topK int) []string {
	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	ids := make([]string, len(scored))
	for i, s := range scored {
		ids[i] = s.id
	}
	return ids
}
