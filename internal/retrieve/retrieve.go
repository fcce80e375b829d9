// Package retrieve implements the Hybrid Retriever of spec §4.6: a fixed
// documentation corpus searched by endpoint-aware prefiltering, parallel
// BM25 and dense-embedding scoring, and reciprocal-rank fusion.
package retrieve

import (
	"context"
	"fmt"

	"github.com/fdadevices/openfda-agent/internal/model"
)

const (
	perListTopK = 50
	rrfConstant = 60
	defaultTopK = 8
)

// Retriever answers both call sites the agent controller uses it from:
// endpoint-hint surfacing at plan time, and canonical-field lookup when the
// extractor reports a low-confidence field (spec §4.6).
type Retriever struct {
	index *Index
	dense *denseIndex
}

// New builds a Retriever over the fixed corpus plus any operator-supplied
// chunks (e.g. from IngestHTML), embedding every chunk once up front.
func New(ctx context.Context, embedder Embedder, extra ...model.CorpusChunk) (*Retriever, error) {
	chunks := append(BuildCorpus(), extra...)

	index, err := NewIndex(ctx, chunks)
	if err != nil {
		return nil, err
	}
	dense, err := newDenseIndex(ctx, embedder, chunks)
	if err != nil {
		index.Close()
		return nil, err
	}
	return &Retriever{index: index, dense: dense}, nil
}

func (r *Retriever) Close() error {
	return r.index.Close()
}

// Retrieve runs the full 4-step algorithm (spec §4.6) and returns the top K
// fused chunks plus the endpoint hints that fired, for the planner to read.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]model.CorpusChunk, []string, error) {
	if topK <= 0 {
		topK = defaultTopK
	}
	hints := ExtractEndpointHints(query)

	bm25IDs, err := r.index.BM25Search(ctx, query, hints, perListTopK)
	if err != nil {
		return nil, hints, err
	}

	pool := r.candidatePool(hints)
	denseIDs, err := r.dense.Search(ctx, query, pool, perListTopK)
	if err != nil {
		return nil, hints, err
	}

	fused := reciprocalRankFusion(topK, bm25IDs, denseIDs)
	chunks := make([]model.CorpusChunk, 0, len(fused))
	for _, id := range fused {
		if c, ok := r.index.Chunk(id); ok {
			chunks = append(chunks, c)
		}
	}
	return chunks, hints, nil
}

// FieldsForEndpoint returns the canonical field list for endpoint's howto
// chunk, used when the extractor needs a constrained field choice for a
// low-confidence value (spec §4.6's second call site).
func (r *Retriever) FieldsForEndpoint(endpoint string) ([]string, error) {
	c, ok := r.index.Chunk(endpoint + ":howto")
	if !ok {
		return nil, fmt.Errorf("retrieve: no corpus entry for endpoint %q", endpoint)
	}
	return c.Fields, nil
}

func (r *Retriever) candidatePool(hints []string) []string {
	all := r.index.All()
	if len(hints) == 0 {
		ids := make([]string, len(all))
		for i, c := range all {
			ids[i] = c.ID
		}
		return ids
	}
	wanted := map[string]bool{}
	for _, h := range hints {
		wanted[h] = true
	}
	var ids []string
	for _, c := range all {
		if wanted[c.Endpoint] {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// reciprocalRankFusion implements spec §4.6 step 4: for every document's
// rank in each ranked list, accumulate 1/(60+rank); return the top K IDs by
// combined score.
func reciprocalRankFusion(topK int, lists ...[]string) []string {
	scores := map[string]float64{}
	order := []string{}
	for _, list := range lists {
		for rank, id := range list {
			if _, seen := scores[id]; !seen {
				order = append(order, id)
			}
			scores[id] += 1.0 / float64(rrfConstant+rank+1)
		}
	}

	scored := make([]scoredChunk, len(order))
	for i, id := range order {
		scored[i] = scoredChunk{id: id, score: scores[id]}
	}
	return topByScore(scored, topK)
}
