package retrieve

import (
	"context"
	"strings"
	"testing"
)

// fakeEmbedder returns a deterministic low-dimensional vector derived from
// word overlap with a fixed vocabulary, good enough to exercise cosine
// ranking without a real embeddings API.
type fakeEmbedder struct {
	vocab []string
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		lower := strings.ToLower(t)
		vec := make([]float32, len(f.vocab))
		for j, word := range f.vocab {
			if strings.Contains(lower, word) {
				vec[j] = 1
			}
		}
		out[i] = vec
	}
	return out, nil
}

func newTestRetriever(t *testing.T) *Retriever {
	t.Helper()
	embedder := &fakeEmbedder{vocab: []string{"510k", "recall", "udi", "classification", "pma", "event", "registration"}}
	r, err := New(context.Background(), embedder)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestExtractEndpointHints(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"show me K123456", ""},
		{"what 510k clearances exist for this device", "510k"},
		{"class I recalls in 2023", "enforcement"},
		{"adverse event reports from China", "event"},
		{"UDI lookup for this brand", "udi"},
	}
	for _, tt := range tests {
		hints := ExtractEndpointHints(tt.query)
		if tt.want == "" {
			continue
		}
		found := false
		for _, h := range hints {
			if h == tt.want {
				found = true
			}
		}
		if !found {
			t.Errorf("ExtractEndpointHints(%q) = %v, want to include %q", tt.query, hints, tt.want)
		}
	}
}

func TestRetriever_RetrieveFiltersByHint(t *testing.T) {
	r := newTestRetriever(t)
	chunks, hints, err := r.Retrieve(context.Background(), "510k clearance lookup", 5)
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if len(hints) == 0 || hints[0] != "510k" {
		t.Errorf("hints = %v, want [510k]", hints)
	}
	for _, c := range chunks {
		if c.Endpoint != "510k" {
			t.Errorf("chunk %q has endpoint %q, want only 510k chunks when a 510k hint fires", c.ID, c.Endpoint)
		}
	}
}

func TestRetriever_RetrieveNoHintSearchesWholeCorpus(t *testing.T) {
	r := newTestRetriever(t)
	chunks, hints, err := r.Retrieve(context.Background(), "how do these filters work", 5)
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if len(hints) != 0 {
		t.Errorf("hints = %v, want none", hints)
	}
	if len(chunks) == 0 {
		t.Error("expected at least one chunk back for a generic query")
	}
}

func TestRetriever_FieldsForEndpoint(t *testing.T) {
	r := newTestRetriever(t)
	fields, err := r.FieldsForEndpoint("510k")
	if err != nil {
		t.Fatalf("FieldsForEndpoint() error: %v", err)
	}
	if len(fields) == 0 {
		t.Error("expected a non-empty canonical field list for 510k")
	}
}

func TestRetriever_FieldsForUnknownEndpoint(t *testing.T) {
	r := newTestRetriever(t)
	if _, err := r.FieldsForEndpoint("not-a-real-endpoint"); err == nil {
		t.Error("expected an error for an unknown endpoint")
	}
}

func TestReciprocalRankFusion(t *testing.T) {
	a := []string{"x", "y", "z"}
	b := []string{"y", "x", "w"}
	fused := reciprocalRankFusion(2, a, b)
	if len(fused) != 2 {
		t.Fatalf("len(fused) = %d, want 2", len(fused))
	}
	if fused[0] != "x" && fused[0] != "y" {
		t.Errorf("fused[0] = %q, want x or y (both appear near the top of both lists)", fused[0])
	}
}
