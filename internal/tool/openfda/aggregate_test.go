package openfda

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
)

func TestProbeCount(t *testing.T) {
	c := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("count") != "country" {
			t.Errorf("count = %q, want country", r.URL.Query().Get("count"))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"meta": map[string]any{"results": map[string]any{}},
			"results": []map[string]any{
				{"term": "CN", "count": 42.0},
				{"term": "DE", "count": 7.0},
			},
		})
	})

	agg, err := ProbeCount(context.Background(), c, "registrationlisting", "country", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(agg.Terms) != 2 {
		t.Fatalf("terms = %d, want 2", len(agg.Terms))
	}
	if agg.Terms[0].Term != "CN" || agg.Terms[0].Count != 42 {
		t.Errorf("terms[0] = %+v, want {CN 42}", agg.Terms[0])
	}
}

func TestPaginate_StopsOnEmptyPage(t *testing.T) {
	calls := 0
	c := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls <= 2 {
			json.NewEncoder(w).Encode(map[string]any{
				"meta":    map[string]any{"results": map[string]any{}},
				"results": []map[string]any{{"k": calls}},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"meta":    map[string]any{"results": map[string]any{}},
			"results": []map[string]any{},
		})
	})

	records, err := Paginate(context.Background(), c, "510k", "", 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("records = %d, want 2", len(records))
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (two pages plus the empty terminator)", calls)
	}
}

func TestPaginate_StopsAtCap(t *testing.T) {
	c := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"meta":    map[string]any{"results": map[string]any{}},
			"results": []map[string]any{{"a": 1}, {"a": 2}, {"a": 3}},
		})
	})

	records, err := Paginate(context.Background(), c, "510k", "", 3, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 5 {
		t.Errorf("records = %d, want exactly cap=5", len(records))
	}
}
