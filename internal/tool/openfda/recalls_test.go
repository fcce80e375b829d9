package openfda

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/fdadevices/openfda-agent/internal/model"
)

func TestRecallsTool_IgnoresProductCode(t *testing.T) {
	var gotSearch string
	c := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		gotSearch = r.URL.Query().Get("search")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"meta":    map[string]any{"results": map[string]any{"total": 0}},
			"results": []map[string]any{},
		})
	})

	tool := NewRecallsTool(c)
	args, _ := json.Marshal(model.ExtractedParameters{ProductCode: "FXX", FirmName: "Acme"})
	if _, err := tool.Execute(context.Background(), args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(gotSearch, "product_code") {
		t.Errorf("search %q must never reference product_code: enforcement has no such field", gotSearch)
	}
	if gotSearch != "recalling_firm:Acme" {
		t.Errorf("search = %q, want recalling_firm:Acme", gotSearch)
	}
}

func TestRecallsTool_DateRange(t *testing.T) {
	var gotSearch string
	c := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		gotSearch = r.URL.Query().Get("search")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"meta":    map[string]any{"results": map[string]any{"total": 0}},
			"results": []map[string]any{},
		})
	})

	tool := NewRecallsTool(c)
	args, _ := json.Marshal(model.ExtractedParameters{
		RecallClass: "Class II",
		DateStart:   "20200101",
		DateEnd:     "20201231",
	})
	if _, err := tool.Execute(context.Background(), args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `classification:"Class II" AND recall_initiation_date:[20200101 TO 20201231]`
	if gotSearch != want {
		t.Errorf("search = %q, want %q", gotSearch, want)
	}
}
