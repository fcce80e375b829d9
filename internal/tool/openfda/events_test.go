package openfda

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/fdadevices/openfda-agent/internal/model"
)

func TestEventsTool_RequiresAtLeastOneIdentifyingField(t *testing.T) {
	tool := NewEventsTool(newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("should not issue a request with no identifying field set")
	}))
	args, _ := json.Marshal(model.ExtractedParameters{EventType: "injury"})
	result, err := tool.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Error == "" {
		t.Error("expected a validation error when no identifying field is set")
	}
}

func TestEventsTool_CountryPassedThroughAsISO(t *testing.T) {
	var gotSearch string
	c := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		gotSearch = r.URL.Query().Get("search")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"meta":    map[string]any{"results": map[string]any{"total": 0}},
			"results": []map[string]any{},
		})
	})

	tool := NewEventsTool(c)
	args, _ := json.Marshal(model.ExtractedParameters{Country: "CN"})
	if _, err := tool.Execute(context.Background(), args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotSearch != "device.manufacturer_d_country:CN" {
		t.Errorf("search = %q, want device.manufacturer_d_country:CN", gotSearch)
	}
}
