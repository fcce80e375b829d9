package openfda

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/fdadevices/openfda-agent/internal/model"
)

func TestClearancesTool_AutoDetectKNumber(t *testing.T) {
	var gotSearch string
	c := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		gotSearch = r.URL.Query().Get("search")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"meta":    map[string]any{"results": map[string]any{"total": 0}},
			"results": []map[string]any{},
		})
	})

	tool := NewClearancesTool(c)
	args, _ := json.Marshal(model.ExtractedParameters{DeviceName: "K123456"})
	result, err := tool.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Error != "" {
		t.Fatalf("unexpected tool error: %s", result.Error)
	}
	if gotSearch != "k_number:K123456" {
		t.Errorf("search = %q, want k_number:K123456 (device_name should reroute)", gotSearch)
	}
}

func TestClearancesTool_PlainDeviceNameNotRerouted(t *testing.T) {
	var gotSearch string
	c := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		gotSearch = r.URL.Query().Get("search")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"meta":    map[string]any{"results": map[string]any{"total": 0}},
			"results": []map[string]any{},
		})
	})

	tool := NewClearancesTool(c)
	args, _ := json.Marshal(model.ExtractedParameters{DeviceName: "infusion pump"})
	if _, err := tool.Execute(context.Background(), args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotSearch != `device_name:"infusion pump"` {
		t.Errorf("search = %q, want quoted device_name clause", gotSearch)
	}
}

func TestClearancesTool_DateRangeCombinesWithOtherClauses(t *testing.T) {
	var gotSearch string
	c := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		gotSearch = r.URL.Query().Get("search")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"meta":    map[string]any{"results": map[string]any{"total": 0}},
			"results": []map[string]any{},
		})
	})

	tool := NewClearancesTool(c)
	args, _ := json.Marshal(model.ExtractedParameters{ProductCode: "FXX", DateStart: "20200101", DateEnd: "20201231"})
	if _, err := tool.Execute(context.Background(), args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotSearch != "product_code:FXX AND decision_date:[20200101 TO 20201231]" {
		t.Errorf("search = %q, want product_code clause AND decision_date range", gotSearch)
	}
}

func TestClearancesTool_BadJSON(t *testing.T) {
	tool := NewClearancesTool(newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("should not issue an HTTP request for invalid JSON args")
	}))
	result, err := tool.Execute(context.Background(), []byte(`not json`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Error == "" {
		t.Error("expected error for invalid JSON args")
	}
}

func TestClearancesTool_Interface(t *testing.T) {
	tool := NewClearancesTool(nil)
	if tool.Name() != "search_510k" {
		t.Errorf("Name() = %q", tool.Name())
	}
	if tool.Description() == "" {
		t.Error("Description() should not be empty")
	}
	var schema map[string]any
	if err := json.Unmarshal(tool.InputSchema(), &schema); err != nil {
		t.Fatalf("InputSchema() is not valid JSON: %v", err)
	}
	if err := tool.Init(context.Background()); err != nil {
		t.Errorf("Init() error: %v", err)
	}
	if err := tool.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}
