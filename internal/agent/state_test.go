package agent

import (
	"testing"
	"time"

	"github.com/fdadevices/openfda-agent/internal/model"
)

func TestSelectedEndpoints_DedupesInCallOrder(t *testing.T) {
	s := &AgentState{ToolCalls: []model.ToolCall{
		{ToolName: "search_recalls"},
		{ToolName: "search_events"},
		{ToolName: "search_recalls"},
	}}
	got := s.SelectedEndpoints()
	want := []string{"search_recalls", "search_events"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("SelectedEndpoints() = %v, want %v", got, want)
	}
}

func TestResultCount_SumsAcrossCalls(t *testing.T) {
	s := &AgentState{ToolCalls: []model.ToolCall{
		{Result: &model.ToolResult{Results: []model.RawRecord{{}, {}}}},
		{Result: &model.ToolResult{Results: []model.RawRecord{{}}}},
		{Error: "timeout"},
	}}
	if got := s.resultCount(); got != 3 {
		t.Errorf("resultCount() = %d, want 3", got)
	}
}

func TestDossierPopulated_TrueWhenAnyDossierEndpointHasResults(t *testing.T) {
	s := &AgentState{ToolCalls: []model.ToolCall{
		{ToolName: "search_recalls", Result: &model.ToolResult{}},
		{ToolName: "search_events", Result: &model.ToolResult{}},
		{ToolName: "search_classifications", Result: &model.ToolResult{Results: []model.RawRecord{{"a": 1}}}},
	}}
	if !s.dossierPopulated() {
		t.Error("expected dossierPopulated() true when one endpoint has results")
	}
}

func TestDossierPopulated_FalseWhenAllEmpty(t *testing.T) {
	s := &AgentState{ToolCalls: []model.ToolCall{
		{ToolName: "search_recalls", Result: &model.ToolResult{}},
		{ToolName: "search_events", Result: &model.ToolResult{}},
		{ToolName: "search_classifications", Result: &model.ToolResult{}},
	}}
	if s.dossierPopulated() {
		t.Error("expected dossierPopulated() false when every endpoint is empty")
	}
}

func TestDossierPopulated_IgnoresUnrelatedEndpoints(t *testing.T) {
	s := &AgentState{ToolCalls: []model.ToolCall{
		{ToolName: "search_510k", Result: &model.ToolResult{Results: []model.RawRecord{{"a": 1}}}},
	}}
	if s.dossierPopulated() {
		t.Error("expected dossierPopulated() false for a non-dossier endpoint, even with results")
	}
}

func TestPlannedCall_ArgsRoundTrip(t *testing.T) {
	pc := PlannedCall{Name: "search_recalls", Args: []byte(`{"product_code":"ABC"}`)}
	if pc.Name != "search_recalls" {
		t.Errorf("Name = %q", pc.Name)
	}
	if string(pc.Args) != `{"product_code":"ABC"}` {
		t.Errorf("Args = %s", pc.Args)
	}
}

func TestAgentState_StartedAtIsRecorded(t *testing.T) {
	now := time.Now()
	s := &AgentState{StartedAt: now}
	if !s.StartedAt.Equal(now) {
		t.Error("expected StartedAt to round-trip")
	}
}
