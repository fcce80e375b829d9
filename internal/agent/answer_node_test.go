package agent

import (
	"strings"
	"testing"

	"github.com/fdadevices/openfda-agent/internal/model"
)

func TestBuildResultsTable_EmptyWithNoResults(t *testing.T) {
	calls := []model.ToolCall{{ToolName: "search_recalls", Result: &model.ToolResult{}}}
	if got := buildResultsTable(calls); got != "" {
		t.Errorf("expected empty table, got %q", got)
	}
}

func TestBuildResultsTable_RendersHeaderAndRows(t *testing.T) {
	calls := []model.ToolCall{{
		ToolName: "search_recalls",
		Result: &model.ToolResult{Results: []model.RawRecord{
			{"product_code": "DXY", "recall_status": "Ongoing"},
		}},
	}}
	got := buildResultsTable(calls)
	if !strings.Contains(got, "product_code") || !strings.Contains(got, "DXY") {
		t.Errorf("expected table to contain column and value, got:\n%s", got)
	}
	if !strings.Contains(got, "---") {
		t.Error("expected a markdown header separator row")
	}
}

func TestBuildResultsTable_CapsAtMaxRows(t *testing.T) {
	records := make([]model.RawRecord, 25)
	for i := range records {
		records[i] = model.RawRecord{"n": i}
	}
	calls := []model.ToolCall{{Result: &model.ToolResult{Results: records}}}
	got := buildResultsTable(calls)
	rowCount := strings.Count(got, "\n") - 2 // header + separator lines
	if rowCount > maxTableRows {
		t.Errorf("rendered %d rows, want at most %d", rowCount, maxTableRows)
	}
}

func TestCellValue_EscapesPipesAndTruncates(t *testing.T) {
	if got := cellValue("a|b"); got != "a/b" {
		t.Errorf("cellValue(%q) = %q, want a/b", "a|b", got)
	}
	long := strings.Repeat("x", 100)
	got := cellValue(long)
	if len(got) != 60 {
		t.Errorf("expected truncated length 60, got %d", len(got))
	}
	if got := cellValue(nil); got != "" {
		t.Errorf("cellValue(nil) = %q, want empty", got)
	}
}

func TestBuildProvenanceBlock_ListsFailuresWithReason(t *testing.T) {
	calls := []model.ToolCall{
		{ToolName: "search_events", Error: "transport: connection refused"},
		{ToolName: "search_recalls", Result: &model.ToolResult{Endpoint: "enforcement", QueryExpression: "recall_class:\"Class I\"", Meta: model.ResultMeta{Total: 4, LastUpdated: "2026-07-01"}}},
	}
	got := buildProvenanceBlock(calls, 1)
	if !strings.Contains(got, "search_events: failed") || !strings.Contains(got, "connection refused") {
		t.Errorf("expected failed-tool line with reason, got:\n%s", got)
	}
	if !strings.Contains(got, "enforcement") || !strings.Contains(got, "results=4") {
		t.Errorf("expected successful-tool provenance line, got:\n%s", got)
	}
}

func TestBuildProvenanceBlock_NoCallsMade(t *testing.T) {
	got := buildProvenanceBlock(nil, 0)
	if !strings.Contains(got, "no tool calls were made") {
		t.Errorf("expected no-calls line, got %q", got)
	}
}
