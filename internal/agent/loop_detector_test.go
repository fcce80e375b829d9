package agent

import (
	"testing"

	"github.com/fdadevices/openfda-agent/internal/model"
)

func TestLoopDetector_Check_NoRepeatsIsClean(t *testing.T) {
	d := &LoopDetector{}
	calls := []model.ToolCall{
		{ToolName: "search_510k", Args: model.ExtractedParameters{KNumber: "K123456"}},
		{ToolName: "search_recalls", Args: model.ExtractedParameters{ProductCode: "DXY"}},
	}
	if got := d.Check(calls); got.Detected {
		t.Errorf("expected no loop, got %+v", got)
	}
}

func TestLoopDetector_Check_DetectsRepeatedIdenticalCall(t *testing.T) {
	d := &LoopDetector{}
	calls := []model.ToolCall{
		{ToolName: "search_recalls", Args: model.ExtractedParameters{DeviceName: "infusion pump"}},
		{ToolName: "search_recalls", Args: model.ExtractedParameters{DeviceName: "infusion pump"}},
	}
	got := d.Check(calls)
	if !got.Detected {
		t.Fatal("expected a loop to be detected for an identical repeated call")
	}
	if got.ToolName != "search_recalls" {
		t.Errorf("ToolName = %q, want search_recalls", got.ToolName)
	}
}

func TestLoopDetector_Check_DifferentArgsDoNotCountAsRepeats(t *testing.T) {
	d := &LoopDetector{}
	calls := []model.ToolCall{
		{ToolName: "search_recalls", Args: model.ExtractedParameters{DeviceName: "infusion pump"}},
		{ToolName: "search_recalls", Args: model.ExtractedParameters{DeviceName: "pacemaker"}},
	}
	if got := d.Check(calls); got.Detected {
		t.Errorf("expected no loop when args differ, got %+v", got)
	}
}
