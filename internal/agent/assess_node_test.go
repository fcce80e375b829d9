package agent

import (
	"context"
	"testing"

	"github.com/fdadevices/openfda-agent/internal/assess"
	"github.com/fdadevices/openfda-agent/internal/core"
)

func TestAssessNode_Exec_DossierOverridesSufficiencyWhenPopulated(t *testing.T) {
	n := NewAssessNode(assess.NewAssessor(nil))
	prep := AssessPrep{
		Question:         "Any recalls on this device?",
		Strategy:         "safety_dossier",
		DossierPopulated: true,
		ResultCount:      0,
	}
	got, err := n.Exec(context.Background(), prep)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Sufficient {
		t.Errorf("expected sufficient=true for a populated dossier, got reason %q", got.Reason)
	}
}

func TestAssessNode_Post_ReplanWhenInsufficientAndRetriesRemain(t *testing.T) {
	n := NewAssessNode(assess.NewAssessor(nil))
	state := &AgentState{Retries: 0, MaxRetries: 2}
	action := n.Post(state, nil, assess.Sufficiency{Sufficient: false, Reason: "missing class filter"})
	if action != core.ActionReplan {
		t.Errorf("action = %v, want ActionReplan", action)
	}
	if state.Retries != 1 {
		t.Errorf("Retries = %d, want 1", state.Retries)
	}
	if len(state.Messages) != 1 {
		t.Errorf("expected an assistant note appended, got %d messages", len(state.Messages))
	}
}

func TestAssessNode_Post_AnswerWhenRetriesExhausted(t *testing.T) {
	n := NewAssessNode(assess.NewAssessor(nil))
	state := &AgentState{Retries: 2, MaxRetries: 2}
	action := n.Post(state, nil, assess.Sufficiency{Sufficient: false, Reason: "still missing a filter"})
	if action != core.ActionAnswer {
		t.Errorf("action = %v, want ActionAnswer once retries are exhausted", action)
	}
}

func TestAssessNode_Post_AnswerWhenSufficient(t *testing.T) {
	n := NewAssessNode(assess.NewAssessor(nil))
	state := &AgentState{Retries: 0, MaxRetries: 2}
	action := n.Post(state, nil, assess.Sufficiency{Sufficient: true, Reason: "ok"})
	if action != core.ActionAnswer {
		t.Errorf("action = %v, want ActionAnswer", action)
	}
	if len(state.Messages) != 0 {
		t.Error("expected no assistant note appended on the sufficient path")
	}
}

func TestAssessNode_ExecFallback_DefaultsSufficient(t *testing.T) {
	n := NewAssessNode(assess.NewAssessor(nil))
	got := n.ExecFallback(context.DeadlineExceeded)
	if !got.Sufficient {
		t.Error("expected ExecFallback to default to sufficient")
	}
}
