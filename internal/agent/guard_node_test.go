package agent

import (
	"context"
	"testing"

	"github.com/fdadevices/openfda-agent/internal/core"
)

func TestGuardNode_Exec_PassesClarificationThroughUnchecked(t *testing.T) {
	n := NewGuardNode(nil)
	got, err := n.Exec(context.Background(), GuardPrep{ClarificationOnly: true, Draft: "Which product code did you mean?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Which product code did you mean?" {
		t.Errorf("Exec() = %q, want the clarification text unchanged", got)
	}
}

func TestGuardNode_Post_FallsBackToDraftWhenResultEmpty(t *testing.T) {
	n := NewGuardNode(nil)
	state := &AgentState{}
	prep := []GuardPrep{{Draft: "original draft"}}
	action := n.Post(state, prep, "")
	if action != core.ActionEnd {
		t.Errorf("action = %v, want ActionEnd", action)
	}
	if state.Answer != "original draft" {
		t.Errorf("Answer = %q, want fallback to the draft", state.Answer)
	}
}

func TestGuardNode_Post_UsesRewrittenAnswer(t *testing.T) {
	n := NewGuardNode(nil)
	state := &AgentState{}
	prep := []GuardPrep{{Draft: "original draft"}}
	n.Post(state, prep, "rewritten, grounded answer")
	if state.Answer != "rewritten, grounded answer" {
		t.Errorf("Answer = %q, want the rewritten text", state.Answer)
	}
}

func TestGuardNode_ExecFallback_ReturnsEmpty(t *testing.T) {
	n := NewGuardNode(nil)
	if got := n.ExecFallback(context.DeadlineExceeded); got != "" {
		t.Errorf("ExecFallback() = %q, want empty", got)
	}
}
