package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/fdadevices/openfda-agent/internal/assess"
	"github.com/fdadevices/openfda-agent/internal/core"
	"github.com/fdadevices/openfda-agent/internal/model"
)

// GuardNode implements GUARD (spec §4.8, Layer 2): the final factual
// rewrite pass over the drafted answer before it is returned to the caller.
type GuardNode struct {
	assessor *assess.Assessor
}

func NewGuardNode(assessor *assess.Assessor) *GuardNode {
	return &GuardNode{assessor: assessor}
}

// GuardPrep carries the draft and the evidence Guardrail checks it against.
type GuardPrep struct {
	Draft             string
	ClarificationOnly bool
	ToolCalls         []model.ToolCall
	ResolverContext   model.ResolverContext
}

func (n *GuardNode) Prep(state *AgentState) []GuardPrep {
	return []GuardPrep{{
		Draft:             state.Draft,
		ClarificationOnly: state.ClarificationOnly,
		ToolCalls:         state.ToolCalls,
		ResolverContext:   state.ResolverContext,
	}}
}

func (n *GuardNode) Exec(ctx context.Context, prep GuardPrep) (string, error) {
	if prep.ClarificationOnly {
		// A clarifying question has no tool evidence to check against; the
		// guardrail's job is to catch unsupported factual claims, and a
		// clarifying question makes none.
		return prep.Draft, nil
	}
	return n.assessor.Guardrail(ctx, prep.Draft, prep.ToolCalls, prep.ResolverContext)
}

func (n *GuardNode) ExecFallback(err error) string {
	log.Printf("[Guard] ExecFallback: %v", err)
	return ""
}

func (n *GuardNode) Post(state *AgentState, prep []GuardPrep, results ...string) core.Action {
	final := ""
	if len(results) > 0 {
		final = results[0]
	}
	if final == "" && len(prep) > 0 {
		final = prep[0].Draft
	}
	state.Answer = final
	log.Printf("[Guard] final answer %d chars", len(state.Answer))
	state.ExecLog.LogTransition("GUARD", fmt.Sprintf("final answer %d chars", len(state.Answer)))
	return core.ActionEnd
}
