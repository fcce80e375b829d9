package agent

import (
	"github.com/fdadevices/openfda-agent/internal/assess"
	"github.com/fdadevices/openfda-agent/internal/core"
	"github.com/fdadevices/openfda-agent/internal/llm"
	"github.com/fdadevices/openfda-agent/internal/retrieve"
	"github.com/fdadevices/openfda-agent/internal/tool"
)

// nodeMaxRetries bounds core.Node's internal Exec retry (distinct from
// AgentState.MaxRetries, which bounds PLAN/ASSESS re-planning iterations).
const nodeMaxRetries = 1

// BuildFlow assembles the five-state Agent Controller (spec §4.8):
//
//	START ──► PLAN ──► DISPATCH ──► ASSESS ─┬─► ANSWER ──► GUARD ──► END
//	            ▲                           │
//	            └───────── (replan) ────────┘
//
// PLAN may also route straight to ANSWER when it only has a clarifying
// question to ask, bypassing DISPATCH/ASSESS entirely.
func BuildFlow(provider llm.LLMProvider, retriever *retrieve.Retriever, registry *tool.Registry, assessor *assess.Assessor) *core.Flow[AgentState] {
	plan := core.NewNode[AgentState, PlanPrep, PlanResult](NewPlanNode(provider, retriever), nodeMaxRetries)
	dispatch := core.NewNode[AgentState, DispatchPrep, DispatchResult](NewDispatchNode(registry), nodeMaxRetries)
	assessN := core.NewNode[AgentState, AssessPrep, assess.Sufficiency](NewAssessNode(assessor), nodeMaxRetries)
	answer := core.NewNode[AgentState, AnswerPrep, AnswerExec](NewAnswerNode(provider), nodeMaxRetries)
	guard := core.NewNode[AgentState, GuardPrep, string](NewGuardNode(assessor), nodeMaxRetries)

	plan.AddSuccessor(dispatch, core.ActionDispatch)
	plan.AddSuccessor(answer, core.ActionAnswer)
	dispatch.AddSuccessor(assessN, core.ActionDefault)
	assessN.AddSuccessor(plan, core.ActionReplan)
	assessN.AddSuccessor(answer, core.ActionAnswer)
	answer.AddSuccessor(guard, core.ActionGuard)

	flow := core.NewFlow[AgentState](plan)
	return flow
}
