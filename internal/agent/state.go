// Package agent implements the Agent Controller of spec §4.8: a five-state
// machine (PLAN, DISPATCH, ASSESS, ANSWER, GUARD) built on internal/core's
// generic Node/Flow framework.
package agent

import (
	"time"

	"github.com/fdadevices/openfda-agent/internal/model"
	"github.com/fdadevices/openfda-agent/internal/tool"
	"github.com/fdadevices/openfda-agent/internal/usage"
)

// AgentState is the shared state threaded through one turn's Flow.Run call.
// Like the teacher's AgentState, it is NOT goroutine-safe for its top-level
// fields: Flow.Run drives exactly one goroutine through the node chain.
// DispatchNode's internal fan-out writes only into its own Exec-local
// results, merging them into state from the single Post goroutine.
type AgentState struct {
	SessionID string
	Question  string

	// Messages is the turn's running conversation, seeded with the
	// session's prior history plus the new user question.
	Messages []model.Message

	Extracted       model.ExtractedParameters
	ResolverContext model.ResolverContext
	ToolCalls       []model.ToolCall

	Retries    int
	MaxRetries int // spec §4.8: retries < 2 before forcing ANSWER

	Strategy         string // exact, category, broad, count, safety_dossier, cross-reference
	SelectedEndpoint string

	// PlannedCalls is written by PlanNode.Post and consumed by DispatchNode.Prep.
	PlannedCalls []PlannedCall

	ClarificationOnly bool
	Clarification     string

	Draft  string
	Answer string

	Registry *tool.Registry
	Tracker  *usage.Tracker
	Guard    *usage.Guard

	RetrieverHints []string // endpoint names the retriever surfaced, for provenance/debugging

	// ExecLog records this turn's node transitions for operator debugging
	// (spec §7). Nil when exec logging is disabled; every ExecLogger method
	// is a safe no-op on a nil receiver.
	ExecLog *ExecLogger

	StartedAt time.Time
}

// PlannedCall is one tool invocation PLAN asked for (or DISPATCH synthesized
// for the safety-dossier strategy).
type PlannedCall struct {
	Name string
	Args []byte // json.RawMessage
}

// SelectedEndpoints returns the distinct endpoint/tool names touched by
// ToolCalls so far, in call order.
func (s *AgentState) SelectedEndpoints() []string {
	seen := map[string]bool{}
	var out []string
	for _, tc := range s.ToolCalls {
		if seen[tc.ToolName] {
			continue
		}
		seen[tc.ToolName] = true
		out = append(out, tc.ToolName)
	}
	return out
}

// resultCount sums the result counts of every ToolCall recorded so far,
// ASSESS's input for CheckSufficiency.
func (s *AgentState) resultCount() int {
	total := 0
	for _, tc := range s.ToolCalls {
		if tc.Result != nil {
			total += len(tc.Result.Results)
		}
	}
	return total
}

// dossierPopulated reports whether at least one of the three safety-dossier
// endpoints (recalls, events, classifications) returned a non-empty result
// set this turn — the assessor treats a populated dossier as sufficient even
// when individual endpoints were empty (spec §4.8).
func (s *AgentState) dossierPopulated() bool {
	for _, tc := range s.ToolCalls {
		if tc.Result == nil {
			continue
		}
		switch tc.ToolName {
		case "search_recalls", "search_events", "search_classifications":
			if len(tc.Result.Results) > 0 {
				return true
			}
		}
	}
	return false
}
