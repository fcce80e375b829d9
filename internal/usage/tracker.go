package usage

import "github.com/fdadevices/openfda-agent/internal/model"

// TurnUsage is the per-turn accounting record attached to a final answer
// (spec §4.10's "Per-turn: {tokens_in, tokens_out, cost}").
type TurnUsage struct {
	TokensIn  int
	TokensOut int
	CostUSD   float64
}

// SessionTotals is the per-session view exposed alongside TurnUsage (spec
// §4.10's "Per-session: {total_cost, request_count, limit}").
type SessionTotals struct {
	TotalCostUSD float64
	RequestCount int
	LimitUSD     float64
}

// Tracker accumulates LLM call costs within a single turn. One Tracker is
// created per turn by the controller; RecordCall is called once per LLM
// invocation made while servicing that turn (PLAN, extraction, guardrail).
type Tracker struct {
	model     string
	tokensIn  int
	tokensOut int
	costUSD   float64
}

// NewTracker starts a fresh per-turn accumulator for the given model name.
func NewTracker(modelName string) *Tracker {
	return &Tracker{model: modelName}
}

// RecordCall adds one LLM call's token counts to the turn total and returns
// the incremental cost of that call.
func (t *Tracker) RecordCall(promptTokens, completionTokens int) float64 {
	cost := CostUSD(t.model, promptTokens, completionTokens)
	t.tokensIn += promptTokens
	t.tokensOut += completionTokens
	t.costUSD += cost
	return cost
}

// Turn returns the accumulated per-turn usage record.
func (t *Tracker) Turn() TurnUsage {
	return TurnUsage{TokensIn: t.tokensIn, TokensOut: t.tokensOut, CostUSD: t.costUSD}
}

// ModelUsage converts the tracker's accumulated total into the shared
// model.Usage shape the session store persists.
func (t *Tracker) ModelUsage() model.Usage {
	return model.Usage{TokensIn: t.tokensIn, TokensOut: t.tokensOut, CostUSD: t.costUSD}
}

// SessionTotalsFrom projects a session.SessionUsage-shaped accounting
// record (TotalCostUSD, RequestCount) plus the guard's current limit into
// the caller-facing SessionTotals view.
func SessionTotalsFrom(totalCostUSD float64, requestCount int, guard *Guard) SessionTotals {
	return SessionTotals{
		TotalCostUSD: totalCostUSD,
		RequestCount: requestCount,
		LimitUSD:     guard.Limit(),
	}
}
