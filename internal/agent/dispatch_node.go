package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/fdadevices/openfda-agent/internal/core"
	"github.com/fdadevices/openfda-agent/internal/model"
	"github.com/fdadevices/openfda-agent/internal/tool"
	"github.com/fdadevices/openfda-agent/internal/tool/resolvers"
)

// perToolTimeout bounds a single tool call per spec §5 ("30s read timeout
// per tool call").
const perToolTimeout = 30 * time.Second

// DispatchNode implements DISPATCH (spec §4.8): it resolves every tool call
// PLAN asked for, running independent calls concurrently and serializing
// resolver calls ahead of the data-dependent calls that consume their
// output, expressed as a fan-out/fan-in over a wait group inside a single
// Exec call (spec §9) rather than as separate core.Node work items.
type DispatchNode struct {
	registry *tool.Registry
}

func NewDispatchNode(registry *tool.Registry) *DispatchNode {
	return &DispatchNode{registry: registry}
}

// DispatchPrep is a snapshot of everything DISPATCH needs: the calls PLAN
// selected, the strategy tag, and an immutable copy of ResolverContext taken
// at entry (spec §5: "other nodes read an immutable snapshot taken at
// entry").
type DispatchPrep struct {
	Calls     []PlannedCall
	Strategy  string
	Extracted model.ExtractedParameters
	Snapshot  model.ResolverContext
}

// dispatchOutcome is one tool call's raw result, captured goroutine-locally
// and merged into state only from Post.
type dispatchOutcome struct {
	Name        string
	Args        model.ExtractedParameters
	StartedAt   time.Time
	CompletedAt time.Time
	Output      string
	ToolErr     string
	IsResolver  bool
}

// DispatchResult is DISPATCH's Exec output: every outcome plus the merged
// resolver context produced by this iteration's resolver calls.
type DispatchResult struct {
	Outcomes []dispatchOutcome
	Merged   model.ResolverContext
}

func (n *DispatchNode) Prep(state *AgentState) []DispatchPrep {
	return []DispatchPrep{{
		Calls:     state.PlannedCalls,
		Strategy:  state.Strategy,
		Extracted: state.Extracted,
		Snapshot:  state.ResolverContext,
	}}
}

func (n *DispatchNode) Exec(ctx context.Context, prep DispatchPrep) (DispatchResult, error) {
	calls := prep.Calls
	if prep.Strategy == "safety_dossier" {
		calls = applySafetyDossierOverride(calls, prep.Extracted)
	}

	resolverCalls, dataCalls := partitionCalls(calls)

	var result DispatchResult
	result.Merged = prep.Snapshot

	if len(resolverCalls) > 0 {
		outcomes := n.runConcurrent(ctx, resolverCalls)
		for _, o := range outcomes {
			o.IsResolver = true
			if o.ToolErr == "" {
				var rc model.ResolverContext
				if err := json.Unmarshal([]byte(o.Output), &rc); err == nil {
					result.Merged.Merge(rc)
				}
			}
		}
		result.Outcomes = append(result.Outcomes, outcomes...)
		dataCalls = enrichWithResolverContext(dataCalls, result.Merged)
	}

	if len(dataCalls) > 0 {
		outcomes := n.runConcurrent(ctx, dataCalls)
		result.Outcomes = append(result.Outcomes, outcomes...)

		if prep.Strategy == "safety_dossier" && allResultsEmpty(outcomes) {
			if followUp := relatedClassificationFollowUp(prep.Extracted); followUp != nil {
				extra := n.runConcurrent(ctx, []PlannedCall{*followUp})
				result.Outcomes = append(result.Outcomes, extra...)
			}
		}
	}

	return result, nil
}

func (n *DispatchNode) ExecFallback(err error) DispatchResult {
	log.Printf("[Dispatch] ExecFallback: %v", err)
	return DispatchResult{}
}

func (n *DispatchNode) Post(state *AgentState, _ []DispatchPrep, results ...DispatchResult) core.Action {
	if len(results) == 0 {
		return core.ActionDefault
	}
	result := results[0]
	state.ResolverContext = result.Merged

	for _, o := range result.Outcomes {
		tc := model.ToolCall{
			ID:          toolCallID(o.Name, o.StartedAt),
			ToolName:    o.Name,
			Args:        o.Args,
			StartedAt:   o.StartedAt,
			CompletedAt: &o.CompletedAt,
		}
		if o.ToolErr != "" {
			tc.Error = o.ToolErr
		} else if !o.IsResolver {
			var tr model.ToolResult
			if err := json.Unmarshal([]byte(o.Output), &tr); err != nil {
				tc.Error = "decode tool result: " + err.Error()
			} else {
				tc.Result = &tr
			}
		}
		state.ToolCalls = append(state.ToolCalls, tc)
	}
	log.Printf("[Dispatch] ran %d call(s), strategy=%s", len(result.Outcomes), state.Strategy)
	state.ExecLog.LogTransition("DISPATCH", fmt.Sprintf("ran %d call(s): %s", len(result.Outcomes), dispatchOutcomeSummary(result.Outcomes)))
	return core.ActionDefault
}

// dispatchOutcomeSummary renders a short per-call status line for the exec
// log: each call's name plus "ok" or its failure reason.
func dispatchOutcomeSummary(outcomes []dispatchOutcome) string {
	parts := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		if o.ToolErr != "" {
			parts = append(parts, fmt.Sprintf("%s=failed(%s)", o.Name, o.ToolErr))
			continue
		}
		parts = append(parts, o.Name+"=ok")
	}
	return strings.Join(parts, ", ")
}

func toolCallID(name string, startedAt time.Time) string {
	return name + "-" + startedAt.Format("150405.000000000")
}

// runConcurrent executes every call in parallel and blocks until all finish,
// per spec §9's fan-out/fan-in description.
func (n *DispatchNode) runConcurrent(ctx context.Context, calls []PlannedCall) []dispatchOutcome {
	outcomes := make([]dispatchOutcome, len(calls))
	var wg sync.WaitGroup
	wg.Add(len(calls))
	for i, c := range calls {
		go func(i int, c PlannedCall) {
			defer wg.Done()
			outcomes[i] = n.runOne(ctx, c)
		}(i, c)
	}
	wg.Wait()
	return outcomes
}

func (n *DispatchNode) runOne(ctx context.Context, call PlannedCall) dispatchOutcome {
	started := time.Now()
	outcome := dispatchOutcome{Name: call.Name, StartedAt: started}
	_ = json.Unmarshal(call.Args, &outcome.Args)

	t, ok := n.registry.Get(call.Name)
	if !ok {
		outcome.ToolErr = "unknown tool: " + call.Name
		outcome.CompletedAt = time.Now()
		return outcome
	}

	callCtx, cancel := context.WithTimeout(ctx, perToolTimeout)
	defer cancel()

	res, err := t.Execute(callCtx, call.Args)
	outcome.CompletedAt = time.Now()
	if err != nil {
		outcome.ToolErr = err.Error()
		return outcome
	}
	if res.Error != "" {
		outcome.ToolErr = res.Error
		return outcome
	}
	outcome.Output = res.Output
	return outcome
}

func partitionCalls(calls []PlannedCall) (resolverCalls, dataCalls []PlannedCall) {
	for _, c := range calls {
		if resolvers.Names[c.Name] {
			resolverCalls = append(resolverCalls, c)
		} else {
			dataCalls = append(dataCalls, c)
		}
	}
	return
}

// enrichWithResolverContext fills in product codes and country/manufacturer
// fields a data call's args left empty, from resolver results this
// iteration's resolver calls just produced (spec §4.8's cross-reference
// chain: "resolve_device → search_events with resolved product codes").
func enrichWithResolverContext(calls []PlannedCall, rc model.ResolverContext) []PlannedCall {
	if len(calls) == 0 {
		return calls
	}
	out := make([]PlannedCall, len(calls))
	for i, c := range calls {
		var p model.ExtractedParameters
		if err := json.Unmarshal(c.Args, &p); err != nil {
			out[i] = c
			continue
		}
		if p.ProductCode == "" && rc.Devices != nil && len(rc.Devices.ProductCodes) > 0 {
			p.ProductCode = rc.Devices.ProductCodes[0]
		}
		if p.FirmName == "" && len(rc.Manufacturers) > 0 {
			p.FirmName = rc.Manufacturers[0].CanonicalName
		}
		if p.Country == "" && rc.Location != nil && len(rc.Location.Countries) > 0 {
			p.Country = rc.Location.Countries[0].Code
		}
		out[i] = PlannedCall{Name: c.Name, Args: toJSON(p)}
	}
	return out
}

// applySafetyDossierOverride replaces whatever single endpoint call PLAN
// picked with the three-endpoint dossier fan-out spec §4.8 requires for this
// strategy, keeping any resolver calls PLAN also selected.
func applySafetyDossierOverride(calls []PlannedCall, extracted model.ExtractedParameters) []PlannedCall {
	var out []PlannedCall
	for _, c := range calls {
		if resolvers.Names[c.Name] {
			out = append(out, c)
		}
	}
	args := toJSON(extracted)
	out = append(out,
		PlannedCall{Name: "search_recalls", Args: args},
		PlannedCall{Name: "search_events", Args: args},
		PlannedCall{Name: "search_classifications", Args: args},
	)
	return out
}

func allResultsEmpty(outcomes []dispatchOutcome) bool {
	for _, o := range outcomes {
		if o.ToolErr != "" {
			continue
		}
		var tr model.ToolResult
		if err := json.Unmarshal([]byte(o.Output), &tr); err == nil && len(tr.Results) > 0 {
			return false
		}
	}
	return true
}

// relatedClassificationFollowUp builds the related-devices classification
// call spec §4.8 asks for when a safety dossier's three direct endpoints all
// come back empty: the same product code, with class/date/recall filters
// dropped so the classification search widens instead of repeating the
// exact miss.
func relatedClassificationFollowUp(extracted model.ExtractedParameters) *PlannedCall {
	if extracted.ProductCode == "" {
		return nil
	}
	widened := model.ExtractedParameters{ProductCode: extracted.ProductCode, Limit: extracted.Limit}
	return &PlannedCall{Name: "search_classifications", Args: toJSON(widened)}
}
