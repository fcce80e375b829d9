package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/fdadevices/openfda-agent/internal/assess"
	"github.com/fdadevices/openfda-agent/internal/core"
	"github.com/fdadevices/openfda-agent/internal/model"
)

// AssessNode implements ASSESS (spec §4.8, Layer 1): a deterministic check
// over the question and this turn's accumulated tool results, deciding
// whether PLAN needs another iteration.
type AssessNode struct {
	assessor *assess.Assessor
	loop     *LoopDetector
}

func NewAssessNode(assessor *assess.Assessor) *AssessNode {
	return &AssessNode{assessor: assessor, loop: &LoopDetector{}}
}

// AssessPrep is a snapshot of the question, extracted parameters, result
// count, and dossier-population state ASSESS reasons over.
type AssessPrep struct {
	Question         string
	Extracted        model.ExtractedParameters
	ResultCount       int
	DossierPopulated bool
	Strategy         string
}

func (n *AssessNode) Prep(state *AgentState) []AssessPrep {
	return []AssessPrep{{
		Question:         state.Question,
		Extracted:        state.Extracted,
		ResultCount:      state.resultCount(),
		DossierPopulated: state.dossierPopulated(),
		Strategy:         state.Strategy,
	}}
}

func (n *AssessNode) Exec(_ context.Context, prep AssessPrep) (assess.Sufficiency, error) {
	if prep.Strategy == "safety_dossier" && prep.DossierPopulated {
		return assess.Sufficiency{Sufficient: true, Reason: "safety dossier has at least one populated endpoint"}, nil
	}
	return n.assessor.CheckSufficiency(prep.Question, prep.Extracted, prep.ResultCount), nil
}

func (n *AssessNode) ExecFallback(err error) assess.Sufficiency {
	log.Printf("[Assess] ExecFallback: %v", err)
	return assess.Sufficiency{Sufficient: true, Reason: "assessment failed, defaulting to sufficient"}
}

func (n *AssessNode) Post(state *AgentState, _ []AssessPrep, results ...assess.Sufficiency) core.Action {
	if len(results) == 0 {
		return core.ActionAnswer
	}
	verdict := results[0]
	if verdict.Sufficient || state.Retries >= state.MaxRetries {
		log.Printf("[Assess] sufficient=%v reason=%q retries=%d -> answer", verdict.Sufficient, verdict.Reason, state.Retries)
		state.ExecLog.LogTransition("ASSESS", fmt.Sprintf("sufficient=%v reason=%q retries=%d -> answer", verdict.Sufficient, verdict.Reason, state.Retries))
		return core.ActionAnswer
	}

	if loop := n.loop.Check(state.ToolCalls); loop.Detected {
		log.Printf("[Assess] loop detected: %s -> answer with what was gathered", loop.Description)
		state.ExecLog.LogTransition("ASSESS", "loop detected: "+loop.Description+" -> answer with what was gathered")
		return core.ActionAnswer
	}

	state.Retries++
	state.Messages = append(state.Messages, model.Message{
		Role:    "assistant",
		Content: "The previous search was insufficient (" + verdict.Reason + "); refining the query.",
	})
	log.Printf("[Assess] insufficient reason=%q retries=%d -> replan", verdict.Reason, state.Retries)
	state.ExecLog.LogTransition("ASSESS", fmt.Sprintf("insufficient reason=%q retries=%d -> replan", verdict.Reason, state.Retries))
	return core.ActionReplan
}
