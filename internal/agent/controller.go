package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fdadevices/openfda-agent/internal/assess"
	"github.com/fdadevices/openfda-agent/internal/config"
	"github.com/fdadevices/openfda-agent/internal/core"
	"github.com/fdadevices/openfda-agent/internal/extract"
	"github.com/fdadevices/openfda-agent/internal/llm"
	"github.com/fdadevices/openfda-agent/internal/model"
	"github.com/fdadevices/openfda-agent/internal/retrieve"
	"github.com/fdadevices/openfda-agent/internal/session"
	"github.com/fdadevices/openfda-agent/internal/tool"
	"github.com/fdadevices/openfda-agent/internal/usage"
)

const controllerMaxRetries = 2 // spec §4.8: "retries < 2" before forcing ANSWER

// Controller is the single entry point of spec §6: ask(session_id?,
// question) → {answer, structured_data, provenance, usage}.
type Controller struct {
	store      *session.Store
	extractor  *extract.Extractor
	assessor   *assess.Assessor
	guard      *usage.Guard
	flow       *core.Flow[AgentState]
	registry   *tool.Registry
	settings   *config.Settings
	execLogger *ExecLogger
}

func NewController(settings *config.Settings, store *session.Store, provider llm.LLMProvider, retriever *retrieve.Retriever, extractor *extract.Extractor, registry *tool.Registry) *Controller {
	assessor := assess.NewAssessor(provider)
	guard := usage.NewGuard(settings.UsageSoftCapUSD, settings.UsageHardCapUSD, settings.UsageOperatorPassphrase)
	execLogger, err := NewExecLogger(settings.ExecLogPath)
	if err != nil {
		log.Printf("[Controller] exec log disabled: %v", err)
	}
	return &Controller{
		store:      store,
		extractor:  extractor,
		assessor:   assessor,
		guard:      guard,
		flow:       BuildFlow(provider, retriever, registry, assessor),
		registry:   registry,
		settings:   settings,
		execLogger: execLogger,
	}
}

// Response is the shape ask() returns to the caller.
type Response struct {
	Answer         string             `json:"answer"`
	StructuredData []model.ToolResult `json:"structured_data,omitempty"`
	Provenance     model.Provenance   `json:"provenance"`
	Usage          session.SessionUsage `json:"usage"`
}

// Ask runs one full turn of the Agent Controller: load the session, enforce
// the usage cap, drive the PLAN→DISPATCH→ASSESS→ANSWER→GUARD flow under a
// per-turn deadline, then persist the result (spec §4.8, §5, §6).
//
// A cancelled or timed-out turn persists nothing; instead of an answer it
// returns a fixed notice that the request was cancelled.
func (c *Controller) Ask(ctx context.Context, sessionID, question string) (*Response, error) {
	release, err := c.store.BeginTurn(sessionID)
	if err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}
	defer release()

	doc, err := c.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("agent: load session %q: %w", sessionID, err)
	}

	if err := c.guard.CheckBeforeTurn(doc.Usage.TotalCostUSD); err != nil {
		if errors.Is(err, usage.ErrCapExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("agent: %w", err)
	}

	turnCtx, cancel := context.WithTimeout(ctx, time.Duration(c.settings.TurnDeadlineSeconds)*time.Second)
	defer cancel()

	extracted, err := c.extractor.Extract(turnCtx, question, "")
	if err != nil {
		log.Printf("[Controller] extraction failed, proceeding with empty parameters: %v", err)
	}

	tracker := usage.NewTracker(c.settings.LLMModel)
	state := &AgentState{
		SessionID:       sessionID,
		Question:        question,
		Messages:        append(append([]model.Message(nil), doc.Messages...), model.Message{Role: llm.RoleUser, Content: question, Timestamp: time.Now()}),
		Extracted:       extracted,
		ResolverContext: doc.ResolverContext,
		MaxRetries:      controllerMaxRetries,
		Registry:        c.registry,
		Tracker:         tracker,
		Guard:           c.guard,
		ExecLog:         c.execLogger,
		StartedAt:       time.Now(),
	}

	c.execLogger.StartTurn(sessionID, question)
	action := c.flow.Run(turnCtx, state)
	if turnCtx.Err() != nil {
		log.Printf("[Controller] turn for session %q timed out or was cancelled: %v", sessionID, turnCtx.Err())
		return &Response{Answer: "This request took too long to answer and was cancelled; nothing was saved. Please try again with a narrower question."}, nil
	}
	if action != core.ActionEnd {
		return nil, fmt.Errorf("agent: flow ended in unexpected state %q", action)
	}

	turnUsage := tracker.ModelUsage()
	newMessages := []model.Message{
		{Role: llm.RoleUser, Content: question, Timestamp: state.StartedAt},
		{Role: llm.RoleAssistant, Content: state.Answer, Timestamp: time.Now()},
	}
	updated, err := c.store.Append(ctx, sessionID, newMessages, state.ResolverContext, turnUsage)
	if err != nil {
		return nil, fmt.Errorf("agent: persist turn for session %q: %w", sessionID, err)
	}

	if c.guard.IsSoftCapReached(updated.Usage.TotalCostUSD) {
		log.Printf("[Controller] session %q has crossed the soft cap ($%.2f total): further turns will be refused", sessionID, updated.Usage.TotalCostUSD)
	}

	c.execLogger.EndTurn(state.Retries, len(state.Answer))

	return &Response{
		Answer:         state.Answer,
		StructuredData: structuredResults(state.ToolCalls),
		Provenance:     buildProvenance(state),
		Usage:          updated.Usage,
	}, nil
}

func structuredResults(calls []model.ToolCall) []model.ToolResult {
	var out []model.ToolResult
	for _, tc := range calls {
		if tc.Result != nil {
			out = append(out, *tc.Result)
		}
	}
	return out
}

func buildProvenance(state *AgentState) model.Provenance {
	prov := model.Provenance{ToolCalls: state.ToolCalls, Retries: state.Retries}
	for _, tc := range state.ToolCalls {
		if tc.Result == nil {
			continue
		}
		prov.Endpoint = tc.Result.Endpoint
		prov.QueryExpression = tc.Result.QueryExpression
		prov.ResultCount = len(tc.Result.Results)
		prov.LastUpdated = tc.Result.Meta.LastUpdated
	}
	return prov
}
