package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/fdadevices/openfda-agent/internal/core"
	"github.com/fdadevices/openfda-agent/internal/llm"
	"github.com/fdadevices/openfda-agent/internal/model"
	"github.com/fdadevices/openfda-agent/internal/retrieve"
	"github.com/fdadevices/openfda-agent/internal/tool/resolvers"
)

// toLLMMessages converts a session's authoritative model.Message history
// into the llm.Message shape CallLLMWithTools expects, re-encoding each
// recorded tool call's structured Args back into the json.RawMessage form
// the provider originally returned.
func toLLMMessages(msgs []model.Message) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		lm := llm.Message{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallOf}
		if len(m.ToolCalls) > 0 {
			lm.ToolCalls = make([]llm.ToolCall, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				lm.ToolCalls[i] = llm.ToolCall{ID: tc.ID, Name: tc.ToolName, Arguments: toJSON(tc.Args)}
			}
		}
		out = append(out, lm)
	}
	return out
}

const planSystemPrompt = `You are the planner for an FDA device-data agent. Given the user's question,
the conversation so far, and any resolver context already known about this session, decide how to
satisfy the question: call one or more of the provided tools with the parameters they need, or, if
the question is too ambiguous to act on, reply with exactly one clarifying question in plain text
and call no tool.

Prefer resolving a fuzzy device, manufacturer, or location term before searching with it. When a
question asks about a device's safety profile broadly (recalls, adverse events, and classification
together), call the recall, event, and classification search tools together.`

// PlanNode implements core.BaseNode[AgentState, PlanPrep, PlanResult]. It is
// PLAN in spec §4.8's state machine.
type PlanNode struct {
	provider  llm.LLMProvider
	retriever *retrieve.Retriever // optional; nil disables RAG hints

	// lastHints is the most recent Prep's RAG endpoint hints, stashed here so
	// ExecFallback can fall back to the top-hinted endpoint instead of always
	// asking the user to rephrase (spec §7). The controller drives one turn
	// through the flow at a time, so this is safe to read back from
	// ExecFallback without synchronization.
	lastHints []string
}

func NewPlanNode(provider llm.LLMProvider, retriever *retrieve.Retriever) *PlanNode {
	return &PlanNode{provider: provider, retriever: retriever}
}

// PlanPrep is PLAN's input: the conversation plus whatever the retriever and
// a prior ASSESS iteration contributed.
type PlanPrep struct {
	Messages        []llm.Message
	ToolDefinitions []llm.ToolDefinition
	RetrieverHints  []string
}

// PlanResult is PLAN's output: either a clarifying question, or a set of
// tool calls the LLM selected.
type PlanResult struct {
	Clarification string
	ToolCalls     []llm.ToolCall
	Usage         llm.Usage
}

func (n *PlanNode) Prep(state *AgentState) []PlanPrep {
	messages := make([]llm.Message, 0, len(state.Messages)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: planSystemPrompt})
	if summary := resolverContextSummary(state.ResolverContext); summary != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: summary})
	}
	messages = append(messages, toLLMMessages(state.Messages)...)

	if guaranteed := guaranteedParameterMessage(state.Extracted); guaranteed != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: guaranteed})
	}

	var hints []string
	if n.retriever != nil {
		chunks, h, err := n.retriever.Retrieve(context.Background(), state.Question, 0)
		if err != nil {
			log.Printf("[Plan] retriever lookup failed: %v", err)
		} else {
			hints = h
			if hint := retrievalHintMessage(chunks); hint != "" {
				messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: hint})
			}
		}
	}
	n.lastHints = hints

	return []PlanPrep{{
		Messages:        messages,
		ToolDefinitions: state.Registry.GenerateToolDefinitions(),
		RetrieverHints:  hints,
	}}
}

// guaranteedParameterMessage renders the fields the regex pre-pass extracted
// with confidence 1.0 (spec §4.5: "regex always wins") as a system note, so
// PLAN's tool-call args line up with the extraction Post will force onto the
// dispatched call regardless of what the LLM proposes.
func guaranteedParameterMessage(p model.ExtractedParameters) string {
	var parts []string
	if p.KNumber != "" && p.FieldConfidence("k_number") >= 1.0 {
		parts = append(parts, fmt.Sprintf("k_number=%s", p.KNumber))
	}
	if p.PMANumber != "" && p.FieldConfidence("pma_number") >= 1.0 {
		parts = append(parts, fmt.Sprintf("pma_number=%s", p.PMANumber))
	}
	if p.ProductCode != "" && p.FieldConfidence("product_code") >= 1.0 {
		parts = append(parts, fmt.Sprintf("product_code=%s", p.ProductCode))
	}
	if len(parts) == 0 {
		return ""
	}
	return "These parameters were extracted deterministically from the question and MUST be used verbatim in whichever tool call(s) you choose: " + strings.Join(parts, ", ")
}

func (n *PlanNode) Exec(ctx context.Context, prep PlanPrep) (PlanResult, error) {
	reply, err := n.provider.CallLLMWithTools(ctx, prep.Messages, prep.ToolDefinitions)
	if err != nil {
		return PlanResult{}, fmt.Errorf("plan: llm call: %w", err)
	}

	if len(reply.ToolCalls) > 0 {
		return PlanResult{ToolCalls: reply.ToolCalls, Usage: reply.Usage}, nil
	}
	if content := strings.TrimSpace(reply.Content); content != "" {
		return PlanResult{Clarification: content, Usage: reply.Usage}, nil
	}
	return PlanResult{}, fmt.Errorf("plan: llm returned neither tool calls nor content")
}

// endpointHintTool maps retrieve.ExtractEndpointHints' endpoint names to the
// tool PLAN would have called for that endpoint.
var endpointHintTool = map[string]string{
	"510k":                "search_510k",
	"pma":                 "search_pma",
	"enforcement":         "search_recalls",
	"event":               "search_events",
	"udi":                 "search_udi",
	"registrationlisting": "search_registrations",
	"classification":      "search_classifications",
}

// ExecFallback treats a failed planning call per spec §7's LLMError policy:
// one retry already happened inside core.Node, so on persistent failure
// default to the endpoint with the highest RAG hint from this turn's Prep
// rather than guessing blind. Only when no hint is available does it fall
// back to asking the user to rephrase.
func (n *PlanNode) ExecFallback(err error) PlanResult {
	log.Printf("[Plan] ExecFallback: %v", err)
	for _, hint := range n.lastHints {
		if toolName, ok := endpointHintTool[hint]; ok {
			log.Printf("[Plan] ExecFallback: defaulting to top RAG hint %q -> %s", hint, toolName)
			return PlanResult{ToolCalls: []llm.ToolCall{{ID: "fallback", Name: toolName, Arguments: json.RawMessage(`{}`)}}}
		}
	}
	return PlanResult{Clarification: "I couldn't determine how to search for that — could you rephrase the question with more specifics (a device name, product code, or manufacturer)?"}
}

func (n *PlanNode) Post(state *AgentState, prep []PlanPrep, results ...PlanResult) core.Action {
	if len(results) == 0 {
		return core.ActionAnswer
	}
	result := results[0]
	if len(prep) > 0 {
		state.RetrieverHints = prep[0].RetrieverHints
	}
	if state.Tracker != nil {
		state.Tracker.RecordCall(result.Usage.PromptTokens, result.Usage.CompletionTokens)
	}

	if result.Clarification != "" && len(result.ToolCalls) == 0 {
		state.ClarificationOnly = true
		state.Clarification = result.Clarification
		state.Messages = append(state.Messages, model.Message{Role: llm.RoleAssistant, Content: result.Clarification})
		log.Printf("[Plan] asking clarifying question")
		state.ExecLog.LogTransition("PLAN", "clarifying question: "+result.Clarification)
		return core.ActionAnswer
	}

	planned := make([]PlannedCall, 0, len(result.ToolCalls))
	for _, tc := range result.ToolCalls {
		planned = append(planned, PlannedCall{Name: tc.Name, Args: tc.Arguments})
	}
	planned = applyGuaranteedParameters(planned, state.Extracted)
	state.PlannedCalls = planned
	state.Strategy = classifyStrategy(state.Question, planned)
	log.Printf("[Plan] strategy=%s calls=%d", state.Strategy, len(planned))
	state.ExecLog.LogTransition("PLAN", fmt.Sprintf("strategy=%s, %d call(s) planned", state.Strategy, len(planned)))
	return core.ActionDispatch
}

// applyGuaranteedParameters forces the regex pre-pass's confidence-1.0
// fields onto the planned calls after the fact, so the determinism spec §4.5
// promises ("regex always wins") holds at dispatch time even if the planning
// LLM ignored guaranteedParameterMessage or omitted the call entirely.
func applyGuaranteedParameters(calls []PlannedCall, extracted model.ExtractedParameters) []PlannedCall {
	calls = forceCallWithField(calls, extracted, "search_510k", "k_number", extracted.KNumber)
	calls = forceCallWithField(calls, extracted, "search_pma", "pma_number", extracted.PMANumber)

	if extracted.ProductCode == "" || extracted.FieldConfidence("product_code") < 1.0 {
		return calls
	}
	out := make([]PlannedCall, len(calls))
	for i, c := range calls {
		if resolvers.Names[c.Name] {
			out[i] = c
			continue
		}
		var p model.ExtractedParameters
		if err := json.Unmarshal(c.Args, &p); err != nil {
			out[i] = c
			continue
		}
		p.ProductCode = extracted.ProductCode
		out[i] = PlannedCall{Name: c.Name, Args: toJSON(p)}
	}
	return out
}

// forceCallWithField overwrites field on an existing call named toolName, or
// appends a new call for toolName if PLAN didn't select it, so a
// regex-guaranteed parameter reaches dispatch regardless of what the
// planning LLM chose to call.
func forceCallWithField(calls []PlannedCall, extracted model.ExtractedParameters, toolName, field, value string) []PlannedCall {
	if value == "" || extracted.FieldConfidence(field) < 1.0 {
		return calls
	}
	for i, c := range calls {
		if c.Name != toolName {
			continue
		}
		var p model.ExtractedParameters
		_ = json.Unmarshal(c.Args, &p)
		setExtractedField(&p, field, value)
		calls[i] = PlannedCall{Name: toolName, Args: toJSON(p)}
		return calls
	}
	p := model.ExtractedParameters{}
	setExtractedField(&p, field, value)
	return append(calls, PlannedCall{Name: toolName, Args: toJSON(p)})
}

func setExtractedField(p *model.ExtractedParameters, field, value string) {
	switch field {
	case "k_number":
		p.KNumber = value
	case "pma_number":
		p.PMANumber = value
	}
}

// resolverContextSummary renders the fields of ctx that are populated as a
// short system note, so PLAN prefers reusing known resolutions over
// re-resolving the same term.
func resolverContextSummary(ctx model.ResolverContext) string {
	var parts []string
	if ctx.Devices != nil {
		parts = append(parts, fmt.Sprintf("known device resolution for %q: product codes %v", ctx.Devices.Query, ctx.Devices.ProductCodes))
	}
	if len(ctx.Manufacturers) > 0 {
		names := make([]string, 0, len(ctx.Manufacturers))
		for _, m := range ctx.Manufacturers {
			names = append(names, m.CanonicalName)
		}
		parts = append(parts, fmt.Sprintf("known manufacturers: %s", strings.Join(names, ", ")))
	}
	if ctx.Location != nil {
		parts = append(parts, fmt.Sprintf("known location resolution: %s", ctx.Location.NormalizedRegion))
	}
	if len(parts) == 0 {
		return ""
	}
	return "Known resolver context from this session:\n" + strings.Join(parts, "\n")
}

func retrievalHintMessage(chunks []model.CorpusChunk) string {
	if len(chunks) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Documentation hints (field conventions, query syntax):\n")
	for _, c := range chunks {
		sb.WriteString("- ")
		sb.WriteString(firstLine(c.Text))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

// classifyStrategy derives the spec §4.8 strategy tag from the question text
// and the tool calls PLAN selected. The LLM is not asked to name the tag
// directly (it already communicates intent through which tools it calls);
// classifying after the fact keeps the tool-calling contract identical to
// every other planner interaction and avoids a second structured-output field
// an FC-capable model would have to populate redundantly.
func classifyStrategy(question string, calls []PlannedCall) string {
	names := make(map[string]bool, len(calls))
	for _, c := range calls {
		names[c.Name] = true
	}

	if names["probe_count"] {
		return "count"
	}

	hasResolver := false
	hasSearch := false
	for name := range names {
		if resolvers.Names[name] {
			hasResolver = true
		} else {
			hasSearch = true
		}
	}
	if hasResolver && hasSearch {
		return "cross-reference"
	}

	if isSafetyDossierQuestion(question) {
		return "safety_dossier"
	}

	switch {
	case names["search_510k"] || names["search_pma"] || names["search_udi"]:
		return "exact"
	case names["search_classifications"]:
		return "category"
	default:
		return "broad"
	}
}

var safetyKeywords = []string{"safety", "recall", "adverse event", "injur", "death", "malfunction", "dossier"}

func isSafetyDossierQuestion(question string) bool {
	lower := strings.ToLower(question)
	for _, kw := range safetyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// toJSON is a small convenience used by DispatchNode when it needs to
// synthesize PlannedCall.Args from an ExtractedParameters value.
func toJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return b
}
