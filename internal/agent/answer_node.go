package agent

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/fdadevices/openfda-agent/internal/core"
	"github.com/fdadevices/openfda-agent/internal/llm"
	"github.com/fdadevices/openfda-agent/internal/model"
)

// maxTableRows bounds the inline results table (spec §4.8: "prose + ≤10-row
// table + provenance block").
const maxTableRows = 10

const answerSystemPrompt = `You are answering a question about FDA device data using the tool results
provided. Write two to four sentences of prose summarizing what the data shows. Do not invent
figures beyond what the tool results contain. Do not format a table yourself — a table and
provenance block are appended separately. If the tool results are empty, say so plainly.`

// AnswerNode implements ANSWER (spec §4.8): drafts prose from the turn's
// accumulated tool results, then appends a deterministic results table and
// provenance block.
type AnswerNode struct {
	provider llm.LLMProvider
}

func NewAnswerNode(provider llm.LLMProvider) *AnswerNode {
	return &AnswerNode{provider: provider}
}

// AnswerPrep carries either a clarifying question (bypassing prose
// synthesis entirely) or the evidence ANSWER should summarize.
type AnswerPrep struct {
	ClarificationOnly bool
	Clarification     string
	Question          string
	ToolCalls         []model.ToolCall
	Retries           int
}

func (n *AnswerNode) Prep(state *AgentState) []AnswerPrep {
	return []AnswerPrep{{
		ClarificationOnly: state.ClarificationOnly,
		Clarification:     state.Clarification,
		Question:          state.Question,
		ToolCalls:         state.ToolCalls,
		Retries:           state.Retries,
	}}
}

// AnswerExec is ANSWER's Exec output: the drafted prose plus the token
// usage the drafting call spent, so Post can feed it to the turn's tracker.
type AnswerExec struct {
	Text  string
	Usage llm.Usage
}

func (n *AnswerNode) Exec(ctx context.Context, prep AnswerPrep) (AnswerExec, error) {
	if prep.ClarificationOnly {
		return AnswerExec{Text: prep.Clarification}, nil
	}

	evidence := summarizeToolCalls(prep.ToolCalls)
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: answerSystemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Question: %s\n\nTool results:\n%s", prep.Question, evidence)},
	}

	reply, err := n.provider.CallLLM(ctx, messages)
	if err != nil {
		return AnswerExec{}, fmt.Errorf("answer: llm call: %w", err)
	}
	return AnswerExec{Text: strings.TrimSpace(reply.Content), Usage: reply.Usage}, nil
}

func (n *AnswerNode) ExecFallback(err error) AnswerExec {
	log.Printf("[Answer] ExecFallback: %v", err)
	return AnswerExec{Text: "I found some data but couldn't summarize it cleanly; see the results and provenance below."}
}

func (n *AnswerNode) Post(state *AgentState, prep []AnswerPrep, results ...AnswerExec) core.Action {
	draft := ""
	if len(results) > 0 {
		draft = results[0].Text
		if state.Tracker != nil {
			state.Tracker.RecordCall(results[0].Usage.PromptTokens, results[0].Usage.CompletionTokens)
		}
	}

	if state.ClarificationOnly {
		state.Draft = draft
		state.ExecLog.LogTransition("ANSWER", "clarification only, drafted "+fmt.Sprint(len(draft))+" chars")
		return core.ActionGuard
	}

	var sb strings.Builder
	sb.WriteString(draft)
	if table := buildResultsTable(state.ToolCalls); table != "" {
		sb.WriteString("\n\n")
		sb.WriteString(table)
	}
	sb.WriteString("\n\n")
	sb.WriteString(buildProvenanceBlock(state.ToolCalls, state.Retries))

	state.Draft = sb.String()
	log.Printf("[Answer] drafted %d chars", len(state.Draft))
	state.ExecLog.LogTransition("ANSWER", fmt.Sprintf("drafted %d chars from %d tool call(s)", len(state.Draft), len(state.ToolCalls)))
	return core.ActionGuard
}

func summarizeToolCalls(calls []model.ToolCall) string {
	if len(calls) == 0 {
		return "(no tool calls were made)"
	}
	var sb strings.Builder
	for _, tc := range calls {
		if tc.Error != "" {
			fmt.Fprintf(&sb, "- %s: failed (%s)\n", tc.ToolName, tc.Error)
			continue
		}
		if tc.Result == nil {
			continue
		}
		fmt.Fprintf(&sb, "- %s: %d result(s) from %s, query %q\n", tc.ToolName, len(tc.Result.Results), tc.Result.Endpoint, tc.Result.QueryExpression)
		for i, r := range tc.Result.Results {
			if i >= maxTableRows {
				break
			}
			fmt.Fprintf(&sb, "  - %s\n", summarizeRecord(r))
		}
	}
	return sb.String()
}

// buildResultsTable renders up to maxTableRows of the first populated
// ToolCall's results as a markdown table. Columns are the first populated
// record's keys, sorted for determinism.
func buildResultsTable(calls []model.ToolCall) string {
	for _, tc := range calls {
		if tc.Result == nil || len(tc.Result.Results) == 0 {
			continue
		}
		return renderTable(tc.Result.Results)
	}
	return ""
}

func renderTable(records []model.RawRecord) string {
	if len(records) == 0 {
		return ""
	}
	cols := tableColumns(records[0])
	if len(cols) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("| ")
	sb.WriteString(strings.Join(cols, " | "))
	sb.WriteString(" |\n|")
	sb.WriteString(strings.Repeat(" --- |", len(cols)))
	sb.WriteByte('\n')

	rows := records
	if len(rows) > maxTableRows {
		rows = rows[:maxTableRows]
	}
	for _, r := range rows {
		sb.WriteString("| ")
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = cellValue(r[c])
		}
		sb.WriteString(strings.Join(cells, " | "))
		sb.WriteString(" |\n")
	}
	return sb.String()
}

// tableColumns picks at most 6 keys from a raw record, sorted, to keep the
// table narrow regardless of how many fields the openFDA payload carries.
func tableColumns(record model.RawRecord) []string {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 6 {
		keys = keys[:6]
	}
	return keys
}

func cellValue(v any) string {
	if v == nil {
		return ""
	}
	s := fmt.Sprintf("%v", v)
	s = strings.ReplaceAll(s, "|", "/")
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return s
}

func summarizeRecord(r model.RawRecord) string {
	cols := tableColumns(r)
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("%s=%s", c, cellValue(r[c]))
	}
	return strings.Join(parts, ", ")
}

// buildProvenanceBlock renders spec §4.8's provenance block: per-call
// endpoint, query expression, result count, and last_updated, with failed
// calls showing their failure reason in place of a count (spec §7: "every
// answer includes provenance; failed-tool provenance lists failure kind and
// reason next to the endpoint name").
func buildProvenanceBlock(calls []model.ToolCall, retries int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Provenance (retries: %d):\n", retries))
	if len(calls) == 0 {
		sb.WriteString("- no tool calls were made\n")
		return sb.String()
	}
	for _, tc := range calls {
		if tc.Error != "" {
			fmt.Fprintf(&sb, "- %s: failed — %s\n", tc.ToolName, tc.Error)
			continue
		}
		if tc.Result == nil {
			fmt.Fprintf(&sb, "- %s: no result recorded\n", tc.ToolName)
			continue
		}
		fmt.Fprintf(&sb, "- %s (%s): query=%q results=%d last_updated=%s\n",
			tc.ToolName, tc.Result.Endpoint, tc.Result.QueryExpression, tc.Result.Meta.Total, tc.Result.Meta.LastUpdated)
	}
	return sb.String()
}
