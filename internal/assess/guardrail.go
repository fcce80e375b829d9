package assess

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fdadevices/openfda-agent/internal/llm"
	"github.com/fdadevices/openfda-agent/internal/model"
)

// minRewriteRatio is the fraction of the original draft's length below which
// a guardrail rewrite is treated as a degenerate failure and discarded
// (spec §9 Open Question 2).
const minRewriteRatio = 0.4

const guardrailSystemPrompt = `You are a factual guardrail over a drafted answer about FDA device data.
Rewrite any sentence whose factual content is not directly supported by the tool outputs provided.
When a claim cannot be supported, replace it with a short statement that the data is not available.
Do not add new claims. Do not return an empty response.
Return only the rewritten answer text, nothing else.`

// Assessor runs both Answer Assessor layers.
type Assessor struct {
	provider llm.LLMProvider
}

func NewAssessor(provider llm.LLMProvider) *Assessor {
	return &Assessor{provider: provider}
}

// CheckSufficiency is Layer 1; exposed as a method so callers can depend on
// a single Assessor value rather than the package-level function directly.
func (a *Assessor) CheckSufficiency(question string, params model.ExtractedParameters, resultCount int) Sufficiency {
	return CheckSufficiency(question, params, resultCount)
}

// Guardrail is Layer 2: a single LLM rewrite pass over draft, grounded in
// toolCalls and resolverCtx. Never returns an empty string — if the model's
// rewrite is empty or under minRewriteRatio of the draft's length, the
// original draft is kept unchanged (spec §9 Open Question 2).
func (a *Assessor) Guardrail(ctx context.Context, draft string, toolCalls []model.ToolCall, resolverCtx model.ResolverContext) (string, error) {
	evidence, err := buildEvidenceSummary(toolCalls, resolverCtx)
	if err != nil {
		return draft, fmt.Errorf("assess: build evidence summary: %w", err)
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: guardrailSystemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Draft answer:\n%s\n\nTool outputs and resolver context:\n%s", draft, evidence)},
	}

	reply, err := a.provider.CallLLM(ctx, messages)
	if err != nil {
		return draft, fmt.Errorf("assess: guardrail call: %w", err)
	}

	rewritten := strings.TrimSpace(reply.Content)
	if rewritten == "" {
		return draft, nil
	}
	if float64(len(rewritten)) < minRewriteRatio*float64(len(draft)) {
		return draft, nil
	}
	return rewritten, nil
}

func buildEvidenceSummary(toolCalls []model.ToolCall, resolverCtx model.ResolverContext) (string, error) {
	payload := struct {
		ToolCalls       []model.ToolCall      `json:"tool_calls"`
		ResolverContext model.ResolverContext `json:"resolver_context"`
	}{ToolCalls: toolCalls, ResolverContext: resolverCtx}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
