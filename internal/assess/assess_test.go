package assess

import (
	"context"
	"strings"
	"testing"

	"github.com/fdadevices/openfda-agent/internal/llm"
	"github.com/fdadevices/openfda-agent/internal/model"
)

func TestCheckSufficiency_MissingClassFilter(t *testing.T) {
	got := CheckSufficiency("show me class II recalls", model.ExtractedParameters{}, 10)
	if got.Sufficient {
		t.Errorf("Sufficient = true, want false (class token present, no class field extracted)")
	}
	if got.Reason != "missing class filter" {
		t.Errorf("Reason = %q, want %q", got.Reason, "missing class filter")
	}
}

func TestCheckSufficiency_MissingDateFilter(t *testing.T) {
	got := CheckSufficiency("recalls since 2020", model.ExtractedParameters{}, 10)
	if got.Sufficient {
		t.Error("Sufficient = true, want false (temporal token present, no date range extracted)")
	}
	if got.Reason != "missing date filter" {
		t.Errorf("Reason = %q, want %q", got.Reason, "missing date filter")
	}
}

func TestCheckSufficiency_ZeroResultsIsValidAnswer(t *testing.T) {
	params := model.ExtractedParameters{ProductCode: "FXX"}
	got := CheckSufficiency("recalls for product code FXX", params, 0)
	if !got.Sufficient {
		t.Errorf("Sufficient = false, want true (zero results with a real filter present is a valid answer)")
	}
}

func TestCheckSufficiency_ZeroResultsWithImpliedMissingFilter(t *testing.T) {
	got := CheckSufficiency("recalls for product code FXX", model.ExtractedParameters{}, 0)
	if got.Sufficient {
		t.Error("Sufficient = true, want false (question implies a product code that was never extracted)")
	}
}

func TestCheckSufficiency_Plain(t *testing.T) {
	params := model.ExtractedParameters{FirmName: "Acme Medical"}
	got := CheckSufficiency("devices made by Acme Medical", params, 5)
	if !got.Sufficient {
		t.Errorf("Sufficient = false, want true")
	}
}

type fakeGuardrailProvider struct {
	content string
}

func (f *fakeGuardrailProvider) CallLLM(ctx context.Context, messages []llm.Message) (llm.Message, error) {
	return llm.Message{Role: llm.RoleAssistant, Content: f.content}, nil
}
func (f *fakeGuardrailProvider) CallLLMStream(ctx context.Context, messages []llm.Message, onChunk llm.StreamCallback) (llm.Message, error) {
	return f.CallLLM(ctx, messages)
}
func (f *fakeGuardrailProvider) CallLLMWithTools(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition) (llm.Message, error) {
	return f.CallLLM(ctx, messages)
}
func (f *fakeGuardrailProvider) IsToolCallingEnabled() bool { return false }
func (f *fakeGuardrailProvider) GetName() string            { return "fake" }

func TestAssessor_Guardrail_KeepsDraftWhenRewriteEmpty(t *testing.T) {
	provider := &fakeGuardrailProvider{content: ""}
	a := NewAssessor(provider)

	draft := "Three devices matched your search for product code FXX."
	out, err := a.Guardrail(context.Background(), draft, nil, model.ResolverContext{})
	if err != nil {
		t.Fatalf("Guardrail() error: %v", err)
	}
	if out != draft {
		t.Errorf("Guardrail() = %q, want original draft kept", out)
	}
}

func TestAssessor_Guardrail_KeepsDraftWhenRewriteTooShort(t *testing.T) {
	draft := strings.Repeat("This is a long, detailed draft answer about recall records. ", 5)
	provider := &fakeGuardrailProvider{content: "Short."}
	a := NewAssessor(provider)

	out, err := a.Guardrail(context.Background(), draft, nil, model.ResolverContext{})
	if err != nil {
		t.Fatalf("Guardrail() error: %v", err)
	}
	if out != draft {
		t.Errorf("Guardrail() = %q, want original draft kept (rewrite under 40%% of draft length)", out)
	}
}

func TestAssessor_Guardrail_AcceptsSubstantiveRewrite(t *testing.T) {
	draft := "Three devices matched your search for product code FXX, all manufactured in Germany."
	rewrite := "Three devices matched your search for product code FXX. Manufacturing country is not available in the tool output."
	provider := &fakeGuardrailProvider{content: rewrite}
	a := NewAssessor(provider)

	out, err := a.Guardrail(context.Background(), draft, nil, model.ResolverContext{})
	if err != nil {
		t.Fatalf("Guardrail() error: %v", err)
	}
	if out != rewrite {
		t.Errorf("Guardrail() = %q, want the substantive rewrite %q", out, rewrite)
	}
}
