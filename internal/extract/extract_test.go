package extract

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/fdadevices/openfda-agent/internal/config"
	"github.com/fdadevices/openfda-agent/internal/llm"
	"github.com/fdadevices/openfda-agent/internal/model"
	"github.com/fdadevices/openfda-agent/internal/retrieve"
)

// fakeProvider is a minimal llm.LLMProvider stand-in that returns a fixed
// tool call (or plain-text content) regardless of the prompt.
type fakeProvider struct {
	toolCalling bool
	toolArgs    json.RawMessage
	content     string
}

func (f *fakeProvider) CallLLM(ctx context.Context, messages []llm.Message) (llm.Message, error) {
	return llm.Message{Role: llm.RoleAssistant, Content: f.content}, nil
}

func (f *fakeProvider) CallLLMStream(ctx context.Context, messages []llm.Message, onChunk llm.StreamCallback) (llm.Message, error) {
	return f.CallLLM(ctx, messages)
}

func (f *fakeProvider) CallLLMWithTools(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition) (llm.Message, error) {
	if f.toolArgs == nil {
		return llm.Message{Role: llm.RoleAssistant, Content: f.content}, nil
	}
	return llm.Message{
		Role: llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{
			{ID: "call_1", Name: extractToolName, Arguments: f.toolArgs},
		},
	}, nil
}

func (f *fakeProvider) IsToolCallingEnabled() bool { return f.toolCalling }
func (f *fakeProvider) GetName() string            { return "fake" }

func testRegions(t *testing.T) *config.RegionTable {
	t.Helper()
	regions, err := config.LoadRegionTable("")
	if err != nil {
		t.Fatalf("LoadRegionTable() error: %v", err)
	}
	return regions
}

// noopEmbedder returns a zero vector per text; dense ranking doesn't matter
// for these tests, only the canonical field lookup BuildCorpus backs.
type noopEmbedder struct{}

func (noopEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0}
	}
	return out, nil
}

func testRetriever(t *testing.T) *retrieve.Retriever {
	t.Helper()
	r, err := retrieve.New(context.Background(), noopEmbedder{})
	if err != nil {
		t.Fatalf("retrieve.New() error: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestExtract_RegexWinsOverLLM(t *testing.T) {
	provider := &fakeProvider{
		toolCalling: true,
		toolArgs:    json.RawMessage(`{"k_number": "K999999", "device_name": "wrong"}`),
	}
	e := NewExtractor(provider, testRegions(t), nil)

	params, err := e.Extract(context.Background(), "tell me about K123456", "510k")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if params.KNumber != "K123456" {
		t.Errorf("KNumber = %q, want the regex hit K123456 to win", params.KNumber)
	}
	if params.FieldConfidence("k_number") != 1.0 {
		t.Errorf("k_number confidence = %v, want 1.0", params.FieldConfidence("k_number"))
	}
}

func TestExtract_ProductCodeRequiresPrecedingPhrase(t *testing.T) {
	provider := &fakeProvider{toolCalling: true, toolArgs: json.RawMessage(`{}`)}
	e := NewExtractor(provider, testRegions(t), nil)

	params, err := e.Extract(context.Background(), "what is product code ABC used for", "classification")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if params.ProductCode != "ABC" {
		t.Errorf("ProductCode = %q, want ABC", params.ProductCode)
	}
}

func TestExtract_ClassMentionRoutesByEndpoint(t *testing.T) {
	provider := &fakeProvider{toolCalling: true, toolArgs: json.RawMessage(`{}`)}
	e := NewExtractor(provider, testRegions(t), nil)

	params, err := e.Extract(context.Background(), "show me class II recalls", "enforcement")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if params.RecallClass != "Class II" {
		t.Errorf("RecallClass = %q, want Class II", params.RecallClass)
	}
	if params.DeviceClass != nil {
		t.Errorf("DeviceClass = %v, want nil (recall context should not also set device_class)", *params.DeviceClass)
	}

	params2, err := e.Extract(context.Background(), "list class II devices", "classification")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if params2.DeviceClass == nil || *params2.DeviceClass != 2 {
		t.Errorf("DeviceClass = %v, want 2", params2.DeviceClass)
	}
}

func TestExtract_DateNormalization(t *testing.T) {
	provider := &fakeProvider{
		toolCalling: true,
		toolArgs:    json.RawMessage(`{"date_start": "01/15/2020", "date_end": "2021-06-30"}`),
	}
	e := NewExtractor(provider, testRegions(t), nil)

	params, err := e.Extract(context.Background(), "recalls between those dates", "enforcement")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if params.DateStart != "20200115" {
		t.Errorf("DateStart = %q, want 20200115", params.DateStart)
	}
	if params.DateEnd != "20210630" {
		t.Errorf("DateEnd = %q, want 20210630", params.DateEnd)
	}
}

func TestExtract_CountryNormalizedPerEndpoint(t *testing.T) {
	provider := &fakeProvider{
		toolCalling: true,
		toolArgs:    json.RawMessage(`{"country": "China"}`),
	}
	e := NewExtractor(provider, testRegions(t), nil)

	eventParams, err := e.Extract(context.Background(), "adverse events from China", "event")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if eventParams.Country != "CN" {
		t.Errorf("Country = %q, want ISO code CN for the event endpoint", eventParams.Country)
	}

	regParams, err := e.Extract(context.Background(), "registrations from China", "registrationlisting")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if regParams.Country != "CN" {
		t.Errorf("Country = %q, want ISO code CN for registrationlisting (both forms exist; code is preferred)", regParams.Country)
	}
}

func TestExtract_LowConfidenceFieldDroppedWhenEndpointDoesNotSupportIt(t *testing.T) {
	provider := &fakeProvider{
		toolCalling: true,
		toolArgs:    json.RawMessage(`{"country": "China"}`),
	}
	e := NewExtractor(provider, testRegions(t), testRetriever(t))

	params, err := e.Extract(context.Background(), "UDI records for this device", "udi")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if params.Country != "" {
		t.Errorf("Country = %q, want cleared: udi's canonical field list has no country field", params.Country)
	}
	if _, ok := params.Confidence["country"]; ok {
		t.Error("expected country's confidence entry to be removed along with the field")
	}
}

func TestExtract_LowConfidenceFieldKeptWhenEndpointSupportsIt(t *testing.T) {
	provider := &fakeProvider{
		toolCalling: true,
		toolArgs:    json.RawMessage(`{"country": "China"}`),
	}
	e := NewExtractor(provider, testRegions(t), testRetriever(t))

	params, err := e.Extract(context.Background(), "recalls from overseas firms", "enforcement")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if params.Country != "China" {
		t.Errorf("Country = %q, want China kept: enforcement's canonical fields include country", params.Country)
	}
}

func TestExtract_FallbackParsesJSONContentWithoutToolCalling(t *testing.T) {
	provider := &fakeProvider{
		toolCalling: false,
		content:     "```json\n{\"firm_name\": \"Acme Medical\"}\n```",
	}
	e := NewExtractor(provider, testRegions(t), nil)

	params, err := e.Extract(context.Background(), "devices made by Acme Medical", "classification")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if params.FirmName != "Acme Medical" {
		t.Errorf("FirmName = %q, want Acme Medical", params.FirmName)
	}
}

func TestLowConfidenceFields(t *testing.T) {
	p := model.ExtractedParameters{}
	p.SetConfidence("firm_name", 0.6)
	p.SetConfidence("product_code", 1.0)

	low := LowConfidenceFields(p)
	if len(low) != 1 || low[0] != "firm_name" {
		t.Errorf("LowConfidenceFields() = %v, want [firm_name]", low)
	}
}
