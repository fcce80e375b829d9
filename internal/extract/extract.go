// Package extract implements the two-phase Parameter Extractor (spec §4.5):
// a deterministic regex pre-pass followed by an LLM structured-output pass,
// with the regex hits always winning on conflict.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fdadevices/openfda-agent/internal/config"
	"github.com/fdadevices/openfda-agent/internal/llm"
	"github.com/fdadevices/openfda-agent/internal/model"
	"github.com/fdadevices/openfda-agent/internal/retrieve"
	"github.com/fdadevices/openfda-agent/internal/tool"
)

const extractToolName = "extract_parameters"

const extractionSystemPrompt = `You extract structured FDA device search parameters from a user's question.
Call extract_parameters with every field the question states or clearly implies. Leave a field unset rather than guessing.
Dates go in YYYY-MM-DD or any unambiguous written form; they will be normalized later.
device_class is 1, 2, or 3 (the classification/510k/PMA/UDI sense). recall_class is "Class I", "Class II", or "Class III" (the enforcement/recall sense). Never set both for the same class mention.`

var parametersSchema = tool.BuildSchema(
	tool.SchemaParam{Name: "device_class", Type: "integer", Description: "Device class 1, 2, or 3, when the question is about classification/510(k)/PMA/UDI records.", Enum: []string{"1", "2", "3"}},
	tool.SchemaParam{Name: "recall_class", Type: "string", Description: "Recall severity class, when the question is about enforcement/recalls.", Enum: []string{"Class I", "Class II", "Class III"}},
	tool.SchemaParam{Name: "product_code", Type: "string", Description: "3-letter FDA product code."},
	tool.SchemaParam{Name: "k_number", Type: "string", Description: "510(k) premarket notification number, e.g. K123456."},
	tool.SchemaParam{Name: "pma_number", Type: "string", Description: "PMA number, e.g. P123456."},
	tool.SchemaParam{Name: "firm_name", Type: "string", Description: "Manufacturer or registrant name."},
	tool.SchemaParam{Name: "applicant", Type: "string", Description: "510(k)/PMA applicant name, when distinct from firm_name."},
	tool.SchemaParam{Name: "device_name", Type: "string", Description: "Device brand or generic name."},
	tool.SchemaParam{Name: "country", Type: "string", Description: "Country mentioned, as free text (e.g. \"China\", \"US\")."},
	tool.SchemaParam{Name: "state", Type: "string", Description: "US state mentioned, as free text (e.g. \"California\", \"CA\")."},
	tool.SchemaParam{Name: "fei_number", Type: "string", Description: "FDA establishment identifier."},
	tool.SchemaParam{Name: "date_start", Type: "string", Description: "Start of a date range mentioned, in any written form."},
	tool.SchemaParam{Name: "date_end", Type: "string", Description: "End of a date range mentioned, in any written form."},
	tool.SchemaParam{Name: "limit", Type: "integer", Description: "Result count explicitly requested, if any."},
	tool.SchemaParam{Name: "event_type", Type: "string", Description: "Adverse event type, e.g. Death, Injury, Malfunction."},
	tool.SchemaParam{Name: "regulation_number", Type: "string", Description: "CFR regulation number, e.g. 870.1234."},
	tool.SchemaParam{Name: "udi", Type: "string", Description: "Unique device identifier."},
)

// Extractor runs the two-phase extraction pipeline against a configured LLM
// provider, normalizing its output per the target endpoint's conventions.
type Extractor struct {
	provider  llm.LLMProvider
	regions   *config.RegionTable
	retriever *retrieve.Retriever // optional; nil skips canonical-field reconciliation
}

func NewExtractor(provider llm.LLMProvider, regions *config.RegionTable, retriever *retrieve.Retriever) *Extractor {
	return &Extractor{provider: provider, regions: regions, retriever: retriever}
}

// Extract parses question into ExtractedParameters. targetEndpoint (one of
// the 7 openFDA endpoint tool resources, or "" when not yet known) governs
// class-field and country normalization, both of which vary by endpoint.
func (e *Extractor) Extract(ctx context.Context, question, targetEndpoint string) (model.ExtractedParameters, error) {
	hits := extractRegex(question)

	llmParams, err := e.extractLLM(ctx, question)
	if err != nil {
		return model.ExtractedParameters{}, fmt.Errorf("extract: llm phase: %w", err)
	}

	merged := mergeRegexOverLLM(llmParams, hits)
	e.normalize(&merged, question, targetEndpoint)
	e.reconcileLowConfidenceFields(&merged, targetEndpoint)
	return merged, nil
}

// reconcileLowConfidenceFields looks up targetEndpoint's canonical field
// list (spec §4.6's second retriever call site) whenever the extractor
// reports a low-confidence field, and drops any such field the endpoint
// doesn't actually expose a filter for, rather than sending openFDA a
// clause it will reject outright.
func (e *Extractor) reconcileLowConfidenceFields(p *model.ExtractedParameters, targetEndpoint string) {
	if e.retriever == nil || targetEndpoint == "" {
		return
	}
	low := LowConfidenceFields(*p)
	if len(low) == 0 {
		return
	}
	fields, err := e.retriever.FieldsForEndpoint(targetEndpoint)
	if err != nil {
		log.Printf("[Extract] canonical field lookup for %q failed: %v", targetEndpoint, err)
		return
	}
	for _, field := range low {
		if _, ok := fieldAliases[field]; !ok && !containsString(fields, field) {
			continue // no known mapping for this field name; leave it alone
		}
		if !endpointSupportsField(fields, field) {
			log.Printf("[Extract] dropping low-confidence field %q: not supported by endpoint %q", field, targetEndpoint)
			clearExtractedField(p, field)
		}
	}
}

func containsString(fields []string, field string) bool {
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}

// clearExtractedField zeroes field on p and drops its recorded confidence,
// the inverse of markExplicitConfidence/mergeRegexOverLLM's SetConfidence
// calls.
func clearExtractedField(p *model.ExtractedParameters, field string) {
	switch field {
	case "firm_name":
		p.FirmName = ""
	case "device_name":
		p.DeviceName = ""
	case "country":
		p.Country = ""
	case "state":
		p.State = ""
	}
	delete(p.Confidence, field)
}

func (e *Extractor) extractLLM(ctx context.Context, question string) (model.ExtractedParameters, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: extractionSystemPrompt},
		{Role: llm.RoleUser, Content: question},
	}

	if e.provider.IsToolCallingEnabled() {
		reply, err := e.provider.CallLLMWithTools(ctx, messages, []llm.ToolDefinition{{
			Name:        extractToolName,
			Description: "Record every FDA device search parameter mentioned or implied by the question.",
			Parameters:  json.RawMessage(parametersSchema),
		}})
		if err != nil {
			return model.ExtractedParameters{}, err
		}
		for _, call := range reply.ToolCalls {
			if call.Name != extractToolName {
				continue
			}
			var params model.ExtractedParameters
			if err := json.Unmarshal(call.Arguments, &params); err != nil {
				return model.ExtractedParameters{}, fmt.Errorf("decode tool-call arguments: %w", err)
			}
			markExplicitConfidence(&params, question)
			return params, nil
		}
		// The model claimed tool-calling support but didn't call the tool;
		// fall through and parse its text content like a non-tool-calling model.
	}

	reply, err := e.provider.CallLLM(ctx, messages)
	if err != nil {
		return model.ExtractedParameters{}, err
	}
	params, err := parseFallbackContent(reply.Content)
	if err != nil {
		return model.ExtractedParameters{}, err
	}
	markExplicitConfidence(&params, question)
	return params, nil
}

// markExplicitConfidence scores every field the LLM populated: 0.9 if the
// field's value literally appears in the question text, 0.6 if the model
// inferred it without direct textual evidence (spec §4.5).
func markExplicitConfidence(p *model.ExtractedParameters, question string) {
	lower := strings.ToLower(question)
	score := func(value string) float64 {
		if value != "" && strings.Contains(lower, strings.ToLower(value)) {
			return 0.9
		}
		return 0.6
	}
	if p.RecallClass != "" {
		p.SetConfidence("recall_class", score(p.RecallClass))
	}
	if p.ProductCode != "" {
		p.SetConfidence("product_code", score(p.ProductCode))
	}
	if p.KNumber != "" {
		p.SetConfidence("k_number", score(p.KNumber))
	}
	if p.PMANumber != "" {
		p.SetConfidence("pma_number", score(p.PMANumber))
	}
	if p.FirmName != "" {
		p.SetConfidence("firm_name", score(p.FirmName))
	}
	if p.Applicant != "" {
		p.SetConfidence("applicant", score(p.Applicant))
	}
	if p.DeviceName != "" {
		p.SetConfidence("device_name", score(p.DeviceName))
	}
	if p.Country != "" {
		p.SetConfidence("country", score(p.Country))
	}
	if p.State != "" {
		p.SetConfidence("state", score(p.State))
	}
	if p.FEINumber != "" {
		p.SetConfidence("fei_number", score(p.FEINumber))
	}
	if p.EventType != "" {
		p.SetConfidence("event_type", score(p.EventType))
	}
	if p.RegulationNum != "" {
		p.SetConfidence("regulation_number", score(p.RegulationNum))
	}
	if p.UDI != "" {
		p.SetConfidence("udi", score(p.UDI))
	}
	if p.DeviceClass != nil {
		p.SetConfidence("device_class", 0.6)
	}
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl != -1 {
		trimmed = trimmed[nl+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func parseFallbackContent(content string) (model.ExtractedParameters, error) {
	body := stripCodeFence(content)
	var params model.ExtractedParameters
	if err := json.Unmarshal([]byte(body), &params); err == nil {
		return params, nil
	}
	if err := yaml.Unmarshal([]byte(body), &params); err == nil {
		return params, nil
	}
	return model.ExtractedParameters{}, fmt.Errorf("extract: could not parse extractor output as JSON or YAML: %q", body)
}

// mergeRegexOverLLM overlays hits on top of the LLM's output. The regex
// pre-pass is deterministic and always wins (confidence 1.0).
func mergeRegexOverLLM(llmParams model.ExtractedParameters, hits regexHits) model.ExtractedParameters {
	merged := llmParams
	if hits.KNumber != "" {
		merged.KNumber = hits.KNumber
		merged.SetConfidence("k_number", 1.0)
	}
	if hits.PMANumber != "" {
		merged.PMANumber = hits.PMANumber
		merged.SetConfidence("pma_number", 1.0)
	}
	if hits.ProductCode != "" {
		merged.ProductCode = hits.ProductCode
		merged.SetConfidence("product_code", 1.0)
	}
	return merged
}

// LowConfidenceFields returns the fields of p whose recorded confidence is
// below 0.8 — the planner's trigger for a RAG hint lookup and re-extraction
// (spec §4.5). Unrecorded fields (set directly, not via the extractor) are
// never reported here, matching FieldConfidence's 1.0 default.
func LowConfidenceFields(p model.ExtractedParameters) []string {
	var low []string
	for field, score := range p.Confidence {
		if score < 0.8 {
			low = append(low, field)
		}
	}
	return low
}
