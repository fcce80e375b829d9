package openfda

import (
	"context"
	"encoding/json"

	"github.com/fdadevices/openfda-agent/internal/model"
	"github.com/fdadevices/openfda-agent/internal/tool"
	"github.com/fdadevices/openfda-agent/internal/transport"
)

// RecallsTool queries the enforcement (recalls) dataset. The dataset has no
// product_code field at all, so this tool never reads p.ProductCode
// (spec §4.2).
type RecallsTool struct {
	client *transport.Client
}

func NewRecallsTool(c *transport.Client) *RecallsTool {
	return &RecallsTool{client: c}
}

func (t *RecallsTool) Name() string { return "search_recalls" }

func (t *RecallsTool) Description() string {
	return "Searches the openFDA enforcement (recalls) dataset by firm, device name, recall class, or country."
}

func (t *RecallsTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "firm_name", Type: "string", Description: "recalling firm name"},
		tool.SchemaParam{Name: "device_name", Type: "string", Description: "free-text product description"},
		tool.SchemaParam{Name: "recall_class", Type: "string", Description: `"Class I", "Class II", or "Class III"`},
		tool.SchemaParam{Name: "country", Type: "string", Description: "full country name, e.g. \"China\""},
		tool.SchemaParam{Name: "date_start", Type: "string", Description: "recall date range start, YYYYMMDD"},
		tool.SchemaParam{Name: "date_end", Type: "string", Description: "recall date range end, YYYYMMDD"},
		tool.SchemaParam{Name: "limit", Type: "integer", Description: "max records, capped at 1000"},
	)
}

func (t *RecallsTool) Init(_ context.Context) error { return nil }
func (t *RecallsTool) Close() error                 { return nil }

func (t *RecallsTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var p model.ExtractedParameters
	if err := json.Unmarshal(args, &p); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}

	clauses := []clause{
		{"recalling_firm", p.FirmName},
		{"product_description", p.DeviceName},
		{"classification", p.RecallClass},
		{"country", p.Country},
	}
	search := buildSearch(clauses...)
	if dr := dateRangeClause("recall_initiation_date", p.DateStart, p.DateEnd); dr != "" {
		if search != "" {
			search += " AND " + dr
		} else {
			search = dr
		}
	}

	result, err := runQuery(ctx, t.client, "enforcement", search, p.Limit, p.Skip)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	out, _ := json.Marshal(result)
	return tool.ToolResult{Output: string(out)}, nil
}
