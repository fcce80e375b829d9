package openfda

import (
	"context"
	"encoding/json"

	"github.com/fdadevices/openfda-agent/internal/model"
	"github.com/fdadevices/openfda-agent/internal/tool"
	"github.com/fdadevices/openfda-agent/internal/transport"
)

// ClearancesTool queries the 510(k) premarket clearance dataset.
type ClearancesTool struct {
	client *transport.Client
}

func NewClearancesTool(c *transport.Client) *ClearancesTool {
	return &ClearancesTool{client: c}
}

func (t *ClearancesTool) Name() string { return "search_510k" }

func (t *ClearancesTool) Description() string {
	return "Searches the openFDA 510(k) premarket clearance dataset by K-number, applicant, device name, or product code."
}

func (t *ClearancesTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "k_number", Type: "string", Description: "K followed by 6 digits"},
		tool.SchemaParam{Name: "applicant", Type: "string", Description: "applicant/submitter name"},
		tool.SchemaParam{Name: "device_name", Type: "string", Description: "free-text device name"},
		tool.SchemaParam{Name: "product_code", Type: "string", Description: "3-letter FDA product code"},
		tool.SchemaParam{Name: "date_start", Type: "string", Description: "decision date range start, YYYYMMDD"},
		tool.SchemaParam{Name: "date_end", Type: "string", Description: "decision date range end, YYYYMMDD"},
		tool.SchemaParam{Name: "limit", Type: "integer", Description: "max records, capped at 1000"},
	)
}

func (t *ClearancesTool) Init(_ context.Context) error { return nil }
func (t *ClearancesTool) Close() error                 { return nil }

func (t *ClearancesTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var p model.ExtractedParameters
	if err := json.Unmarshal(args, &p); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	detectKNumber(&p)

	clauses := []clause{
		{"k_number", p.KNumber},
		{"applicant", p.Applicant},
		{"device_name", p.DeviceName},
		{"product_code", p.ProductCode},
	}
	search := buildSearch(clauses...)
	if dr := dateRangeClause("decision_date", p.DateStart, p.DateEnd); dr != "" {
		if search != "" {
			search += " AND " + dr
		} else {
			search = dr
		}
	}

	result, err := runQuery(ctx, t.client, "510k", search, p.Limit, p.Skip)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	out, _ := json.Marshal(result)
	return tool.ToolResult{Output: string(out)}, nil
}

// detectKNumber reroutes a bare K-number that landed in device_name (spec
// §4.2's auto-detect policy: "K" + 6 digits -> k_number exact match).
func detectKNumber(p *model.ExtractedParameters) {
	if p.KNumber == "" && p.DeviceName != "" && kNumberPattern.MatchString(p.DeviceName) {
		p.KNumber = p.DeviceName
		p.DeviceName = ""
	}
}
