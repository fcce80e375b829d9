package openfda

import (
	"context"
	"encoding/json"

	"github.com/fdadevices/openfda-agent/internal/model"
	"github.com/fdadevices/openfda-agent/internal/tool"
	"github.com/fdadevices/openfda-agent/internal/transport"
)

// PMATool queries the premarket approval (PMA) dataset.
type PMATool struct {
	client *transport.Client
}

func NewPMATool(c *transport.Client) *PMATool {
	return &PMATool{client: c}
}

func (t *PMATool) Name() string { return "search_pma" }

func (t *PMATool) Description() string {
	return "Searches the openFDA premarket approval (PMA) dataset by PMA number, applicant, device name, or product code."
}

func (t *PMATool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "pma_number", Type: "string", Description: "P followed by 6 digits"},
		tool.SchemaParam{Name: "applicant", Type: "string", Description: "applicant/submitter name"},
		tool.SchemaParam{Name: "device_name", Type: "string", Description: "free-text device (trade) name"},
		tool.SchemaParam{Name: "product_code", Type: "string", Description: "3-letter FDA product code"},
		tool.SchemaParam{Name: "date_start", Type: "string", Description: "decision date range start, YYYYMMDD"},
		tool.SchemaParam{Name: "date_end", Type: "string", Description: "decision date range end, YYYYMMDD"},
		tool.SchemaParam{Name: "limit", Type: "integer", Description: "max records, capped at 1000"},
	)
}

func (t *PMATool) Init(_ context.Context) error { return nil }
func (t *PMATool) Close() error                 { return nil }

func (t *PMATool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var p model.ExtractedParameters
	if err := json.Unmarshal(args, &p); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	detectPMANumber(&p)

	// The PMA dataset indexes device name under trade_name, not device_name.
	clauses := []clause{
		{"pma_number", p.PMANumber},
		{"applicant", p.Applicant},
		{"trade_name", p.DeviceName},
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

	result, err := runQuery(ctx, t.client, "pma", search, p.Limit, p.Skip)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	out, _ := json.Marshal(result)
	return tool.ToolResult{Output: string(out)}, nil
}

// detectPMANumber reroutes a bare PMA number that landed in device_name
// (spec §4.2's auto-detect policy: "P" + 6 digits).
func detectPMANumber(p *model.ExtractedParameters) {
	if p.PMANumber == "" && p.DeviceName != "" && pmaNumberPattern.MatchString(p.DeviceName) {
		p.PMANumber = p.DeviceName
		p.DeviceName = ""
	}
}
