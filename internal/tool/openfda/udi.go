package openfda

import (
	"context"
	"encoding/json"

	"github.com/fdadevices/openfda-agent/internal/model"
	"github.com/fdadevices/openfda-agent/internal/tool"
	"github.com/fdadevices/openfda-agent/internal/transport"
)

// UDITool queries the unique device identifier (UDI / GUDID) dataset.
type UDITool struct {
	client *transport.Client
}

func NewUDITool(c *transport.Client) *UDITool {
	return &UDITool{client: c}
}

func (t *UDITool) Name() string { return "search_udi" }

func (t *UDITool) Description() string {
	return "Searches the openFDA UDI (GUDID) dataset by device name, company name, or UDI."
}

func (t *UDITool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "device_name", Type: "string", Description: "brand name"},
		tool.SchemaParam{Name: "firm_name", Type: "string", Description: "labeler/company name"},
		tool.SchemaParam{Name: "udi", Type: "string", Description: "exact UDI-DI"},
		tool.SchemaParam{Name: "limit", Type: "integer", Description: "max records, capped at 1000"},
	)
}

func (t *UDITool) Init(_ context.Context) error { return nil }
func (t *UDITool) Close() error                 { return nil }

func (t *UDITool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var p model.ExtractedParameters
	if err := json.Unmarshal(args, &p); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}

	clauses := []clause{
		{"brand_name", p.DeviceName},
		{"company_name", p.FirmName},
		{"identifiers.id", p.UDI},
	}
	result, err := runQuery(ctx, t.client, "udi", buildSearch(clauses...), p.Limit, p.Skip)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	out, _ := json.Marshal(result)
	return tool.ToolResult{Output: string(out)}, nil
}
