package openfda

import (
	"context"
	"encoding/json"

	"github.com/fdadevices/openfda-agent/internal/model"
	"github.com/fdadevices/openfda-agent/internal/tool"
	"github.com/fdadevices/openfda-agent/internal/transport"
)

// EventsTool queries the event (MAUDE adverse event) dataset.
type EventsTool struct {
	client *transport.Client
}

func NewEventsTool(c *transport.Client) *EventsTool {
	return &EventsTool{client: c}
}

func (t *EventsTool) Name() string { return "search_events" }

func (t *EventsTool) Description() string {
	return "Searches the openFDA MAUDE adverse event dataset by device name, firm, product code, country, or event type. At least one of device_name, product_code, country, or firm_name is required."
}

func (t *EventsTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "device_name", Type: "string", Description: "free-text device name"},
		tool.SchemaParam{Name: "firm_name", Type: "string", Description: "manufacturer name"},
		tool.SchemaParam{Name: "product_code", Type: "string", Description: "3-letter FDA product code"},
		tool.SchemaParam{Name: "country", Type: "string", Description: "ISO country code, e.g. \"CN\""},
		tool.SchemaParam{Name: "event_type", Type: "string", Description: "malfunction, injury, death, etc."},
		tool.SchemaParam{Name: "date_start", Type: "string", Description: "date received range start, YYYYMMDD"},
		tool.SchemaParam{Name: "date_end", Type: "string", Description: "date received range end, YYYYMMDD"},
		tool.SchemaParam{Name: "limit", Type: "integer", Description: "max records, capped at 1000"},
	)
}

func (t *EventsTool) Init(_ context.Context) error { return nil }
func (t *EventsTool) Close() error                 { return nil }

func (t *EventsTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var p model.ExtractedParameters
	if err := json.Unmarshal(args, &p); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	if p.DeviceName == "" && p.ProductCode == "" && p.Country == "" && p.FirmName == "" {
		return tool.ToolResult{Error: "search_events requires at least one of device_name, product_code, country, or firm_name"}, nil
	}

	clauses := []clause{
		{"device.generic_name", p.DeviceName},
		{"manufacturer_name", p.FirmName},
		{"device.device_report_product_code", p.ProductCode},
		{"device.manufacturer_d_country", p.Country},
		{"event_type", p.EventType},
	}
	search := buildSearch(clauses...)
	if dr := dateRangeClause("date_received", p.DateStart, p.DateEnd); dr != "" {
		if search != "" {
			search += " AND " + dr
		} else {
			search = dr
		}
	}

	result, err := runQuery(ctx, t.client, "event", search, p.Limit, p.Skip)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	out, _ := json.Marshal(result)
	return tool.ToolResult{Output: string(out)}, nil
}
