package openfda

import (
	"context"
	"encoding/json"

	"github.com/fdadevices/openfda-agent/internal/model"
	"github.com/fdadevices/openfda-agent/internal/tool"
	"github.com/fdadevices/openfda-agent/internal/transport"
)

// RegistrationsTool queries the establishment registration & device listing
// dataset.
type RegistrationsTool struct {
	client *transport.Client
}

func NewRegistrationsTool(c *transport.Client) *RegistrationsTool {
	return &RegistrationsTool{client: c}
}

func (t *RegistrationsTool) Name() string { return "search_registrations" }

func (t *RegistrationsTool) Description() string {
	return "Searches the openFDA registration & listing dataset by firm, device, product code, country, state, or FEI number."
}

func (t *RegistrationsTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "firm_name", Type: "string", Description: "registered establishment name"},
		tool.SchemaParam{Name: "device_name", Type: "string", Description: "proprietary device name"},
		tool.SchemaParam{Name: "product_code", Type: "string", Description: "3-letter FDA product code"},
		tool.SchemaParam{Name: "country", Type: "string", Description: "ISO 2-letter country code, e.g. \"CN\" (preferred; a full country name is also accepted)"},
		tool.SchemaParam{Name: "state", Type: "string", Description: "US state name or 2-letter code"},
		tool.SchemaParam{Name: "fei_number", Type: "string", Description: "FDA establishment identifier"},
		tool.SchemaParam{Name: "limit", Type: "integer", Description: "max records, capped at 1000"},
	)
}

func (t *RegistrationsTool) Init(_ context.Context) error { return nil }
func (t *RegistrationsTool) Close() error                 { return nil }

func (t *RegistrationsTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var p model.ExtractedParameters
	if err := json.Unmarshal(args, &p); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}

	clauses := []clause{
		{"registration.name", p.FirmName},
		{"proprietary_name", p.DeviceName},
		{"products.product_code", p.ProductCode},
		{"iso_country_code", p.Country},
		{"registration.state_code", p.State},
		{"registration.fei_number", p.FEINumber},
	}
	result, err := runQuery(ctx, t.client, "registrationlisting", buildSearch(clauses...), p.Limit, p.Skip)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	out, _ := json.Marshal(result)
	return tool.ToolResult{Output: string(out)}, nil
}
