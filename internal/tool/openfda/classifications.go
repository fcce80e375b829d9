package openfda

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fdadevices/openfda-agent/internal/model"
	"github.com/fdadevices/openfda-agent/internal/tool"
	"github.com/fdadevices/openfda-agent/internal/transport"
)

// ClassificationsTool queries the device classification dataset.
type ClassificationsTool struct {
	client *transport.Client
}

func NewClassificationsTool(c *transport.Client) *ClassificationsTool {
	return &ClassificationsTool{client: c}
}

func (t *ClassificationsTool) Name() string { return "search_classifications" }

func (t *ClassificationsTool) Description() string {
	return "Searches the openFDA device classification dataset by product code, regulation number, device class, or device name."
}

func (t *ClassificationsTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "product_code", Type: "string", Description: "3-letter FDA product code"},
		tool.SchemaParam{Name: "regulation_number", Type: "string", Description: "CFR citation, ddd.dddd"},
		tool.SchemaParam{Name: "device_class", Type: "integer", Description: "1, 2, or 3"},
		tool.SchemaParam{Name: "device_name", Type: "string", Description: "free-text device name"},
		tool.SchemaParam{Name: "limit", Type: "integer", Description: "max records, capped at 1000"},
	)
}

func (t *ClassificationsTool) Init(_ context.Context) error { return nil }
func (t *ClassificationsTool) Close() error                 { return nil }

func (t *ClassificationsTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var p model.ExtractedParameters
	if err := json.Unmarshal(args, &p); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	detectClassificationIdentifier(&p)

	var clauses []clause
	switch {
	case p.ProductCode != "":
		clauses = append(clauses, clause{"product_code", p.ProductCode})
	case p.RegulationNum != "":
		clauses = append(clauses, clause{"regulation_number", p.RegulationNum})
	case p.DeviceName != "":
		clauses = append(clauses, clause{"device_name", p.DeviceName})
	}
	if p.DeviceClass != nil {
		clauses = append(clauses, clause{"device_class", fmt.Sprintf("%d", *p.DeviceClass)})
	}

	result, err := runQuery(ctx, t.client, "classification", buildSearch(clauses...), p.Limit, p.Skip)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	out, _ := json.Marshal(result)
	return tool.ToolResult{Output: string(out)}, nil
}

// detectClassificationIdentifier reroutes a bare identifier that landed in
// device_name to the field the classification endpoint actually indexes
// (spec §4.2's auto-detect policy for this tool).
func detectClassificationIdentifier(p *model.ExtractedParameters) {
	if p.ProductCode != "" || p.RegulationNum != "" || p.DeviceName == "" {
		return
	}
	switch {
	case productCodePattern.MatchString(p.DeviceName):
		p.ProductCode = p.DeviceName
		p.DeviceName = ""
	case regulationNumPattern.MatchString(p.DeviceName):
		p.RegulationNum = p.DeviceName
		p.DeviceName = ""
	}
}
