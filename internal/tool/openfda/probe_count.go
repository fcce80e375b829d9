package openfda

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fdadevices/openfda-agent/internal/model"
	"github.com/fdadevices/openfda-agent/internal/tool"
	"github.com/fdadevices/openfda-agent/internal/transport"
)

// ProbeCountTool exposes ProbeCount as a callable tool for the agent
// controller's "count" strategy (spec §4.8, end-to-end scenario E6).
type ProbeCountTool struct {
	client *transport.Client
}

func NewProbeCountTool(c *transport.Client) *ProbeCountTool {
	return &ProbeCountTool{client: c}
}

func (t *ProbeCountTool) Name() string { return "probe_count" }

func (t *ProbeCountTool) Description() string {
	return "Issues an aggregation query (openFDA count=) over one of the seven device datasets, returning term/count pairs for a field, optionally narrowed by a filter expression."
}

func (t *ProbeCountTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "resource", Type: "string", Description: "dataset name", Required: true,
			Enum: []string{"classification", "510k", "pma", "enforcement", "event", "udi", "registrationlisting"}},
		tool.SchemaParam{Name: "field", Type: "string", Description: "field to aggregate, e.g. device_class", Required: true},
		tool.SchemaParam{Name: "search", Type: "string", Description: "optional filter expression narrowing the aggregation"},
	)
}

func (t *ProbeCountTool) Init(_ context.Context) error { return nil }
func (t *ProbeCountTool) Close() error                 { return nil }

type probeCountArgs struct {
	Resource string `json:"resource"`
	Field    string `json:"field"`
	Search   string `json:"search"`
}

func (t *ProbeCountTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a probeCountArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}

	agg, err := ProbeCount(ctx, t.client, a.Resource, a.Field, a.Search)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}

	result := model.ToolResult{
		Endpoint:        a.Resource,
		QueryExpression: a.Search,
		Structured:      agg,
	}
	out, err := json.Marshal(result)
	if err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("probe_count: marshal result: %v", err)}, nil
	}
	return tool.ToolResult{Output: string(out)}, nil
}
