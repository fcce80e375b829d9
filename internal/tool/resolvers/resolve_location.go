package resolvers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fdadevices/openfda-agent/internal/model"
	"github.com/fdadevices/openfda-agent/internal/resolver"
	"github.com/fdadevices/openfda-agent/internal/tool"
)

// ResolveLocationTool wraps resolver.LocationResolver as a callable tool.
type ResolveLocationTool struct {
	resolver *resolver.LocationResolver
}

func NewResolveLocationTool(r *resolver.LocationResolver) *ResolveLocationTool {
	return &ResolveLocationTool{resolver: r}
}

func (t *ResolveLocationTool) Name() string { return "resolve_location" }

func (t *ResolveLocationTool) Description() string {
	return "Classifies a free-text location term as a country, a region, or a US state, and tallies manufacturers and device types per country."
}

func (t *ResolveLocationTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "query", Type: "string", Description: "country, region, or US state name to resolve", Required: true},
		tool.SchemaParam{Name: "device_type", Type: "string", Description: "optional device term to narrow the tally"},
	)
}

func (t *ResolveLocationTool) Init(_ context.Context) error { return nil }
func (t *ResolveLocationTool) Close() error                 { return nil }

type resolveLocationArgs struct {
	Query      string `json:"query"`
	DeviceType string `json:"device_type"`
}

func (t *ResolveLocationTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a resolveLocationArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}

	lc, err := t.resolver.Resolve(ctx, a.Query, a.DeviceType)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}

	out, err := json.Marshal(model.ResolverContext{Location: lc})
	if err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("resolve_location: marshal result: %v", err)}, nil
	}
	return tool.ToolResult{Output: string(out)}, nil
}
