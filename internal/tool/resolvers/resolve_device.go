// Package resolvers adapts the Device, Manufacturer, and Location
// Resolvers into tool.Tool implementations so
// the agent controller's PLAN stage can select them through the same
// function-calling surface as the seven openFDA endpoint tools.
package resolvers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fdadevices/openfda-agent/internal/catalog"
	"github.com/fdadevices/openfda-agent/internal/model"
	"github.com/fdadevices/openfda-agent/internal/tool"
)

// ResolveDeviceTool wraps catalog.DeviceResolver as a callable tool.
type ResolveDeviceTool struct {
	resolver *catalog.DeviceResolver
}

func NewResolveDeviceTool(resolver *catalog.DeviceResolver) *ResolveDeviceTool {
	return &ResolveDeviceTool{resolver: resolver}
}

func (t *ResolveDeviceTool) Name() string { return "resolve_device" }

func (t *ResolveDeviceTool) Description() string {
	return "Resolves a free-text device term (e.g. \"pacemaker\") against the local GUDID-derived catalog, returning matched product codes and top manufacturers."
}

func (t *ResolveDeviceTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "query", Type: "string", Description: "free-text device term to resolve", Required: true},
	)
}

func (t *ResolveDeviceTool) Init(_ context.Context) error { return nil }
func (t *ResolveDeviceTool) Close() error                 { return nil }

type resolveDeviceArgs struct {
	Query string `json:"query"`
}

func (t *ResolveDeviceTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a resolveDeviceArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}

	entities, err := t.resolver.Resolve(ctx, a.Query)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}

	out, err := json.Marshal(model.ResolverContext{Devices: entities})
	if err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("resolve_device: marshal result: %v", err)}, nil
	}
	return tool.ToolResult{Output: string(out)}, nil
}
