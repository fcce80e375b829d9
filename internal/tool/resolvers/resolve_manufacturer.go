package resolvers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fdadevices/openfda-agent/internal/model"
	"github.com/fdadevices/openfda-agent/internal/resolver"
	"github.com/fdadevices/openfda-agent/internal/tool"
)

// ResolveManufacturerTool wraps resolver.ManufacturerResolver as a callable tool.
type ResolveManufacturerTool struct {
	resolver *resolver.ManufacturerResolver
}

func NewResolveManufacturerTool(r *resolver.ManufacturerResolver) *ResolveManufacturerTool {
	return &ResolveManufacturerTool{resolver: r}
}

func (t *ResolveManufacturerTool) Name() string { return "resolve_manufacturer" }

func (t *ResolveManufacturerTool) Description() string {
	return "Groups openFDA registration-listing hits for a fuzzy firm name into canonical-name clusters with their FDA surface-form variants."
}

func (t *ResolveManufacturerTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "query", Type: "string", Description: "fuzzy or partial firm name to resolve", Required: true},
	)
}

func (t *ResolveManufacturerTool) Init(_ context.Context) error { return nil }
func (t *ResolveManufacturerTool) Close() error                 { return nil }

type resolveManufacturerArgs struct {
	Query string `json:"query"`
}

func (t *ResolveManufacturerTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a resolveManufacturerArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}

	infos, err := t.resolver.Resolve(ctx, a.Query)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}

	out, err := json.Marshal(model.ResolverContext{Manufacturers: infos})
	if err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("resolve_manufacturer: marshal result: %v", err)}, nil
	}
	return tool.ToolResult{Output: string(out)}, nil
}
