package openfda

import (
	"context"

	"github.com/fdadevices/openfda-agent/internal/model"
	"github.com/fdadevices/openfda-agent/internal/transport"
)

// runQuery issues one listing query against resource and normalizes the
// transport response into the shared model.ToolResult envelope. A 404 is
// already translated by the transport into an empty, non-error Response
// (spec §4.2), so callers never special-case it here.
func runQuery(ctx context.Context, c *transport.Client, resource, search string, limit, skip int) (model.ToolResult, error) {
	resp, err := c.Do(ctx, transport.Query{
		Resource: resource,
		Search:   search,
		Limit:    clampLimit(limit),
		Skip:     skip,
	})
	if err != nil {
		return model.ToolResult{}, err
	}
	return toToolResult(resource, search, resp), nil
}

func toToolResult(resource, search string, resp *transport.Response) model.ToolResult {
	records := make([]model.RawRecord, len(resp.Results))
	for i, r := range resp.Results {
		records[i] = model.RawRecord(r)
	}
	return model.ToolResult{
		Endpoint:        resource,
		QueryExpression: search,
		Meta: model.ResultMeta{
			Total:       resp.Meta.Results.Total,
			Skip:        resp.Meta.Results.Skip,
			Limit:       resp.Meta.Results.Limit,
			LastUpdated: resp.Meta.LastUpdated,
		},
		Results: records,
	}
}
