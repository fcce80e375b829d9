package openfda

import (
	"context"

	"github.com/fdadevices/openfda-agent/internal/model"
	"github.com/fdadevices/openfda-agent/internal/transport"
)

// DefaultPaginateCap is the hard stop applied when a caller does not specify
// one — matching the endpoint's own per-page ceiling, so an unqualified
// paginate call fetches at most one page's worth before stopping.
const DefaultPaginateCap = 1000

// Paginate loops skip += limit over resource until either a page comes back
// empty or the number of records fetched reaches cap. cap is a hard stop: it
// is never exceeded even if more results remain (spec §4.2).
func Paginate(ctx context.Context, c *transport.Client, resource, search string, limit, cap int) ([]model.RawRecord, error) {
	if cap <= 0 {
		cap = DefaultPaginateCap
	}
	limit = clampLimit(limit)

	var all []model.RawRecord
	for skip := 0; ; skip += limit {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		resp, err := c.Do(ctx, transport.Query{Resource: resource, Search: search, Limit: limit, Skip: skip})
		if err != nil {
			return all, err
		}
		if len(resp.Results) == 0 {
			return all, nil
		}
		for _, r := range resp.Results {
			all = append(all, model.RawRecord(r))
			if len(all) >= cap {
				return all, nil
			}
		}
	}
}
