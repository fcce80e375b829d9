package openfda

import (
	"context"

	"github.com/fdadevices/openfda-agent/internal/model"
	"github.com/fdadevices/openfda-agent/internal/transport"
)

// ProbeCount issues an aggregation query (openFDA's count= parameter) and
// returns term/count pairs for field, optionally narrowed by a filter
// expression. Used by the planner's count/distribution strategy, by the
// location resolver's per-country manufacturer tally, and by the device
// resolver's related-device fallback.
//
// Aggregation queries never page and are never retried on an empty result —
// an empty count response means zero matches, not a transient failure, so
// the transport's ordinary retry ladder (429/5xx) is the only retry that
// applies here.
func ProbeCount(ctx context.Context, c *transport.Client, resource, field, search string) (model.CountAggregate, error) {
	resp, err := c.Do(ctx, transport.Query{
		Resource: resource,
		Search:   search,
		Count:    field,
	})
	if err != nil {
		return model.CountAggregate{}, err
	}

	terms := make([]model.TermCount, 0, len(resp.Results))
	for _, r := range resp.Results {
		term, _ := r["term"].(string)
		count, _ := r["count"].(float64)
		terms = append(terms, model.TermCount{Term: term, Count: int(count)})
	}
	return model.CountAggregate{Terms: terms}, nil
}
