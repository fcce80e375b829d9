// Package resolver implements the Manufacturer and Location Resolvers of
// spec §4.4, both populating ResolverContext fields the agent controller's
// PLAN/DISPATCH stages read back.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fdadevices/openfda-agent/internal/catalog"
	"github.com/fdadevices/openfda-agent/internal/model"
	"github.com/fdadevices/openfda-agent/internal/tool"
)

var foldCaser = cases.Fold()

// ManufacturerResolver groups registration-listing hits for a fuzzy firm
// term into canonical-name clusters (spec §4.4). An exact hit in the local
// firm catalog short-circuits the registration-listing round trip entirely,
// the same way DeviceResolver's exact-brand stage avoids an openFDA call.
type ManufacturerResolver struct {
	registrations tool.Tool
	firms         *catalog.FirmResolver
}

func NewManufacturerResolver(registrations tool.Tool, firms *catalog.FirmResolver) *ManufacturerResolver {
	return &ManufacturerResolver{registrations: registrations, firms: firms}
}

// Resolve first checks the local firm catalog for an exact match; failing
// that, it queries the registration-listing endpoint for term and groups
// the returned records by firm name into canonical clusters, where the most
// frequent surface form of each cluster becomes the canonical name and the
// rest are recorded as variants.
func (r *ManufacturerResolver) Resolve(ctx context.Context, term string) ([]model.ManufacturerInfo, error) {
	if r.firms != nil {
		if rec, err := r.firms.Lookup(ctx, term); err != nil {
			return nil, fmt.Errorf("resolver: catalog firm lookup: %w", err)
		} else if rec != nil {
			return []model.ManufacturerInfo{{
				CanonicalName: rec.FirmName,
				FDAVariants:   []string{rec.FirmName},
			}}, nil
		}
	}

	args, err := json.Marshal(model.ExtractedParameters{FirmName: term, Limit: 1000})
	if err != nil {
		return nil, fmt.Errorf("resolver: marshal manufacturer query: %w", err)
	}
	result, err := r.registrations.Execute(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("resolver: query registrations: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("resolver: registrations tool: %s", result.Error)
	}

	var tr model.ToolResult
	if err := json.Unmarshal([]byte(result.Output), &tr); err != nil {
		return nil, fmt.Errorf("resolver: decode registrations result: %w", err)
	}

	clusters := map[string]map[string]int{} // fold key -> surface form -> count
	for _, rec := range tr.Results {
		name, _ := rec["registration.name"].(string)
		if name == "" {
			continue
		}
		key := foldCaser.String(strings.TrimSpace(name))
		if clusters[key] == nil {
			clusters[key] = map[string]int{}
		}
		clusters[key][name]++
	}

	infos := make([]model.ManufacturerInfo, 0, len(clusters))
	for _, variants := range clusters {
		canonical, total := "", 0
		var surfaceForms []string
		for name, count := range variants {
			surfaceForms = append(surfaceForms, name)
			total += count
			if count > variants[canonical] {
				canonical = name
			}
		}
		sort.Strings(surfaceForms)
		infos = append(infos, model.ManufacturerInfo{
			CanonicalName: canonical,
			FDAVariants:   surfaceForms,
			DeviceCount:   total,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].DeviceCount > infos[j].DeviceCount })
	return infos, nil
}
