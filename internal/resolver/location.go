package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fdadevices/openfda-agent/internal/config"
	"github.com/fdadevices/openfda-agent/internal/model"
	"github.com/fdadevices/openfda-agent/internal/tool/openfda"
	"github.com/fdadevices/openfda-agent/internal/transport"
)

const topLocationEntries = 5

// LocationResolver classifies a free-text location term as a country, a
// multi-country region, or a US state, then dispatches two probe_count calls
// per matched country, one tallying manufacturers and one tallying device
// types (spec §4.4).
type LocationResolver struct {
	client  *transport.Client
	regions *config.RegionTable
	states  *config.StateTable
}

func NewLocationResolver(c *transport.Client, regions *config.RegionTable, states *config.StateTable) *LocationResolver {
	return &LocationResolver{client: c, regions: regions, states: states}
}

// Resolve classifies term and probes every matched country, optionally
// narrowed by deviceType (e.g. a product category term).
func (r *LocationResolver) Resolve(ctx context.Context, term, deviceType string) (*model.LocationContext, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("resolver: empty location term")
	}

	if countries, ok := r.regions.Lookup(term); ok {
		return r.probeCountries(ctx, term, countries, deviceType)
	}
	if state, ok := r.states.Lookup(term); ok {
		return r.probeState(ctx, state, deviceType)
	}
	return r.probeCountries(ctx, term, []config.Country{{Code: strings.ToUpper(term), Name: term}}, deviceType)
}

func (r *LocationResolver) probeCountries(ctx context.Context, region string, countries []config.Country, deviceType string) (*model.LocationContext, error) {
	lc := &model.LocationContext{NormalizedRegion: region}
	companyTally := map[string]int{}
	deviceTally := map[string]int{}

	for _, country := range countries {
		search := buildLocationSearch(country.Code, deviceType)

		companies, err := openfda.ProbeCount(ctx, r.client, "registrationlisting", "registration.name", search)
		if err != nil {
			return nil, fmt.Errorf("resolver: probe companies for %s: %w", country.Name, err)
		}
		total := 0
		for _, t := range companies.Terms {
			total += t.Count
			companyTally[t.Term] += t.Count
		}
		lc.Countries = append(lc.Countries, model.CountryCount{Code: country.Code, Name: country.Name, Count: total})

		devices, err := openfda.ProbeCount(ctx, r.client, "registrationlisting", "products.product_code", search)
		if err != nil {
			return nil, fmt.Errorf("resolver: probe device types for %s: %w", country.Name, err)
		}
		for _, t := range devices.Terms {
			deviceTally[t.Term] += t.Count
		}
	}

	sort.Slice(lc.Countries, func(i, j int) bool { return lc.Countries[i].Count > lc.Countries[j].Count })
	lc.TopCompanies = topTerms(companyTally)
	lc.TopDeviceTypes = topTerms(deviceTally)
	return lc, nil
}

func (r *LocationResolver) probeState(ctx context.Context, state config.Country, deviceType string) (*model.LocationContext, error) {
	search := buildLocationSearch("", deviceType)
	stateClause := `registration.state_code:` + state.Code
	if search != "" {
		search = stateClause + " AND " + search
	} else {
		search = stateClause
	}

	companies, err := openfda.ProbeCount(ctx, r.client, "registrationlisting", "registration.name", search)
	if err != nil {
		return nil, fmt.Errorf("resolver: probe companies for state %s: %w", state.Name, err)
	}
	total := 0
	companyTally := map[string]int{}
	for _, t := range companies.Terms {
		total += t.Count
		companyTally[t.Term] += t.Count
	}

	devices, err := openfda.ProbeCount(ctx, r.client, "registrationlisting", "products.product_code", search)
	if err != nil {
		return nil, fmt.Errorf("resolver: probe device types for state %s: %w", state.Name, err)
	}
	deviceTally := map[string]int{}
	for _, t := range devices.Terms {
		deviceTally[t.Term] += t.Count
	}

	return &model.LocationContext{
		NormalizedRegion: state.Name,
		Countries:        []model.CountryCount{{Code: "US", Name: "United States", Count: total}},
		TopCompanies:     topTerms(companyTally),
		TopDeviceTypes:   topTerms(deviceTally),
	}, nil
}

func buildLocationSearch(countryCode, deviceType string) string {
	var parts []string
	if countryCode != "" {
		parts = append(parts, quoteClause("iso_country_code", countryCode))
	}
	if deviceType != "" {
		parts = append(parts, quoteClause("proprietary_name", deviceType))
	}
	return strings.Join(parts, " AND ")
}

func quoteClause(field, value string) string {
	if strings.ContainsAny(value, " \t") {
		return fmt.Sprintf("%s:%q", field, value)
	}
	return field + ":" + value
}

func topTerms(tally map[string]int) []string {
	type kv struct {
		name  string
		count int
	}
	kvs := make([]kv, 0, len(tally))
	for name, count := range tally {
		kvs = append(kvs, kv{name, count})
	}
	sort.Slice(kvs, func(i, j int) bool {
		if kvs[i].count != kvs[j].count {
			return kvs[i].count > kvs[j].count
		}
		return kvs[i].name < kvs[j].name
	})
	if len(kvs) > topLocationEntries {
		kvs = kvs[:topLocationEntries]
	}
	out := make([]string, len(kvs))
	for i, e := range kvs {
		out[i] = e.name
	}
	return out
}
