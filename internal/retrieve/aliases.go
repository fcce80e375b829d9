package retrieve

import "strings"

type endpointAlias struct {
	phrase   string
	endpoint string
}

// endpointAliases maps a lowercase phrase to the endpoint it implies.
// Matching is substring-based and case-insensitive; a query may fire zero,
// one, or many aliases (spec §4.6 step 1). Order is fixed so hint extraction
// is deterministic for a given query.
var endpointAliases = []endpointAlias{
	{"510(k)", "510k"},
	{"510k", "510k"},
	{"k-number", "510k"},
	{"knumber", "510k"},
	{"clearance", "510k"},
	{"premarket approval", "pma"},
	{"pma", "pma"},
	{"class i recall", "enforcement"},
	{"class ii recall", "enforcement"},
	{"class iii recall", "enforcement"},
	{"recall", "enforcement"},
	{"enforcement", "enforcement"},
	{"adverse event", "event"},
	{"maude", "event"},
	{"malfunction", "event"},
	{"injury report", "event"},
	{"death report", "event"},
	{"unique device identifier", "udi"},
	{"gudid", "udi"},
	{"udi", "udi"},
	{"registrationlisting", "registrationlisting"},
	{"registration", "registrationlisting"},
	{"establishment", "registrationlisting"},
	{"regulation number", "classification"},
	{"product code", "classification"},
	{"classification", "classification"},
}

// ExtractEndpointHints returns the distinct endpoints implied by query's
// aliases, in the fixed priority order of endpointAliases.
func ExtractEndpointHints(query string) []string {
	lower := strings.ToLower(query)
	seen := map[string]bool{}
	var hints []string
	for _, a := range endpointAliases {
		if strings.Contains(lower, a.phrase) && !seen[a.endpoint] {
			seen[a.endpoint] = true
			hints = append(hints, a.endpoint)
		}
	}
	return hints
}
