package extract

import (
	"strings"
	"time"

	"github.com/fdadevices/openfda-agent/internal/config"
	"github.com/fdadevices/openfda-agent/internal/model"
)

// classEndpoints is the set of endpoints whose class field is the numeric
// device_class (spec §4.2); every other endpoint that cares about class
// (enforcement) uses the Roman-numeral recall_class instead.
var classEndpoints = map[string]bool{
	"classification": true,
	"510k":           true,
	"pma":            true,
	"udi":            true,
}

// isoCountryEndpoints is the set of endpoints whose country filter is
// conventionally an ISO code rather than a full English name (spec §6):
// event (MAUDE) only has the ISO code, and registrationlisting carries both
// but prefers it.
var isoCountryEndpoints = map[string]bool{
	"event":               true,
	"registrationlisting": true,
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
}

func (e *Extractor) normalize(p *model.ExtractedParameters, question, targetEndpoint string) {
	normalizeClassMention(p, question, targetEndpoint)
	p.DateStart = normalizeDate(p.DateStart)
	p.DateEnd = normalizeDate(p.DateEnd)
	e.normalizeCountry(p, targetEndpoint)
}

// normalizeClassMention resolves a bare "class II"/"class 2" style mention
// into either the numeric device_class or the textual recall_class,
// depending on which family of endpoint the question targets. A question
// already headed for the enforcement dataset, or one that says "recall"
// outright, is treated as the recall sense.
func normalizeClassMention(p *model.ExtractedParameters, question, targetEndpoint string) {
	m := classMentionRe.FindStringSubmatch(question)
	if m == nil {
		return
	}
	token := strings.ToUpper(m[1])

	recallContext := targetEndpoint == "enforcement" || strings.Contains(strings.ToLower(question), "recall")
	if recallContext {
		if rc := classToRecallClass(token); rc != "" {
			p.RecallClass = rc
			p.SetConfidence("recall_class", 0.9)
		}
		return
	}
	if targetEndpoint == "" || classEndpoints[targetEndpoint] {
		if n := classToNumber(token); n > 0 {
			p.DeviceClass = &n
			p.SetConfidence("device_class", 0.9)
		}
	}
}

func classToNumber(token string) int {
	switch token {
	case "I", "1":
		return 1
	case "II", "2":
		return 2
	case "III", "3":
		return 3
	default:
		return 0
	}
}

func classToRecallClass(token string) string {
	switch token {
	case "I", "1":
		return "Class I"
	case "II", "2":
		return "Class II"
	case "III", "3":
		return "Class III"
	default:
		return ""
	}
}

// normalizeDate converts raw into openFDA's YYYYMMDD form, trying a small
// set of common written formats. A date that matches none of them is passed
// through unchanged; the tool layer surfaces a client_request_error if
// openFDA rejects it outright rather than silently dropping the filter.
func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || yyyymmddRe.MatchString(raw) {
		return raw
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("20060102")
		}
	}
	return raw
}

// normalizeCountry converts p.Country between a full English name and an
// ISO-2 code depending on targetEndpoint's convention, using the region
// table's country membership lists as the lookup source.
func (e *Extractor) normalizeCountry(p *model.ExtractedParameters, targetEndpoint string) {
	if p.Country == "" || e.regions == nil {
		return
	}
	byName, byCode := countryIndex(e.regions)
	wantISO := isoCountryEndpoints[targetEndpoint]

	term := strings.TrimSpace(p.Country)
	if c, ok := byCode[strings.ToUpper(term)]; ok {
		if wantISO {
			p.Country = c.Code
		} else {
			p.Country = c.Name
		}
		return
	}
	if c, ok := byName[strings.ToLower(term)]; ok {
		if wantISO {
			p.Country = c.Code
		} else {
			p.Country = c.Name
		}
	}
	// Unknown country term: leave as typed. The region table only carries
	// the countries referenced by the configured regions, not a full
	// ISO-3166 list.
}

// fieldAliases maps an ExtractedParameters field name to the openFDA field
// name(s) that express it, so a canonical field list keyed by API field name
// (spec §4.6's corpus, e.g. "iso_country_code") can still be
// checked against a param-keyed low-confidence field (e.g. "country").
var fieldAliases = map[string][]string{
	"firm_name":   {"registration.name", "manufacturer_name", "recalling_firm", "company_name"},
	"device_name": {"device_name", "proprietary_name", "brand_name", "device.generic_name", "product_description"},
	"country":     {"country", "device.manufacturer_d_country", "registration.address_country", "iso_country_code", "country_name"},
	"state":       {"state", "registration.state_code"},
}

// endpointSupportsField reports whether fields (an endpoint's canonical
// field list per spec §4.6) includes field, or one of its known aliases.
func endpointSupportsField(fields []string, field string) bool {
	candidates := append([]string{field}, fieldAliases[field]...)
	for _, f := range fields {
		for _, c := range candidates {
			if f == c {
				return true
			}
		}
	}
	return false
}

func countryIndex(regions *config.RegionTable) (byName, byCode map[string]config.Country) {
	byName = map[string]config.Country{}
	byCode = map[string]config.Country{}
	for _, name := range regions.Names() {
		countries, _ := regions.Lookup(name)
		for _, c := range countries {
			byName[strings.ToLower(c.Name)] = c
			byCode[strings.ToUpper(c.Code)] = c
		}
	}
	return byName, byCode
}
