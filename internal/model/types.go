// Package model defines the cross-boundary data shapes shared by the
// resolver, extractor, retriever, tool, and agent packages: every payload
// that crosses a package boundary is a fixed, validated schema rather than
// a bag of strings.
package model

import "time"

// Message is one entry in a session's authoritative turn history.
type Message struct {
	Role        string     `json:"role"` // user, assistant, tool, system
	Content     string     `json:"content"`
	Timestamp   time.Time  `json:"timestamp"`
	ToolCalls   []ToolCall `json:"tool_calls,omitempty"`
	ToolCallOf  string     `json:"tool_result_of,omitempty"` // tool_call id this message answers
}

// ExtractedParameters is the one schema shared by all endpoint tools. Every
// field is optional; each carries its own confidence score.
type ExtractedParameters struct {
	DeviceClass   *int    `json:"device_class,omitempty"` // 1, 2, or 3
	RecallClass   string  `json:"recall_class,omitempty"` // "Class I" | "Class II" | "Class III"
	ProductCode   string  `json:"product_code,omitempty"` // 3 uppercase letters
	KNumber       string  `json:"k_number,omitempty"`      // K + 6 digits
	PMANumber     string  `json:"pma_number,omitempty"`    // P + 6 digits
	FirmName      string  `json:"firm_name,omitempty"`
	Applicant     string  `json:"applicant,omitempty"`
	DeviceName    string  `json:"device_name,omitempty"`
	Country       string  `json:"country,omitempty"` // normalized per target endpoint, see Endpoint conventions
	State         string  `json:"state,omitempty"`
	FEINumber     string  `json:"fei_number,omitempty"`
	DateStart     string  `json:"date_start,omitempty"` // YYYYMMDD
	DateEnd       string  `json:"date_end,omitempty"`   // YYYYMMDD
	Limit         int     `json:"limit,omitempty"`      // <= 1000
	Skip          int     `json:"skip,omitempty"`
	EventType     string  `json:"event_type,omitempty"`
	RegulationNum string  `json:"regulation_number,omitempty"`
	UDI           string  `json:"udi,omitempty"`

	// Confidence holds a [0,1] score per populated field, keyed by the
	// ExtractedParameters field name (e.g. "product_code", "device_class").
	Confidence map[string]float64 `json:"confidence,omitempty"`
}

// FieldConfidence returns the confidence recorded for field, or 1.0 if the
// map has no entry (fields set without going through the extractor, e.g. in
// tests, are assumed fully confident).
func (p ExtractedParameters) FieldConfidence(field string) float64 {
	if p.Confidence == nil {
		return 1.0
	}
	if v, ok := p.Confidence[field]; ok {
		return v
	}
	return 1.0
}

// SetConfidence records the confidence for field, creating the map lazily.
func (p *ExtractedParameters) SetConfidence(field string, score float64) {
	if p.Confidence == nil {
		p.Confidence = make(map[string]float64)
	}
	p.Confidence[field] = score
}

// ResolverContext is the shared, mutation-by-merge structure populated by
// resolver tools and read by the planner, dispatcher, and guardrail.
type ResolverContext struct {
	Devices       *ResolvedEntities  `json:"devices,omitempty"`
	Manufacturers []ManufacturerInfo `json:"manufacturers,omitempty"`
	Location      *LocationContext   `json:"location,omitempty"`
}

// Merge applies other on top of c, replacing fields other sets and leaving
// fields other leaves zero untouched (spec §4.9: "resolver-context fields
// are replaced field-wise ... absence leaves prior value intact").
func (c *ResolverContext) Merge(other ResolverContext) {
	if other.Devices != nil {
		c.Devices = other.Devices
	}
	if other.Manufacturers != nil {
		c.Manufacturers = other.Manufacturers
	}
	if other.Location != nil {
		c.Location = other.Location
	}
}

// Reset clears the named field ("devices", "manufacturers", "location"), or
// all fields when field == "" — used by an explicit clear command.
func (c *ResolverContext) Reset(field string) {
	switch field {
	case "devices":
		c.Devices = nil
	case "manufacturers":
		c.Manufacturers = nil
	case "location":
		c.Location = nil
	case "":
		*c = ResolverContext{}
	}
}

// ResolvedEntities is the Device Resolver's output.
type ResolvedEntities struct {
	Query            string             `json:"query"`
	ProductCodes     []string           `json:"product_codes"`
	TopManufacturers []ManufacturerHit  `json:"top_manufacturers"`
	MatchCount       int                `json:"match_count"`
	Confidence       float64            `json:"confidence"`
}

// ManufacturerHit is one manufacturer-by-count entry under a device resolution.
type ManufacturerHit struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ManufacturerInfo groups the surface forms of one manufacturer under a
// canonical name (the Manufacturer Resolver's output).
type ManufacturerInfo struct {
	CanonicalName string   `json:"canonical_name"`
	FDAVariants   []string `json:"fda_variants"`
	DeviceCount   int      `json:"device_count"`
}

// LocationContext is the Location Resolver's output.
type LocationContext struct {
	NormalizedRegion string          `json:"normalized_region"`
	Countries        []CountryCount  `json:"countries"`
	TopCompanies     []string        `json:"top_companies"`
	TopDeviceTypes   []string        `json:"top_device_types"`
}

// CountryCount is one country's manufacturer count under a location resolution.
type CountryCount struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ToolCall records one dispatched tool invocation end-to-end.
type ToolCall struct {
	ID          string               `json:"id"`
	ToolName    string               `json:"tool_name"`
	Args        ExtractedParameters  `json:"args"`
	StartedAt   time.Time            `json:"started_at"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
	Result      *ToolResult          `json:"result,omitempty"`
	Error       string               `json:"error,omitempty"`
}

// ToolResult is the normalized envelope every endpoint tool returns.
type ToolResult struct {
	Endpoint        string         `json:"endpoint"`
	QueryExpression string         `json:"query_expression"`
	Meta            ResultMeta     `json:"meta"`
	Results         []RawRecord    `json:"results"`
	Structured      any            `json:"structured,omitempty"`
}

// ResultMeta carries the openFDA response's pagination/freshness envelope.
type ResultMeta struct {
	Total       int    `json:"total"`
	Skip        int    `json:"skip"`
	Limit       int    `json:"limit"`
	LastUpdated string `json:"last_updated"`
}

// RawRecord is one untyped record out of an openFDA results array.
type RawRecord map[string]any

// CountAggregate is the structured payload of probe_count: term → count.
type CountAggregate struct {
	Terms []TermCount `json:"terms"`
}

// TermCount is one term/count pair from an aggregation query.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// CorpusChunk is one documentation unit indexed by the Hybrid Retriever.
type CorpusChunk struct {
	ID     string   `json:"id"`
	Text   string   `json:"text"`
	Endpoint string `json:"endpoint"` // one of the 7 endpoints, or "general"
	Kind   string   `json:"kind"`     // howto, fields, overview, query-syntax
	Fields []string `json:"fields"`
}

// Provenance is emitted with every assistant answer.
type Provenance struct {
	Endpoint        string     `json:"endpoint"`
	QueryExpression string     `json:"query_expression"`
	ResultCount     int        `json:"result_count"`
	LastUpdated     string     `json:"last_updated"`
	ToolCalls       []ToolCall `json:"tool_calls"`
	Retries         int        `json:"retries"`
}

// Usage is the per-turn and per-session token/cost accounting record.
type Usage struct {
	TokensIn  int     `json:"tokens_in"`
	TokensOut int     `json:"tokens_out"`
	CostUSD   float64 `json:"cost"`
}
