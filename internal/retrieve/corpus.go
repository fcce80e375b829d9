package retrieve

import (
	"fmt"
	"strings"

	"github.com/fdadevices/openfda-agent/internal/model"
)

// endpointChunk is the fixed input to buildChunk: a curated how-to plus its
// canonical field list, written once per endpoint (spec §4.6).
type endpointChunk struct {
	endpoint string
	fields   []string
	howTo    string
	overview string
}

var endpointChunks = []endpointChunk{
	{
		endpoint: "classification",
		fields:   []string{"product_code", "regulation_number", "device_class", "device_name"},
		howTo: `Use search_classifications to look up a device's regulatory classification: its
product code, governing CFR regulation, and device class (1, 2, or 3).

Example: "what class is product code FXX" -> product_code="FXX"
Example: "devices under regulation 870.1234" -> regulation_number="870.1234"
Example: "list class II cardiovascular devices" -> device_class=2, device_name="cardiovascular"`,
		overview: `The classification dataset assigns every generic device type a product code,
a CFR regulation number, and a class (I, II, or III) describing the level of
regulatory control required before marketing.`,
	},
	{
		endpoint: "510k",
		fields:   []string{"k_number", "applicant", "device_name", "product_code", "date_start", "date_end"},
		howTo: `Use search_510k to look up 510(k) premarket notification clearances.

Example: "show me K123456" -> k_number="K123456"
Example: "Medtronic clearances in 2022" -> applicant="Medtronic", date_start="20220101", date_end="20221231"
Example: "clearances for product code FXX" -> product_code="FXX"`,
		overview: `The 510(k) dataset records devices cleared for market via the substantial
equivalence pathway, keyed by a unique K-number and a decision date.`,
	},
	{
		endpoint: "pma",
		fields:   []string{"pma_number", "applicant", "device_name", "product_code", "date_start", "date_end"},
		howTo: `Use search_pma to look up Premarket Approval (PMA) submissions, the pathway
for Class III devices. Note device_name maps to the dataset's trade_name field.

Example: "show me P123456" -> pma_number="P123456"
Example: "PMA approvals for the Impella device" -> device_name="Impella"
Example: "PMA approvals by Boston Scientific since 2020" -> applicant="Boston Scientific", date_start="20200101"`,
		overview: `The PMA dataset records the most stringent device marketing approval
pathway, required for Class III devices not eligible for 510(k) clearance.`,
	},
	{
		endpoint: "enforcement",
		fields:   []string{"recalling_firm", "product_description", "classification", "country", "date_start", "date_end"},
		howTo: `Use search_recalls to look up device recalls/enforcement actions. This
endpoint has no product_code field; search by firm or recall class instead.

Example: "class I recalls in 2023" -> recall_class="Class I", date_start="20230101", date_end="20231231"
Example: "recalls by Acme Medical" -> firm_name="Acme Medical"
Example: "recalls from China" -> country="China"`,
		overview: `The enforcement dataset tracks device recalls by severity class (I most
serious, III least), recalling firm, and country of the recalling
establishment, identified by its full English name rather than an ISO code.`,
	},
	{
		endpoint: "event",
		fields:   []string{"device.generic_name", "manufacturer_name", "device.device_report_product_code", "device.manufacturer_d_country", "event_type", "date_start", "date_end"},
		howTo: `Use search_events to look up adverse event (MAUDE) reports. At least one of
device_name, product_code, country, or firm_name is required. country is an
ISO 2-letter code here, as on registrationlisting; the other endpoints take a
full country name.

Example: "malfunction reports for product code FXX" -> product_code="FXX", event_type="Malfunction"
Example: "death events from China" -> country="CN", event_type="Death"
Example: "injury reports for insulin pumps" -> device_name="insulin pump", event_type="Injury"`,
		overview: `The adverse event dataset (MAUDE) records device-related malfunction,
injury, and death reports submitted by manufacturers, user facilities, and
importers.`,
	},
	{
		endpoint: "udi",
		fields:   []string{"brand_name", "company_name", "identifiers.id"},
		howTo: `Use search_udi to look up Unique Device Identifier (UDI) records in the
GUDID database.

Example: "look up UDI 00380740000012" -> udi="00380740000012"
Example: "UDI records for brand Freestyle Libre" -> device_name="Freestyle Libre"
Example: "UDI records from Abbott" -> firm_name="Abbott"`,
		overview: `The GUDID UDI dataset is the canonical device identity registry: every
legally marketed device's UDI, brand name, and labeler.`,
	},
	{
		endpoint: "registrationlisting",
		fields:   []string{"registration.name", "proprietary_name", "products.product_code", "iso_country_code", "country_name", "registration.state_code", "registration.fei_number"},
		howTo: `Use search_registrations to look up establishment registrations and the
device listings tied to them. Both an ISO country code and a full English
country name are available here; prefer the code. state accepts either a US
state name or its 2-letter code.

Example: "registered establishments in California" -> state="California"
Example: "who registers product code FXX" -> product_code="FXX"
Example: "registrations from China" -> country="CN"`,
		overview: `The registration & listing dataset is the roster of establishments legally
required to register with FDA and the device products each one lists.`,
	},
}

// BuildCorpus assembles the fixed documentation corpus: one how-to chunk and
// one field-reference/overview chunk per endpoint, plus a single general
// chunk that is always in-pool regardless of endpoint hints.
func BuildCorpus() []model.CorpusChunk {
	var chunks []model.CorpusChunk
	for _, ec := range endpointChunks {
		chunks = append(chunks,
			newChunk(ec.endpoint+":howto", ec.endpoint, "howto", ec.fields, ec.howTo),
			newChunk(ec.endpoint+":overview", ec.endpoint, "overview", ec.fields, ec.overview),
		)
	}
	chunks = append(chunks, newChunk("general:query-syntax", "general", "query-syntax", nil,
		`Filter expressions join field:value clauses with AND. Quote values containing
whitespace. Date ranges use [YYYYMMDD TO YYYYMMDD] against the endpoint's
primary date field. Every endpoint truncates limit to 1000 records per call;
use skip to page further, or ask for a count aggregation instead of raw records.`))
	return chunks
}

func newChunk(id, endpoint, kind string, fields []string, body string) model.CorpusChunk {
	header := fmt.Sprintf("[ENDPOINT]: %s\n[FIELDS]: %s\n", endpoint, strings.Join(fields, ", "))
	return model.CorpusChunk{
		ID:       id,
		Text:     header + strings.TrimSpace(body),
		Endpoint: endpoint,
		Kind:     kind,
		Fields:   fields,
	}
}
