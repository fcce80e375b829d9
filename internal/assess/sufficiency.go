// Package assess implements the Answer Assessor of spec §4.7: a
// deterministic sufficiency check followed by an LLM guardrail pass.
package assess

import (
	"regexp"
	"strings"

	"github.com/fdadevices/openfda-agent/internal/model"
)

var (
	classTokenRe    = regexp.MustCompile(`(?i)\bclass\s*(i{1,3}|[123])\b`)
	dateTokenRe     = regexp.MustCompile(`(?i)\b(19|20)\d{2}\b`)
	temporalWordsRe = regexp.MustCompile(`(?i)\b(since|before|after|between|during|recent(ly)?|last\s+(year|month|week)|this\s+(year|month)|today|yesterday)\b`)
)

// Sufficiency is Layer 1's verdict.
type Sufficiency struct {
	Sufficient bool   `json:"sufficient"`
	Reason     string `json:"reason"`
}

// CheckSufficiency runs the deterministic rules of spec §4.7 Layer 1 against
// the user's question, the parameters actually extracted, and the record
// count the dispatched tool call(s) returned.
func CheckSufficiency(question string, params model.ExtractedParameters, resultCount int) Sufficiency {
	if classTokenRe.MatchString(question) && params.DeviceClass == nil && params.RecallClass == "" {
		return Sufficiency{Sufficient: false, Reason: "missing class filter"}
	}
	if hasTemporalToken(question) && params.DateStart == "" && params.DateEnd == "" {
		return Sufficiency{Sufficient: false, Reason: "missing date filter"}
	}

	// Class and date gaps are already handled above (unconditionally
	// insufficient); the only additional zero-result gap is an implied
	// product code that never got extracted.
	if resultCount == 0 {
		if strings.Contains(strings.ToLower(question), "product code") && params.ProductCode == "" {
			return Sufficiency{Sufficient: false, Reason: "result set is empty and the implied product code filter is missing"}
		}
		return Sufficiency{Sufficient: true, Reason: "no matching records"}
	}

	return Sufficiency{Sufficient: true, Reason: "filters and result set are consistent with the question"}
}

func hasTemporalToken(question string) bool {
	return dateTokenRe.MatchString(question) || temporalWordsRe.MatchString(question)
}
