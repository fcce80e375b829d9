package usage

import "strings"

// modelRate holds a model's published per-token price, expressed in USD per
// million tokens (the unit providers publish their rate cards in).
type modelRate struct {
	prefix       string
	inPerMillion  float64
	outPerMillion float64
}

// rateTable lists known model-name prefixes and their published USD/1M-token
// rates, checked in order (first prefix match wins, so more specific entries
// must precede their shorter prefixes) — the same lookup shape
// llm.GetContextWindow uses for context windows.
var rateTable = []modelRate{
	{"gpt-4o-mini", 0.15, 0.60},
	{"gpt-4o", 2.50, 10.00},
	{"gpt-4-turbo", 10.00, 30.00},
	{"gpt-4", 30.00, 60.00},
	{"gpt-3.5", 0.50, 1.50},
	{"o1-mini", 1.10, 4.40},
	{"o1", 15.00, 60.00},
	{"o3-mini", 1.10, 4.40},
	{"o3", 10.00, 40.00},
	{"o4-mini", 1.10, 4.40},
	{"claude-sonnet-4-5", 3.00, 15.00},
	{"claude-3-7-sonnet", 3.00, 15.00},
	{"claude-opus", 15.00, 75.00},
	{"claude-sonnet", 3.00, 15.00},
	{"claude-haiku", 0.80, 4.00},
	{"claude-3", 3.00, 15.00},
	{"deepseek-reasoner", 0.55, 2.19},
	{"deepseek-chat", 0.27, 1.10},
	{"deepseek-r1", 0.55, 2.19},
	{"qwen2.5", 0.40, 1.20},
	{"qwen3", 0.40, 1.20},
	{"glm-5", 0.60, 2.20},
	{"glm-4", 0.60, 2.20},
}

// defaultRate is used for any model name not found in rateTable, so an
// unrecognized model still accrues a conservative non-zero cost rather than
// silently tracking as free.
var defaultRate = modelRate{inPerMillion: 3.00, outPerMillion: 15.00}

// CostUSD returns the dollar cost of one LLM call given its published
// per-million-token rate for modelName.
func CostUSD(modelName string, promptTokens, completionTokens int) float64 {
	rate := lookupRate(modelName)
	return float64(promptTokens)/1_000_000*rate.inPerMillion +
		float64(completionTokens)/1_000_000*rate.outPerMillion
}

func lookupRate(modelName string) modelRate {
	lower := strings.ToLower(modelName)
	parts := strings.Split(lower, "/")
	baseName := parts[len(parts)-1]

	for _, r := range rateTable {
		if strings.HasPrefix(baseName, r.prefix) {
			return r
		}
	}
	return defaultRate
}
