// Package openfda implements the seven endpoint tools of spec §4.2 (plus the
// probe_count and paginate helpers) as tool.Tool implementations over the
// shared transport.Client. Each tool is a pure function of (transport,
// parameters): none read ResolverContext directly, matching the division of
// labor where the agent controller's PLAN stage decides what to pass.
package openfda

import (
	"fmt"
	"regexp"
	"strings"
)

// clause is one field:value term of an openFDA filter expression.
type clause struct {
	field string
	value string
}

// render quotes multi-word literals per spec §4.2 ("quotes multi-word literals").
func (c clause) render() string {
	v := c.value
	if strings.ContainsAny(v, " \t") {
		v = fmt.Sprintf("%q", v)
	}
	return c.field + ":" + v
}

// buildSearch joins non-empty clauses with AND, skipping anything unset.
func buildSearch(clauses ...clause) string {
	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		if c.value == "" {
			continue
		}
		parts = append(parts, c.render())
	}
	return strings.Join(parts, " AND ")
}

// dateRangeClause renders a date-range filter as field:[YYYYMMDD TO YYYYMMDD]
// per spec §4.2. An open-ended bound is anchored at the dataset's plausible
// extremes so a start-only or end-only range still composes with AND.
func dateRangeClause(field, start, end string) string {
	if start == "" && end == "" {
		return ""
	}
	if start == "" {
		start = "00010101"
	}
	if end == "" {
		end = "99991231"
	}
	return field + ":[" + start + " TO " + end + "]"
}

var (
	productCodePattern   = regexp.MustCompile(`^[A-Z]{3}$`)
	regulationNumPattern = regexp.MustCompile(`^\d{3}\.\d{4}$`)
	kNumberPattern       = regexp.MustCompile(`^[Kk]\d{6}$`)
	pmaNumberPattern     = regexp.MustCompile(`^[Pp]\d{6}$`)
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
