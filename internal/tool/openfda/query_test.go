package openfda

import "testing"

func TestBuildSearch(t *testing.T) {
	tests := []struct {
		name    string
		clauses []clause
		want    string
	}{
		{"empty", nil, ""},
		{"single", []clause{{"product_code", "FXX"}}, "product_code:FXX"},
		{
			"skips empty values",
			[]clause{{"product_code", ""}, {"device_name", "stent"}},
			"device_name:stent",
		},
		{
			"quotes multi-word literal",
			[]clause{{"device_name", "surgical mask"}},
			`device_name:"surgical mask"`,
		},
		{
			"joins with AND",
			[]clause{{"product_code", "FXX"}, {"device_class", "2"}},
			"product_code:FXX AND device_class:2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildSearch(tt.clauses...); got != tt.want {
				t.Errorf("buildSearch() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDateRangeClause(t *testing.T) {
	tests := []struct {
		name, field, start, end, want string
	}{
		{"both set", "decision_date", "20200101", "20201231", "decision_date:[20200101 TO 20201231]"},
		{"neither set", "decision_date", "", "", ""},
		{"start only", "decision_date", "20200101", "", "decision_date:[20200101 TO 99991231]"},
		{"end only", "decision_date", "", "20201231", "decision_date:[00010101 TO 20201231]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dateRangeClause(tt.field, tt.start, tt.end); got != tt.want {
				t.Errorf("dateRangeClause() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 100},
		{-5, 100},
		{50, 50},
		{1000, 1000},
		{5000, 1000},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
