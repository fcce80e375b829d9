package retrieve

import (
	"strings"
	"testing"
)

func TestIngestHTML(t *testing.T) {
	doc := `<html><head><title>ignored</title><style>.x{color:red}</style></head>
<body><h1>510(k) Program Overview</h1><script>var x=1;</script>
<p>The 510(k) pathway demonstrates substantial equivalence.</p></body></html>`

	chunk, err := IngestHTML("510k:guidance-2024", "510k", []string{"k_number", "applicant"}, strings.NewReader(doc), "text/html; charset=utf-8")
	if err != nil {
		t.Fatalf("IngestHTML() error: %v", err)
	}
	if chunk.Endpoint != "510k" {
		t.Errorf("Endpoint = %q, want 510k", chunk.Endpoint)
	}
	if strings.Contains(chunk.Text, "color:red") || strings.Contains(chunk.Text, "var x=1") {
		t.Error("expected script/style content to be excluded from extracted text")
	}
	if !strings.Contains(chunk.Text, "substantial equivalence") {
		t.Errorf("expected visible paragraph text in chunk, got %q", chunk.Text)
	}
	if !strings.HasPrefix(chunk.Text, "[ENDPOINT]: 510k") {
		t.Errorf("expected synthetic header prefix, got %q", chunk.Text[:40])
	}
}

func TestIngestHTML_NoVisibleText(t *testing.T) {
	_, err := IngestHTML("empty", "general", nil, strings.NewReader(`<html><head><style>.x{}</style></head><body></body></html>`), "text/html")
	if err == nil {
		t.Error("expected an error when no visible text is extracted")
	}
}
