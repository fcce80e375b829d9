package retrieve

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/fdadevices/openfda-agent/internal/model"
)

// IngestHTML parses an operator-supplied FDA guidance document (scraped as
// HTML) into an "overview" corpus chunk for endpoint, extracting visible
// text and discarding markup, script, and style content. charset.NewReader
// sniffs the document's encoding from its headers/meta tags before the HTML
// tokenizer runs, so non-UTF-8 guidance pages decode correctly.
func IngestHTML(id, endpoint string, fields []string, r io.Reader, contentType string) (model.CorpusChunk, error) {
	utf8Reader, err := charset.NewReader(r, contentType)
	if err != nil {
		return model.CorpusChunk{}, fmt.Errorf("retrieve: detect charset: %w", err)
	}

	doc, err := html.Parse(utf8Reader)
	if err != nil {
		return model.CorpusChunk{}, fmt.Errorf("retrieve: parse html: %w", err)
	}

	var sb strings.Builder
	extractText(doc, &sb)
	body := collapseWhitespace(sb.String())
	if body == "" {
		return model.CorpusChunk{}, fmt.Errorf("retrieve: no visible text extracted from document %q", id)
	}

	return newChunk(id, endpoint, "overview", fields, body), nil
}

func extractText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, sb)
	}
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
