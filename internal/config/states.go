package config

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed states.yaml
var defaultStates embed.FS

// StateTable recognizes a US state regardless of whether the caller typed
// its full name or 2-letter code.
type StateTable struct {
	byCode map[string]Country
	byName map[string]Country
}

// LoadStateTable reads the embedded US state name/code table.
func LoadStateTable() (*StateTable, error) {
	data, err := defaultStates.ReadFile("states.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded states config: %w", err)
	}
	var entries []Country
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse states config: %w", err)
	}

	t := &StateTable{byCode: make(map[string]Country, len(entries)), byName: make(map[string]Country, len(entries))}
	for _, e := range entries {
		t.byCode[strings.ToUpper(e.Code)] = e
		t.byName[strings.ToLower(e.Name)] = e
	}
	return t, nil
}

// Lookup resolves term (either a 2-letter code or a full state name) to its
// canonical Country-shaped entry, and whether it was recognized at all.
func (t *StateTable) Lookup(term string) (Country, bool) {
	if c, ok := t.byCode[strings.ToUpper(term)]; ok {
		return c, true
	}
	c, ok := t.byName[strings.ToLower(term)]
	return c, ok
}
