package config

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultRegions embeds the shipped region→countries membership table.
// Open Question (spec §9): "the exact memberships of Europe/APAC/North
// America must be specified in configuration rather than assumed" — this
// file is that configuration. Operators can override it wholesale via
// Settings.RegionsConfigPath.
//
//go:embed regions.yaml
var defaultRegions embed.FS

// Country is one ISO country entry within a region.
type Country struct {
	Code string `yaml:"code"` // ISO 2-letter
	Name string `yaml:"name"` // full English name, as the enforcement endpoint expects
}

// RegionTable maps a region name (case-insensitive) to its member countries.
type RegionTable struct {
	regions map[string][]Country
}

// LoadRegionTable reads the region table from path, or the embedded default
// when path is empty.
func LoadRegionTable(path string) (*RegionTable, error) {
	var data []byte
	var err error
	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read regions config %q: %w", path, err)
		}
	} else {
		data, err = defaultRegions.ReadFile("regions.yaml")
		if err != nil {
			return nil, fmt.Errorf("read embedded regions config: %w", err)
		}
	}

	var raw map[string][]Country
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse regions config: %w", err)
	}

	table := &RegionTable{regions: make(map[string][]Country, len(raw))}
	for name, countries := range raw {
		table.regions[strings.ToLower(name)] = countries
	}
	return table, nil
}

// Lookup returns the member countries of region (case-insensitive), and
// whether region is a known multi-country region at all.
func (t *RegionTable) Lookup(region string) ([]Country, bool) {
	countries, ok := t.regions[strings.ToLower(region)]
	return countries, ok
}

// Names returns the known region names, for use by the location classifier
// when matching free text against the configured set.
func (t *RegionTable) Names() []string {
	names := make([]string, 0, len(t.regions))
	for name := range t.regions {
		names = append(names, name)
	}
	return names
}
