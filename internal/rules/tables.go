// internal/rules/tables.go

// Package rules implements the product save pipeline: detection
// classification, verdict conflict detection, override auditing, the
// legal-defense publication gate and the prohibited-term linter.
//
// Every step is a pure function over a cloned product document. Steps never
// touch the database; collaborators (category policy lookup) are injected and
// audit records are returned as events for the caller to persist.
package rules

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_tables.yaml
var defaultTablesYAML []byte

// Tables holds the static word lists used by the classifier and linter.
type Tables struct {
	FragranceComponents []string `yaml:"fragrance_components"`
	DisclosureKeywords  []string `yaml:"disclosure_keywords"`
	Contaminants        []string `yaml:"contaminants"`
	ProhibitedTerms     []string `yaml:"prohibited_terms"`
}

var defaultTables = mustParseTables(defaultTablesYAML)

// DefaultTables returns a copy of the built-in tables.
func DefaultTables() *Tables {
	return defaultTables.clone()
}

// ParseTables decodes a YAML table document. Sections left empty fall back to
// the built-in defaults.
func ParseTables(data []byte) (*Tables, error) {
	t, err := parseTables(data)
	if err != nil {
		return nil, err
	}

	defaults := DefaultTables()
	if len(t.FragranceComponents) == 0 {
		t.FragranceComponents = defaults.FragranceComponents
	}
	if len(t.DisclosureKeywords) == 0 {
		t.DisclosureKeywords = defaults.DisclosureKeywords
	}
	if len(t.Contaminants) == 0 {
		t.Contaminants = defaults.Contaminants
	}
	if len(t.ProhibitedTerms) == 0 {
		t.ProhibitedTerms = defaults.ProhibitedTerms
	}
	return t, nil
}

func parseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse rule tables: %w", err)
	}
	t.normalize()
	return &t, nil
}

// LoadTables reads rule tables from a YAML file. An empty path yields the defaults.
func LoadTables(path string) (*Tables, error) {
	if path == "" {
		return DefaultTables(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule tables %s: %w", path, err)
	}

	return ParseTables(data)
}

func mustParseTables(data []byte) *Tables {
	t, err := parseTables(data)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Tables) normalize() {
	t.FragranceComponents = normalizeList(t.FragranceComponents)
	t.DisclosureKeywords = normalizeList(t.DisclosureKeywords)
	t.Contaminants = normalizeList(t.Contaminants)
	t.ProhibitedTerms = normalizeList(t.ProhibitedTerms)
}

func (t *Tables) clone() *Tables {
	return &Tables{
		FragranceComponents: append([]string(nil), t.FragranceComponents...),
		DisclosureKeywords:  append([]string(nil), t.DisclosureKeywords...),
		Contaminants:        append([]string(nil), t.Contaminants...),
		ProhibitedTerms:     append([]string(nil), t.ProhibitedTerms...),
	}
}

// normalizeList lowercases, trims and de-duplicates while keeping order.
func normalizeList(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
