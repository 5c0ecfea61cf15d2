// Package manifest holds the static tool-category manifest the design
// assistant advertises to the model and to clients. The manifest is plain
// data; the relay never executes tools.
package manifest

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed manifest.yaml
var manifestYAML []byte

// Param describes one tool parameter.
type Param struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

// Tool is one entry of the manifest.
type Tool struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Params      []Param `yaml:"params"`
}

// Entry is a tool annotated with its category, as returned by lookups.
type Entry struct {
	Tool
	Category string
}

// Manifest maps category names to their tools.
type Manifest map[string][]Tool

// Load parses the embedded manifest.
func Load() (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(manifestYAML, &m); err != nil {
		return nil, errors.Wrap(err, "parse tool manifest")
	}
	return m, nil
}

// Categories returns the category names in sorted order.
func (m Manifest) Categories() []string {
	cats := make([]string, 0, len(m))
	for c := range m {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// Lookup returns the tools of one category, or every tool (annotated with
// its category) when category is empty. Unknown categories return nil.
func (m Manifest) Lookup(category string) []Entry {
	if category != "" {
		tools, ok := m[category]
		if !ok {
			return nil
		}
		entries := make([]Entry, 0, len(tools))
		for _, t := range tools {
			entries = append(entries, Entry{Tool: t, Category: category})
		}
		return entries
	}
	var entries []Entry
	for _, c := range m.Categories() {
		for _, t := range m[c] {
			entries = append(entries, Entry{Tool: t, Category: c})
		}
	}
	return entries
}

// Render formats the manifest as prompt text, one category per section.
func (m Manifest) Render() string {
	var b strings.Builder
	b.WriteString("Available tools by category:\n")
	for _, c := range m.Categories() {
		fmt.Fprintf(&b, "\n%s:\n", c)
		for _, t := range m[c] {
			if t.Description != "" {
				fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
			} else {
				fmt.Fprintf(&b, "- %s\n", t.Name)
			}
			for _, p := range t.Params {
				fmt.Fprintf(&b, "  - %s (%s): %s\n", p.Name, p.Type, p.Description)
			}
		}
	}
	return b.String()
}
