// Package pack decodes knowledge-pack YAML documents into plain
// structs. Decoding is a thin adapter in front of the loader: the
// loader itself is a pure function of already-parsed documents
// (spec §4.1), never of files on disk.
package pack

import (
	"bytes"
	"errors"
	"io"

	"gopkg.in/yaml.v3"
)

// Document is one knowledge pack: a YAML document declaring nodes,
// edges and rules (spec §6).
type Document struct {
	Nodes []Node `yaml:"nodes,omitempty"`
	Edges []Edge `yaml:"edges,omitempty"`
	Rules []Rule `yaml:"rules,omitempty"`
}

// Node mirrors the YAML node record (spec §6).
type Node struct {
	ID          string         `yaml:"id"`
	Label       string         `yaml:"label"`
	Domain      string         `yaml:"domain"`
	Subdomain   string         `yaml:"subdomain,omitempty"`
	Type        string         `yaml:"type"`
	StateType   string         `yaml:"state_type"`
	Unit        string         `yaml:"unit,omitempty"`
	NormalRange *NormalRange   `yaml:"normal_range,omitempty"`
	Aliases     []string       `yaml:"aliases,omitempty"`
	Description string         `yaml:"description,omitempty"`
}

// NormalRange mirrors the YAML normal_range record.
type NormalRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Edge mirrors the YAML edge record (spec §6).
type Edge struct {
	Source      string          `yaml:"source"`
	Target      string          `yaml:"target"`
	Rel         string          `yaml:"rel"`
	Weight      float64         `yaml:"weight"`
	Delay       string          `yaml:"delay"`
	Context     map[string]bool `yaml:"context,omitempty"`
	Priority    string          `yaml:"priority,omitempty"`
	Description string          `yaml:"description,omitempty"`
}

// Rule mirrors the YAML rule record (spec §6). `Then` values are
// small strings ("increase", "decrease", "block", or "set <value>")
// decoded further by the loader.
type Rule struct {
	ID          string            `yaml:"id"`
	When        string            `yaml:"when"`
	Then        map[string]string `yaml:"then"`
	Description string            `yaml:"description,omitempty"`
}

// Decode parses a single YAML document from raw bytes.
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// DecodeAll splits a multi-document YAML stream (separated by `---`)
// into a list of Documents, the shape the loader consumes when an
// entire pack directory has been concatenated by its caller.
func DecodeAll(data []byte) ([]Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var docs []Document
	for {
		var doc Document
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
