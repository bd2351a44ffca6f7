package curriculum

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ItemKind names the sub-entity arrays of a module that become trackable items.
type ItemKind string

const (
	KindCompetency ItemKind = "competency"
	KindResource   ItemKind = "resource"
	KindAssessment ItemKind = "assessment"
)

// Kinds lists item kinds in normalization order.
var Kinds = []ItemKind{KindCompetency, KindResource, KindAssessment}

// Document is a generated curriculum as returned by the generator and stored by the server.
type Document struct {
	Title       string   `json:"title,omitempty" yaml:"title,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Modules     []Module `json:"modules,omitempty" yaml:"modules,omitempty"`
}

type Module struct {
	ID           string  `json:"id,omitempty" yaml:"id,omitempty"`
	Title        string  `json:"title,omitempty" yaml:"title,omitempty"`
	Description  string  `json:"description,omitempty" yaml:"description,omitempty"`
	Duration     string  `json:"duration,omitempty" yaml:"duration,omitempty"`
	Competencies []Entry `json:"competencies,omitempty" yaml:"competencies,omitempty"`
	Resources    []Entry `json:"resources,omitempty" yaml:"resources,omitempty"`
	Assessments  []Entry `json:"assessments,omitempty" yaml:"assessments,omitempty"`
}

// Entries returns the module's array for kind.
func (m Module) Entries(kind ItemKind) []Entry {
	switch kind {
	case KindCompetency:
		return m.Competencies
	case KindResource:
		return m.Resources
	case KindAssessment:
		return m.Assessments
	default:
		return nil
	}
}

// Entry is one competency, resource, or assessment. Generators emit either a bare
// string or an object, so both shapes decode into Entry.
type Entry struct {
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
}

type entryFields struct {
	Title       string `json:"title" yaml:"title"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Type        string `json:"type" yaml:"type"`
	URL         string `json:"url" yaml:"url"`
	Link        string `json:"link" yaml:"link"`
}

func (f entryFields) entry() Entry {
	e := Entry{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		Type:        strings.TrimSpace(f.Type),
		URL:         strings.TrimSpace(f.URL),
	}
	if e.Title == "" {
		e.Title = strings.TrimSpace(f.Name)
	}
	if e.URL == "" {
		e.URL = strings.TrimSpace(f.Link)
	}
	return e
}

func (e *Entry) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*e = Entry{Title: strings.TrimSpace(s)}
		return nil
	}
	var f entryFields
	if err := json.Unmarshal(raw, &f); err != nil {
		return err
	}
	*e = f.entry()
	return nil
}

func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*e = Entry{Title: strings.TrimSpace(node.Value)}
		return nil
	}
	var f entryFields
	if err := node.Decode(&f); err != nil {
		return err
	}
	*e = f.entry()
	return nil
}

// ParseDocument decodes a curriculum from JSON or YAML.
func ParseDocument(raw []byte) (*Document, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return &Document{}, nil
	}
	var doc Document
	jsonErr := json.Unmarshal(raw, &doc)
	if jsonErr == nil {
		return &doc, nil
	}
	doc = Document{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode curriculum: json: %v; yaml: %w", jsonErr, err)
	}
	return &doc, nil
}
